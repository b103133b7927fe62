package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/oculens/cataract-api/internal/backend"
	"github.com/oculens/cataract-api/internal/config"
	"github.com/oculens/cataract-api/internal/handlers"
	"github.com/oculens/cataract-api/internal/model"
)

func main() {
	// Get the project root directory
	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(root) == "server" {
		root = filepath.Join(root, "../..")
	}

	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = filepath.Join(root, "config.yaml")
	}

	cfg, err := config.LoadServer(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	backends := []backend.Backend{backend.NewONNXRuntime()}
	if cfg.AllowFallback {
		backends = append(backends, backend.NewOpenCV())
	}

	specs := make([]model.Spec, len(cfg.Models))
	for i, m := range cfg.Models {
		path := m.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		specs[i] = model.Spec{
			Name:      m.Name,
			Path:      path,
			Required:  m.Required,
			InputSize: m.InputSize,
		}
	}

	// Loading must complete before the listener binds: a startup failure
	// here means the service never enters a serving-ready state.
	registry, err := model.Load(specs, backends)
	if err != nil {
		log.Fatalf("Failed to initialize model registry: %v", err)
	}
	defer registry.Close()

	ensemble := model.NewEnsemble(registry)
	handler := handlers.NewHandler(ensemble, registry.ModelNames())
	router := handlers.Routes(handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("Cataract detection API starting on port %s", port)
	log.Println("Endpoints:")
	log.Println("  GET  /health  - Health check")
	log.Println("  POST /predict - Predict from image upload")

	log.Fatal(router.Run(":" + port))
}
