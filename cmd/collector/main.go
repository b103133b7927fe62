package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/oculens/cataract-api/internal/collector"
	"github.com/oculens/cataract-api/internal/config"
)

func main() {
	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	// If running from cmd/collector, go up two levels
	if filepath.Base(root) == "collector" {
		root = filepath.Join(root, "../..")
	}

	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = filepath.Join(root, "collector.yaml")
	}

	cfg, err := config.LoadCollector(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(root, dataDir)
	}

	store, err := collector.NewStore(dataDir)
	if err != nil {
		log.Fatalf("Failed to initialize training data store: %v", err)
	}

	handler := collector.NewHandler(store, cfg.MaxUploadBytes)
	router := collector.Routes(handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("Training data collector starting on port %s", port)
	log.Printf("Data directory: %s", dataDir)

	log.Fatal(router.Run(":" + port))
}
