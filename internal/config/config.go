// Package config loads YAML configuration for both services. A missing
// config file is not an error; both services run with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelSpec configures one model candidate, in ensemble order.
type ModelSpec struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Required  bool   `yaml:"required"`
	InputSize int    `yaml:"inputSize"`
}

// Server configures the inference service.
type Server struct {
	Port          string      `yaml:"port"`
	AllowFallback bool        `yaml:"allowFallback"`
	Models        []ModelSpec `yaml:"models"`
}

// Collector configures the training-data collection service.
type Collector struct {
	Port           string `yaml:"port"`
	DataDir        string `yaml:"dataDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

func defaultServer() *Server {
	return &Server{
		Port:          "8080",
		AllowFallback: true,
		Models: []ModelSpec{
			{Name: "ResNet50", Path: "models/resnet50_cataract.onnx"},
			{Name: "DenseNet121", Path: "models/densenet121_cataract.onnx"},
		},
	}
}

func defaultCollector() *Collector {
	return &Collector{
		Port:           "8081",
		DataDir:        "training_data",
		MaxUploadBytes: 10 << 20,
	}
}

// LoadServer reads the inference service config from path, falling back to
// defaults for a missing file or omitted fields.
func LoadServer(path string) (*Server, error) {
	cfg := defaultServer()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if len(cfg.Models) == 0 {
		cfg.Models = defaultServer().Models
	}
	return cfg, nil
}

// LoadCollector reads the collector config from path, falling back to
// defaults for a missing file or omitted fields.
func LoadCollector(path string) (*Collector, error) {
	cfg := defaultCollector()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	defaults := defaultCollector()
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	return cfg, nil
}

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("can't read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("can't parse config %s: %w", path, err)
	}
	return nil
}
