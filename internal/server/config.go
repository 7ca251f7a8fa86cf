// Package server implements the VectorWise HTTP serving layer: request
// validation, query normalization, error-to-status mapping, and the atomic
// index swap used for loading and reloading artifacts.
package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
)

// Config holds the serving configuration. Values come from an optional YAML
// file with flag overrides applied by cmd/vectorwise.
type Config struct {
	// HTTPAddr is the listen address for the REST API.
	HTTPAddr string `yaml:"http_addr"`
	// IndexPath is the artifact loaded at startup and on /admin/reload.
	IndexPath string `yaml:"index_path"`
	// Dimension is the expected vector dimension. Artifacts with a different
	// baked-in dimension are rejected at load time.
	Dimension int `yaml:"dimension"`
	// EfSearch is the default query-time candidate list width.
	EfSearch int `yaml:"ef_search"`
	// KCap bounds the k a client may request.
	KCap int `yaml:"k_cap"`
}

// DefaultConfig mirrors the upstream service defaults: 128-dimensional
// vectors, efSearch 64, k capped at 100.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  ":8000",
		IndexPath: "index.vwx",
		Dimension: 128,
		EfSearch:  64,
		KCap:      100,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unusable configurations before the server starts.
func (c Config) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", c.Dimension, vecerr.ErrInvalidArgument)
	}
	if c.EfSearch <= 0 {
		return fmt.Errorf("ef_search must be positive, got %d: %w", c.EfSearch, vecerr.ErrInvalidArgument)
	}
	if c.KCap <= 0 {
		return fmt.Errorf("k_cap must be positive, got %d: %w", c.KCap, vecerr.ErrInvalidArgument)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty: %w", vecerr.ErrInvalidArgument)
	}
	return nil
}
