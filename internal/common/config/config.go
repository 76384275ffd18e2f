package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `env:"PORT"          envDefault:"3003"`
	Environment  string `env:"ENV"           envDefault:"development"`
	ReadTimeout  int    `env:"READ_TIMEOUT"  envDefault:"10"`
	WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"10"`
	BodyLimitMB  int    `env:"BODY_LIMIT_MB" envDefault:"16"`

	// CORSOrigins is a comma-separated allow list; empty allows any origin.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	DBPath        string `env:"VARIANT_DB_PATH" envDefault:"data/db/variants.db"`
	IDMappingPath string `env:"ID_MAPPING_PATH"`

	Compiler Compiler
}

// Compiler tunes the spatial heuristics. Lengths are in SVG user units.
type Compiler struct {
	LabelSearchRadius  float64 `env:"LABEL_SEARCH_RADIUS"  envDefault:"0"`
	AdjacencyMinShared float64 `env:"ADJACENCY_MIN_SHARED" envDefault:"2"`
	AdjacencyTolerance float64 `env:"ADJACENCY_TOLERANCE"  envDefault:"3"`
	AdjacencySnap      float64 `env:"ADJACENCY_SNAP"       envDefault:"0.75"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BodyLimitMB <= 0 {
		return nil, fmt.Errorf("BODY_LIMIT_MB must be positive, got %d", cfg.BodyLimitMB)
	}
	if cfg.Compiler.LabelSearchRadius < 0 {
		return nil, fmt.Errorf("LABEL_SEARCH_RADIUS must not be negative")
	}
	return &cfg, nil
}

// BodyLimit is the request size limit in bytes.
func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}
