// Package config loads configuration from environment variables, .env files,
// and optional YAML model-preset files.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the planner service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Model / generation
	ModelPath        string `env:"MODEL_PATH" envDefault:"scripted:dev"`
	ContextSize      int    `env:"CONTEXT_SIZE" envDefault:"2048"`
	AccelLayers      int    `env:"ACCEL_LAYERS" envDefault:"0"`
	DefaultMaxTokens int    `env:"DEFAULT_MAX_TOKENS" envDefault:"512"`

	// Model presets (optional YAML file; preset values override the
	// individual model settings above when a preset is selected)
	ModelPresets string `env:"MODEL_PRESETS"`
	ModelPreset  string `env:"MODEL_PRESET"`

	// Plan store
	PlanTTL     time.Duration `env:"PLAN_TTL" envDefault:"1h"`
	PlanHistory int           `env:"PLAN_HISTORY" envDefault:"100"`
}

// Load loads configuration from .env file (if present) and environment
// variables, then applies the selected model preset, if any.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.ModelPresets != "" && cfg.ModelPreset != "" {
		preset, err := LoadPreset(cfg.ModelPresets, cfg.ModelPreset)
		if err != nil {
			return nil, err
		}
		cfg.ApplyPreset(preset)
	}

	return cfg, nil
}

// ApplyPreset overrides the model settings with a preset's values. Zero
// values in the preset leave the corresponding setting untouched.
func (c *Config) ApplyPreset(p Preset) {
	if p.Path != "" {
		c.ModelPath = p.Path
	}
	if p.ContextSize > 0 {
		c.ContextSize = p.ContextSize
	}
	if p.AccelLayers > 0 {
		c.AccelLayers = p.AccelLayers
	}
	if p.MaxTokens > 0 {
		c.DefaultMaxTokens = p.MaxTokens
	}
}
