package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.ContextSize != 2048 {
		t.Errorf("ContextSize = %d, want 2048", cfg.ContextSize)
	}
	if cfg.DefaultMaxTokens != 512 {
		t.Errorf("DefaultMaxTokens = %d, want 512", cfg.DefaultMaxTokens)
	}
	if cfg.PlanTTL != time.Hour {
		t.Errorf("PlanTTL = %v, want 1h", cfg.PlanTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MODEL_PATH", "/models/coach.gguf")
	t.Setenv("CONTEXT_SIZE", "4096")
	t.Setenv("PLAN_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ModelPath != "/models/coach.gguf" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ContextSize != 4096 {
		t.Errorf("ContextSize = %d, want 4096", cfg.ContextSize)
	}
	if cfg.PlanTTL != 30*time.Minute {
		t.Errorf("PlanTTL = %v, want 30m", cfg.PlanTTL)
	}
}

func TestLoad_AppliesPreset(t *testing.T) {
	presets := `
presets:
  coach-large:
    path: /models/coach-13b.gguf
    context_size: 4096
    accel_layers: 32
    max_tokens: 1024
`
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(presets), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MODEL_PRESETS", path)
	t.Setenv("MODEL_PRESET", "coach-large")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ModelPath != "/models/coach-13b.gguf" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ContextSize != 4096 {
		t.Errorf("ContextSize = %d, want 4096", cfg.ContextSize)
	}
	if cfg.AccelLayers != 32 {
		t.Errorf("AccelLayers = %d, want 32", cfg.AccelLayers)
	}
	if cfg.DefaultMaxTokens != 1024 {
		t.Errorf("DefaultMaxTokens = %d, want 1024", cfg.DefaultMaxTokens)
	}
}

func TestLoadPreset_UnknownName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("presets: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPreset(path, "nope"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestApplyPreset_ZeroValuesKeepDefaults(t *testing.T) {
	cfg := &Config{ModelPath: "a", ContextSize: 2048, AccelLayers: 0, DefaultMaxTokens: 512}
	cfg.ApplyPreset(Preset{Path: "b"})

	if cfg.ModelPath != "b" {
		t.Errorf("ModelPath = %q, want b", cfg.ModelPath)
	}
	if cfg.ContextSize != 2048 || cfg.DefaultMaxTokens != 512 {
		t.Errorf("zero preset fields must not override: %+v", cfg)
	}
}
