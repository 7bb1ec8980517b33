package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset names one ready-to-use model configuration inside a presets file.
//
// Example presets file:
//
//	presets:
//	  coach-small:
//	    path: /models/coach-7b-q4.gguf
//	    context_size: 2048
//	    accel_layers: 0
//	    max_tokens: 512
//	  coach-large:
//	    path: /models/coach-13b-q5.gguf
//	    context_size: 4096
//	    accel_layers: 32
type Preset struct {
	Path        string `yaml:"path"`
	ContextSize int    `yaml:"context_size,omitempty"`
	AccelLayers int    `yaml:"accel_layers,omitempty"`
	MaxTokens   int    `yaml:"max_tokens,omitempty"`
}

type presetsFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// LoadPreset reads the YAML presets file at path and returns the named entry.
func LoadPreset(path, name string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("reading presets file: %w", err)
	}

	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Preset{}, fmt.Errorf("parsing presets file %s: %w", path, err)
	}

	preset, ok := file.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("preset %q not found in %s", name, path)
	}
	return preset, nil
}
