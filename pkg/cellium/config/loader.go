package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads kernel settings from a YAML or JSON file. Keys absent
// from the file keep their DefaultSettings values, so a partial file
// still yields a runnable kernel.
func LoadFile(path string) (Settings, error) {
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return FromConfig(c), nil
}

// FromFile loads a raw settings map from a file, choosing the format by
// extension (.yaml, .yml, .json). Most callers want LoadFile instead.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported settings file extension %q (want .yaml, .yml, or .json)", ext)
	}
}

// FromYAML parses a YAML settings document.
func FromYAML(data []byte) (Config, error) {
	return decode(data, yaml.Unmarshal, "yaml")
}

// FromJSON parses a JSON settings document.
func FromJSON(data []byte) (Config, error) {
	return decode(data, json.Unmarshal, "json")
}

func decode(data []byte, unmarshal func([]byte, any) error, format string) (Config, error) {
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s settings: %w", format, err)
	}
	return New(m), nil
}
