package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads Values from a .yaml, .yml or .json file.
func FromFile(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Values{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Values{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Values, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Values{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Values, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Values{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// Load builds validated Settings: defaults, then the file at path (skipped
// when empty), then environment variables under prefix.
func Load(path, prefix string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		v, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = SettingsFrom(v)
	}
	if err := s.ApplyEnv(prefix); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
