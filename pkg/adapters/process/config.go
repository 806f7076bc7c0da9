package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoaderConfig allow-lists one command as the provider of a node load method.
type LoaderConfig struct {
	Node        string            `yaml:"node" json:"node"`
	Method      string            `yaml:"method" json:"method"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// Name is the registry key of the loader.
func (c LoaderConfig) Name() string {
	return registryKey(c.Node, c.Method)
}

// ConfigFile represents the structure of loaders.yaml.
type ConfigFile struct {
	Loaders []LoaderConfig `yaml:"loaders" json:"loaders"`
}

// LoadConfig reads a configuration file (YAML or JSON) and returns the loaders
// keyed by "node.method". A missing file means no loaders are configured.
func LoadConfig(path string) (map[string]LoaderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]LoaderConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read loaders config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse loaders.json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse loaders.yaml: %w", err)
		}
	}

	return Index(cfg.Loaders), nil
}

// Index keys loaders by "node.method", skipping incomplete entries.
func Index(loaders []LoaderConfig) map[string]LoaderConfig {
	out := make(map[string]LoaderConfig, len(loaders))
	for _, l := range loaders {
		if l.Node == "" || l.Method == "" || l.Command == "" {
			continue
		}
		out[l.Name()] = l
	}
	return out
}
