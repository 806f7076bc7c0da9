// Package workflowfile reads workflow graphs from YAML or JSON files.
package workflowfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a workflow file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf guesses the format from the file extension. Unknown extensions are YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Option configures decoding.
type Option func(*mapstructure.DecoderConfig)

// Strict rejects keys the graph model does not know.
func Strict() Option {
	return func(c *mapstructure.DecoderConfig) {
		c.ErrorUnused = true
	}
}

// Read loads the graph stored at path.
func Read(path string, opts ...Option) (domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to read workflow: %w", err)
	}
	g, err := Parse(data, FormatOf(path), opts...)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes data into a graph. Both formats go through the same generic
// tree so conditions decode identically. JSON numbers stay exact.
func Parse(data []byte, format Format, opts ...Option) (domain.Graph, error) {
	var raw any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return domain.Graph{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return domain.Graph{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	if raw == nil {
		return domain.Graph{}, fmt.Errorf("workflow is empty")
	}

	var g domain.Graph
	cfg := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(domain.ConditionDecodeHook()),
		TagName:    "mapstructure",
		Result:     &g,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return domain.Graph{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.Graph{}, fmt.Errorf("invalid workflow: %w", err)
	}
	return g, nil
}
