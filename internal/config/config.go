// Package config loads weave.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/aretw0/weave/pkg/adapters/process"
	"github.com/aretw0/weave/pkg/history"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "weave.yaml"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the root of weave.yaml.
type Config struct {
	LogLevel string                 `yaml:"log_level"`
	History  HistoryConfig          `yaml:"history"`
	Storage  StorageConfig          `yaml:"storage"`
	HTTP     HTTPConfig             `yaml:"http"`
	Loaders  []process.LoaderConfig `yaml:"loaders"`
}

type HistoryConfig struct {
	MaxSize int           `yaml:"max_size"`
	Settle  time.Duration `yaml:"settle"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
	// EncryptionKey is a 32-byte AES key, hex or base64 encoded.
	// An empty key stores history in clear text.
	EncryptionKey string `yaml:"encryption_key"`
	// RedactInputs lists patterns of input names masked before history is stored.
	RedactInputs []string `yaml:"redact_inputs"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		History: HistoryConfig{
			MaxSize: history.DefaultMaxSize,
			Settle:  history.DefaultSettle,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     ".weave/history",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "weave:history:",
			},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. A missing file at DefaultPath is not an
// error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.History.MaxSize < 1 {
		return fmt.Errorf("history.max_size must be positive, got %d", c.History.MaxSize)
	}
	if c.History.Settle < 0 {
		return fmt.Errorf("history.settle must not be negative")
	}
	for _, p := range c.Storage.RedactInputs {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("storage.redact_inputs: %w", err)
		}
	}
	for i, l := range c.Loaders {
		if l.Node == "" || l.Method == "" || l.Command == "" {
			return fmt.Errorf("loaders[%d]: node, method and command are required", i)
		}
	}
	return nil
}
