// Package config loads semrouter settings from a YAML file, environment
// variables and built-in defaults, in increasing order of precedence:
// defaults, then the file, then SEMROUTER_* variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// SEMROUTER_SERVER_PORT or SEMROUTER_ENCODER_MODEL.
const EnvPrefix = "SEMROUTER"

// Encoder types.
const (
	EncoderLocal  = "local"
	EncoderOllama = "ollama"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config is the complete semrouter configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Router  RouterConfig  `mapstructure:"router" yaml:"router" json:"router"`
	Encoder EncoderConfig `mapstructure:"encoder" yaml:"encoder" json:"encoder"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache" json:"cache"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RouterConfig configures the routing index.
type RouterConfig struct {
	// Catalog is the YAML or JSON route catalog file
	Catalog string `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// TopK is used when a request does not name one
	TopK int `mapstructure:"top_k" yaml:"top_k" json:"top_k"`

	// MaxBatchSize bounds the number of queries in one batch request
	MaxBatchSize int `mapstructure:"max_batch_size" yaml:"max_batch_size" json:"max_batch_size"`

	// BatchEncoding encodes all examples in one encoder call at startup
	BatchEncoding bool `mapstructure:"batch_encoding" yaml:"batch_encoding" json:"batch_encoding"`
}

// EncoderConfig selects and configures the embedding model.
type EncoderConfig struct {
	Type        string        `mapstructure:"type" yaml:"type" json:"type"`
	Model       string        `mapstructure:"model" yaml:"model" json:"model"`
	Host        string        `mapstructure:"host" yaml:"host" json:"host"`
	Dimension   int           `mapstructure:"dimension" yaml:"dimension" json:"dimension"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Path is the SQLite file; empty keeps the cache in memory only
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Router: RouterConfig{
			Catalog:      "examples/catalog.yaml",
			TopK:         2,
			MaxBatchSize: 64,
		},
		Encoder: EncoderConfig{
			Type:        EncoderLocal,
			Model:       "nomic-embed-text",
			Host:        "http://127.0.0.1:11434",
			Dimension:   512,
			Timeout:     30 * time.Second,
			Concurrency: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatConsole,
		},
	}
}

// Load reads configuration from path and merges environment variables.
// An empty path or a missing file yields the defaults plus environment
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Seed viper with every default so that AutomaticEnv sees all keys
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}

	if path != "" {
		path = expandPath(path)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Router.Catalog = expandPath(cfg.Router.Catalog)
	cfg.Cache.Path = expandPath(cfg.Cache.Path)

	return &cfg, nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Router.TopK < 1 {
		return fmt.Errorf("router.top_k must be a positive integer, got %d", c.Router.TopK)
	}
	if c.Router.MaxBatchSize < 1 {
		return fmt.Errorf("router.max_batch_size must be a positive integer, got %d", c.Router.MaxBatchSize)
	}

	switch c.Encoder.Type {
	case EncoderLocal:
		if c.Encoder.Dimension < 1 {
			return fmt.Errorf("encoder.dimension must be positive for the local encoder")
		}
	case EncoderOllama:
		if c.Encoder.Model == "" {
			return fmt.Errorf("encoder.model cannot be empty for the ollama encoder")
		}
		if c.Encoder.Host == "" {
			return fmt.Errorf("encoder.host cannot be empty for the ollama encoder")
		}
	default:
		return fmt.Errorf("invalid encoder.type '%s', must be one of: %s, %s", c.Encoder.Type, EncoderLocal, EncoderOllama)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatConsole {
		return fmt.Errorf("invalid log format '%s', must be '%s' or '%s'", c.Logging.Format, LogFormatJSON, LogFormatConsole)
	}

	return nil
}

// Write stores the configuration at path as YAML, creating parent
// directories as needed.
func (c *Config) Write(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
