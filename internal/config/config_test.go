package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2, cfg.Router.TopK)
	assert.Equal(t, EncoderLocal, cfg.Encoder.Type)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semrouter.yaml")
	content := `
server:
  port: 9090
  read_timeout: 3s
router:
  top_k: 4
encoder:
  type: ollama
  model: mxbai-embed-large
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.Router.TopK)
	assert.Equal(t, EncoderOllama, cfg.Encoder.Type)
	assert.Equal(t, "mxbai-embed-large", cfg.Encoder.Model)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)

	// unset keys keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 64, cfg.Router.MaxBatchSize)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Encoder.Host)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SEMROUTER_SERVER_PORT", "7000")
	t.Setenv("SEMROUTER_ROUTER_TOP_K", "3")
	t.Setenv("SEMROUTER_ENCODER_TIMEOUT", "5s")
	t.Setenv("SEMROUTER_CACHE_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Router.TopK)
	assert.Equal(t, 5*time.Second, cfg.Encoder.Timeout)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"top_k", func(c *Config) { c.Router.TopK = 0 }, "router.top_k"},
		{"batch size", func(c *Config) { c.Router.MaxBatchSize = 0 }, "max_batch_size"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"encoder type", func(c *Config) { c.Encoder.Type = "openai" }, "encoder.type"},
		{"dimension", func(c *Config) { c.Encoder.Dimension = 0 }, "encoder.dimension"},
		{"ollama model", func(c *Config) { c.Encoder.Type = EncoderOllama; c.Encoder.Model = "" }, "encoder.model"},
		{"ollama host", func(c *Config) { c.Encoder.Type = EncoderOllama; c.Encoder.Host = "" }, "encoder.host"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "semrouter.yaml")

	cfg := Default()
	cfg.Router.TopK = 7
	cfg.Encoder.Timeout = 45 * time.Second
	require.NoError(t, cfg.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
