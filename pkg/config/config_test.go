package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, "X-Real-IP", cfg.Server.ProxyHeader)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "google/gemini-2.5-flash", cfg.Gateway.Model)
	assert.Equal(t, 120*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 5, cfg.Knowledge.MaxDocuments)
	assert.Equal(t, 1500, cfg.Knowledge.PerDocumentChars)
	assert.Equal(t, 4000, cfg.Knowledge.MaxTotalChars)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, int64(30), cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
  trusted_proxies: ["10.0.0.0/8"]
database:
  type: postgres
  connection: "host=db"
  max_conns: 50
rate_limit:
  backend: redis
  window: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("LOVABLE_API_KEY", "legacy-key")
	t.Setenv("MARKETMIND_GATEWAY_MODEL", "custom/model")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "legacy-key", cfg.Gateway.APIKey)
	assert.Equal(t, "custom/model", cfg.Gateway.Model)
}

func TestLoad_PrefixedKeyWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOVABLE_API_KEY", "legacy-key")
	t.Setenv("MARKETMIND_GATEWAY_API_KEY", "new-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.Gateway.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Gateway.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad database", func(c *Config) { c.Database.Type = "mysql" }, true},
		{"missing api key", func(c *Config) { c.Gateway.APIKey = "" }, true},
		{"redis without host", func(c *Config) { c.RateLimit.Backend = "redis" }, true},
		{"redis with host", func(c *Config) {
			c.RateLimit.Backend = "redis"
			c.Redis.Host = "localhost:6379"
		}, false},
		{"unknown backend", func(c *Config) { c.RateLimit.Backend = "etcd" }, true},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, true},
		{"disabled rate limit ignores limits", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Requests = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
