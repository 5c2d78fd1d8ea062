package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsMemoryOnlyAndValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "memory", c.Stores.Primary.Driver)
	assert.Equal(t, "flat", c.Stores.Primary.Schema)
	assert.Equal(t, "nested", c.Stores.Secondary.Schema)
	assert.Equal(t, []string{"primary", "secondary"}, c.Stores.LookupOrder)
	assert.Equal(t, 4, c.Engine.Parallelism)
	assert.Equal(t, 5*time.Second, c.Engine.ProbeTimeout)
	assert.Equal(t, 15*time.Second, c.Engine.RefreshTimeout)
	assert.Equal(t, 5*time.Minute, c.Engine.ExpiryBuffer)
	assert.Equal(t, 720*time.Hour, c.Engine.StaleAfter)
	assert.Equal(t, 168*time.Hour, c.Engine.SnapshotTTL)
}

func TestLoad_YAMLAndDurations(t *testing.T) {
	path := writeYAML(t, `
stores:
  primary:
    driver: postgres
    dsn: postgres://localhost/app
    ensure_schema: true
  secondary:
    driver: mongo
    dsn: mongodb://localhost:27017
    database: legacy
  lookup_order: [secondary, primary]
engine:
  parallelism: 8
  probe_timeout: 3s
  stale_after: 240h
providers:
  youtube:
    client_id: yt-id
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Stores.Primary.Driver)
	assert.True(t, c.Stores.Primary.EnsureSchema)
	assert.Equal(t, "legacy", c.Stores.Secondary.Database)
	assert.Equal(t, []string{"secondary", "primary"}, c.Stores.LookupOrder)
	assert.Equal(t, 8, c.Engine.Parallelism)
	assert.Equal(t, 3*time.Second, c.Engine.ProbeTimeout)
	assert.Equal(t, 240*time.Hour, c.Engine.StaleAfter)
	assert.Equal(t, 15*time.Second, c.Engine.RefreshTimeout)
	assert.Equal(t, "yt-id", c.Providers.YouTube.ClientID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeYAML(t, "engine:\n  parallelism: 2\n")
	t.Setenv("ENGINE_PARALLELISM", "6")
	t.Setenv("PROBE_TIMEOUT", "750ms")
	t.Setenv("CACHE_KIND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LINKEDIN_CLIENT_SECRET", "li-secret")
	t.Setenv("SECONDARY_STORE_DATABASE", "social")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Engine.Parallelism)
	assert.Equal(t, 750*time.Millisecond, c.Engine.ProbeTimeout)
	assert.Equal(t, "redis", c.Cache.Kind)
	assert.Equal(t, 3, c.Cache.Redis.DB)
	assert.Equal(t, "li-secret", c.Providers.LinkedIn.ClientSecret)
	assert.Equal(t, "social", c.Stores.Secondary.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Stores.Primary.Driver = "mysql" }, "unknown driver"},
		{"missing dsn", func(c *Config) { c.Stores.Secondary.Driver = "mongo" }, "stores.secondary.dsn"},
		{"postgres nested", func(c *Config) {
			c.Stores.Primary.Driver = "postgres"
			c.Stores.Primary.DSN = "postgres://x"
			c.Stores.Primary.Schema = "nested"
		}, "flat schema"},
		{"duplicate lookup", func(c *Config) { c.Stores.LookupOrder = []string{"primary", "primary"} }, "listed twice"},
		{"redis without addr", func(c *Config) { c.Cache.Kind = "redis" }, "cache.redis.addr"},
		{"zero parallelism", func(c *Config) { c.Engine.Parallelism = 0 }, "engine.parallelism"},
		{"prod without key", func(c *Config) { c.App.Env = "prod" }, "token_encryption_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "engine: [not, a, map"))
	require.Error(t, err)
}
