package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "data/economy.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Engine.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.Bot.PollTimeout)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 24, cfg.Backup.Keep)
	assert.False(t, cfg.AdminAPI.Enabled)
	assert.Equal(t, int64(500), cfg.Daily.Reward)
	assert.Equal(t, 24*time.Hour, cfg.Daily.Cooldown())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
storage:
  backend: memory
daily:
  reward: 250
admin:
  ids: [11, 12]
whitelist:
  chats: [-100]
`)
	t.Setenv("DAILY_COOLDOWN_HOURS", "12")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, int64(250), cfg.Daily.Reward)
	assert.Equal(t, 12*time.Hour, cfg.Daily.Cooldown())
	assert.True(t, cfg.IsAdmin(12))
	assert.False(t, cfg.IsAdmin(13))
	assert.True(t, cfg.IsChatAllowed(-100))
	assert.False(t, cfg.IsChatAllowed(-200))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"negative reward", func(c *Config) { c.Daily.Reward = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Storage: StorageConfig{Backend: BackendSQLite, SQLitePath: "x.db"}}
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "economy"}
	assert.Equal(t, "postgres://u:p@db:5433/economy?sslmode=disable", d.DSN())
}
