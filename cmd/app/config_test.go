package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db
  name: bot
telegram:
  botToken: "123:abc"
  bootstrapAdminID: 42
authoring:
  sessionTTL: 5m
logLevel: debug
`), 0o644))

	t.Setenv("APP_SERVER_PORT", "9000")
	t.Setenv("APP_BROADCAST_WORKERS", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "bot", cfg.Database.Name)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Telegram.BootstrapAdminID)
	assert.Equal(t, "images", cfg.Telegram.ImagesDir)
	assert.Equal(t, 5*time.Minute, cfg.Authoring.SessionTTL)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Broadcast.Workers)
	assert.Equal(t, 25.0, cfg.Broadcast.RatePerSecond)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
