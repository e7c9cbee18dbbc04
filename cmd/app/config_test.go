package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/internal/service"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  host: db
  name: meowchi
telegramAuth:
  telegramBotToken: "123:abc"
  debugMode: true
meow:
  tapCap: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("APP_MEOW_DAILYQUOTA", "5")
	t.Setenv("APP_DATABASE_PASSWORD", "secret")

	cfg, err := loadConfig(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, repository.DriverPgx, cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Database.LockTimeout)
	assert.True(t, cfg.TelegramAuth.DebugMode)
	assert.Equal(t, "123:abc", cfg.TelegramAuth.TelegramBotToken)

	assert.Equal(t, 10, cfg.Meow.TapCap)
	assert.Equal(t, 5, cfg.Meow.DailyQuota)
	assert.Equal(t, 220*time.Millisecond, cfg.Meow.ThrottleWindow)
	assert.Equal(t, service.ThrottleMemory, cfg.Meow.ThrottleBackend)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(viper.New(), t.TempDir())
	assert.Error(t, err)
}
