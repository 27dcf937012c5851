package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "data/pictograms", cfg.Storage.Root)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.Schedule)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  log_level: debug
database:
  driver: postgres
  host: db.internal
  name: pictobank
  user: picto
storage:
  root: /srv/pictograms
auth:
  jwt_secret: test-secret
  token_ttl: 1h
maintenance:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "/srv/pictograms", cfg.Storage.Root)
	require.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	require.False(t, cfg.Maintenance.Enabled)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestConfigValidatePortRange(t *testing.T) {
	cfg := Config{
		Server:  ServerConfig{Port: 0},
		Storage: StorageConfig{Root: "data"},
		Auth:    AuthConfig{JWTSecret: "x"},
	}
	require.Error(t, cfg.Validate())

	cfg.Server.Port = 8080
	require.NoError(t, cfg.Validate())
}
