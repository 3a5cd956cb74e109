package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "eventdesk")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9000")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("BROKER_BREAKER_OPEN_FOR", "1m")
	t.Setenv("BROKER_DIAL_TIMEOUT", "500ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AMQP_URL", "amqp://amqp-url/")
	t.Setenv("RABBITMQ_URL", "amqp://rabbit-url/")
	t.Setenv("BROKER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "app", cfg.DB.User)
	assert.Equal(t, "3306", cfg.DB.Port, "default kept")
	assert.Equal(t, 5, cfg.Auth.AccessTTLMin)
	assert.Equal(t, 30, cfg.Auth.RefreshTTLDays)
	assert.Equal(t, time.Minute, cfg.Broker.BreakerOpenFor)
	assert.Equal(t, 500*time.Millisecond, cfg.Broker.DialTimeout)
	assert.Equal(t, 256, cfg.Broker.Backlog, "default kept")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "amqp://rabbit-url/", cfg.Broker.URL)
	assert.False(t, cfg.Broker.Enabled)
}

func TestLoadFromYAMLFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
  export_timezone: Asia/Kolkata
  allowed_origins:
    - https://desk.example
log:
  level: debug
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"https://desk.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides file")
	assert.Equal(t, "Asia/Kolkata", cfg.ExportLocation().String())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestValidateRanges(t *testing.T) {
	cfg := defaults()
	cfg.DB = DatabaseConfig{User: "u", Host: "h", Port: "1", Name: "n"}
	cfg.Auth.JWTSecret = "x"
	require.NoError(t, cfg.Validate())

	cfg.Auth.BcryptCost = 2
	cfg.Server.ExportTimezone = "Not/AZone"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BCRYPT_COST")
	assert.Contains(t, err.Error(), "EXPORT_TIMEZONE")
}
