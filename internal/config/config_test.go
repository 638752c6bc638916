package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*24*time.Hour, cfg.Token.TTL)
	assert.Empty(t, cfg.Token.Secret)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.HideInternalErrors)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback")
	t.Setenv("POSTGRES_DSN", "postgres://primary")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("JWT_SECRET", strings.Repeat("k", 64))
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_CONN_MAX_LIFETIME", "1m")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("HIDE_INTERNAL_ERRORS", "TRUE")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "postgres://primary", cfg.PostgresDSN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Hour, cfg.Token.TTL)
	assert.Len(t, cfg.Token.Secret, 64)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.MigrateOnStart)
	assert.True(t, cfg.HideInternalErrors)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("TOKEN_TTL", "forever")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*24*time.Hour, cfg.Token.TTL)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.Secret = "short"
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--postgres-dsn is required")
	assert.Contains(t, err.Error(), "at least 60 characters")
	assert.Contains(t, err.Error(), `unknown log format "xml"`)
}
