package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "libtrack_session", cfg.SessionCookieName)
}

func TestConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_DSN", "host=localhost dbname=libtrack")
	t.Setenv("PAGE_SIZE", "10")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "host=localhost dbname=libtrack", cfg.DatabaseDSN)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestConfigRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigRejectsNonPositivePageSize(t *testing.T) {
	t.Setenv("PAGE_SIZE", "0")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
