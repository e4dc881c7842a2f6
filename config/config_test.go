package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "session", cfg.Mode)
	assert.Equal(t, 5*time.Second, cfg.RelayTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MODE", "global")
	t.Setenv("RELAY_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "global", cfg.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.RelayTimeout)
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	t.Setenv("MODE", "federated")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODE")
}
