package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(0), cfg.Limits.TimeoutMS)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("CSPX_STORE", "tape")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsDiskWithoutPath(t *testing.T) {
	t.Setenv("CSPX_STORE", "disk")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CSPX_WORKERS", "4")
	t.Setenv("CSPX_TIMEOUT_MS", "1500")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, int64(1500), cfg.Limits.TimeoutMS)
}
