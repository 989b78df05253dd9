package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "companies_%d.csv", cfg.Input.Pattern)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "screener.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCREENER_DATA_DIR", "/data/registry")
	t.Setenv("SCREENER_STORE_DRIVER", "postgres")
	t.Setenv("SCREENER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/registry", cfg.DataDir)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))

	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	assert.Error(t, err)
}
