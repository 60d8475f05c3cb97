package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./depot.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000.0, cfg.Depot.TankCapacityLiters)
	assert.Equal(t, "0 3 * * *", cfg.Audit.CronSchedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEPOT_PORT", "9090")
	t.Setenv("DEPOT_LOG_LEVEL", "debug")
	t.Setenv("DEPOT_TANK_CAPACITY", "2500")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2500.0, cfg.Depot.TankCapacityLiters)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Run("non-numeric capacity", func(t *testing.T) {
		t.Setenv("DEPOT_TANK_CAPACITY", "lots")
		_, err := config.Load("")
		assert.Error(t, err)
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("DEPOT_LOG_LEVEL", "verbose")
		_, err := config.Load("")
		assert.Error(t, err)
	})

	t.Run("non-positive capacity", func(t *testing.T) {
		t.Setenv("DEPOT_TANK_CAPACITY", "0")
		_, err := config.Load("")
		assert.Error(t, err)
	})
}
