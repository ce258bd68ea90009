package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "billing-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "billing", cfg.Database.DBName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Scheduler.CheckInterval)
	assert.Equal(t, 0, cfg.Scheduler.SweepHour)
	assert.Equal(t, 5, cfg.Scheduler.SweepMinute)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, "billing-backend", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
}

func TestValidate_PoolSettings(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = 50
	cfg.Database.MaxOpenConns = 10

	err := cfg.validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidate_SweepTime(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Scheduler.SweepHour = 24

	require.Error(t, cfg.validate())
}

func TestValidate_ProductionRequiresPassword(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"
	cfg.Database.SSLMode = "require"

	err := cfg.validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

func TestValidate_ProductionRejectsWildcardCORS(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"
	cfg.HTTP.CORSAllowOrigins = []string{"*"}

	require.Error(t, cfg.validate())
}

func TestDSN_EscapesCredentials(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "billing",
		Password: "p@ss/word",
		DBName:   "billing",
		SSLMode:  "require",
	}

	dsn := db.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word")
}
