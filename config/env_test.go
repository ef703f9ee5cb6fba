package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visualoscart/payroll-engine/generic"
)

func TestLoadEnv_Defaults(t *testing.T) {
	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", env.Addr())
	assert.Equal(t, "oscart.db", env.DBPath)
	assert.Equal(t, generic.CurrencyEUR, env.DefaultCurrency())
	assert.False(t, env.SchedulerEnabled)
	assert.Equal(t, time.Hour, env.SchedulerInterval)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, env.AllowedOrigins())
	assert.True(t, env.IsLocal())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("OSCART_HTTP_PORT", "9000")
	t.Setenv("OSCART_DB_PATH", ":memory:")
	t.Setenv("OSCART_CURRENCY", "usd")
	t.Setenv("OSCART_SCHEDULER_ENABLED", "true")
	t.Setenv("OSCART_SCHEDULER_INTERVAL", "15m")
	t.Setenv("OSCART_CORS_ORIGINS", "http://localhost:3000, https://oscart.io")
	t.Setenv("OSCART_LOG_LEVEL", "warn")

	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", env.Addr())
	assert.Equal(t, ":memory:", env.DBPath)
	assert.Equal(t, generic.CurrencyUSD, env.DefaultCurrency())
	assert.True(t, env.SchedulerEnabled)
	assert.Equal(t, 15*time.Minute, env.SchedulerInterval)
	assert.Equal(t, []string{"http://localhost:3000", "https://oscart.io"}, env.AllowedOrigins())
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
}

func TestLoadEnv_RejectsIssueDay(t *testing.T) {
	t.Setenv("OSCART_ISSUE_DAY", "31")

	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel_FallsBackToInfo(t *testing.T) {
	var nilEnv *BaseEnv
	assert.Equal(t, slog.LevelInfo, nilEnv.SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&BaseEnv{LogLevel: "chatty"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (&BaseEnv{LogLevel: "debug"}).SlogLevel())
}
