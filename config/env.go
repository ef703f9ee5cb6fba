// Package config loads server settings from OSCART_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/visualoscart/payroll-engine/generic"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// Comma-separated list of allowed CORS origins. "*" turns off
	// credentialed requests.
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

type StorageEnv struct {
	DBPath string `envconfig:"DB_PATH" default:"oscart.db"`
}

type PayrollEnv struct {
	Currency          string        `envconfig:"CURRENCY" default:"EUR"`
	SchedulerEnabled  bool          `envconfig:"SCHEDULER_ENABLED" default:"false"`
	SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1h"`
	// Issuance runs once this day of the month has been reached.
	IssueDay int `envconfig:"ISSUE_DAY" default:"28"`
}

type Env struct {
	BaseEnv
	StorageEnv
	PayrollEnv
}

const namespace = "OSCART"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if env.IssueDay < 1 || env.IssueDay > 28 {
		return nil, fmt.Errorf("failed to load env: %s_ISSUE_DAY must be within 1..28, got %d", namespace, env.IssueDay)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr is the listen address for the HTTP server.
func (e *BaseEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}

func (e *BaseEnv) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(e.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (e *BaseEnv) IsLocal() bool {
	return e.Env == "local"
}

func (e *PayrollEnv) DefaultCurrency() generic.Currency {
	return generic.Currency(strings.ToUpper(e.Currency))
}
