/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Visual Oscart payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load OSCART_* environment (config.LoadEnv)
  2. Apply command-line overrides
  3. Configure slog
  4. Initialize SQLite store
  5. Create issuer, API handler and router
  6. Start the payroll scheduler (if enabled)
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -db      SQLite database path. Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  OSCART_DB_PATH=./data/oscart.db ./server
  OSCART_SCHEDULER_ENABLED=true OSCART_LOG_LEVEL=debug ./server -port=3000

SEE ALSO:
  - config/env.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visualoscart/payroll-engine/api"
	"github.com/visualoscart/payroll-engine/config"
	"github.com/visualoscart/payroll-engine/payroll"
	"github.com/visualoscart/payroll-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	// Flags
	port := flag.String("port", env.HTTPPort, "HTTP server port")
	dbPath := flag.String("db", env.DBPath, "SQLite database path")
	flag.Parse()
	env.HTTPPort = *port
	env.DBPath = *dbPath

	logger := newLogger(env)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(env.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	issuer := payroll.NewIssuer(store, store, store,
		payroll.WithCurrency(env.DefaultCurrency()),
		payroll.WithLogger(logger),
	)

	handler := api.NewHandler(store, issuer)
	handler.Currency = env.DefaultCurrency()
	handler.Logger = logger

	scheduler := api.NewPayrollScheduler(issuer, logger)
	scheduler.Enabled = env.SchedulerEnabled
	scheduler.CheckInterval = env.SchedulerInterval
	scheduler.IssueDay = env.IssueDay
	handler.Scheduler = scheduler

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: env.AllowedOrigins()})
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         env.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", env.DBPath, "env", env.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// newLogger logs text locally and JSON everywhere else.
func newLogger(env *config.Env) *slog.Logger {
	opts := &slog.HandlerOptions{Level: env.SlogLevel()}
	if env.IsLocal() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
