/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the depot engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment (.env supported)
  2. Build the zap logger
  3. Initialize SQLite store (seeds the tank row on first run)
  4. Wire the engine, API handler, router, and audit scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  DEPOT_PORT, DEPOT_DB, DEPOT_LOG_LEVEL, DEPOT_TANK_CAPACITY,
  DEPOT_AUDIT_SCHEDULE. See config/config.go. The -env flag points at an
  optional env file for local runs.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  DEPOT_DB=./data/depot.db ./server

  # Run with in-memory database
  DEPOT_DB=":memory:" ./server

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/depot-engine/api"
	"github.com/warp/depot-engine/config"
	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/ledger"
	"github.com/warp/depot-engine/logger"
	"github.com/warp/depot-engine/store/sqlite"
)

func main() {
	envFile := flag.String("env", "", "optional env file path")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New(cfg.Log.Level))
	defer log.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path, ledger.NewQuantity(cfg.Depot.TankCapacityLiters))
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Wire the engine and API
	eng := engine.New(store, logger.Named(log, "engine"))
	handler := api.NewHandler(eng, logger.Named(log, "api"))
	router := api.NewRouter(handler)

	// Nightly invariant audit
	sched, err := api.NewScheduler(eng, cfg.Audit.CronSchedule, logger.Named(log, "audit"))
	if err != nil {
		log.Fatal("failed to configure scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("db", cfg.DB.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
