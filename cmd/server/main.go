/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the WFH request engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment variables)
  2. Initialize logger
  3. Initialize SQLite store
  4. Wire engine, sweep, API handler, router
  5. Start the auto-reject cron scheduler
  6. Start server with graceful shutdown

CONFIGURATION (environment, all optional):
  PORT                    HTTP server port (default: 8080)
  DATABASE_PATH           SQLite database path (default: ./data/wfh.db)
                          Use ":memory:" for in-memory database
  LOG_LEVEL               logrus level (default: info)
  ENVIRONMENT             development|staging|production (default: development)
  CRON_SPEC_AUTO_REJECT   Cron spec for the sweep (default: "0 0 * * *")
  CORS_ALLOWED_ORIGINS    Comma-separated origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the cron scheduler, wait for a running sweep
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/wfh-engine/api"
	"github.com/warp/wfh-engine/config"
	"github.com/warp/wfh-engine/logger"
	"github.com/warp/wfh-engine/store/sqlite"
	"github.com/warp/wfh-engine/wfh"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg)

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Wire the engine and sweep
	engine := wfh.NewEngine(store, store, log)
	sweep := &wfh.AutoRejectSweep{Store: store, Log: log}

	handler := api.NewHandler(engine, sweep, store, store, log)
	router := api.NewRouter(handler, cfg.CORSAllowedOrigins)

	scheduler, err := api.NewSweepScheduler(cfg.CronSpecAutoReject, sweep, log)
	if err != nil {
		log.WithError(err).Fatal("invalid CRON_SPEC_AUTO_REJECT")
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
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
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
