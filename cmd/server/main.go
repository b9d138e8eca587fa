package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"congregation_backend/internal/app"
	"congregation_backend/internal/infra/config"
	idb "congregation_backend/internal/infra/database"
	"congregation_backend/internal/infra/httpapi"
	"congregation_backend/internal/infra/logger"
	"congregation_backend/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	orgRepo := idb.NewPostgresOrganizationRepository(db)
	congregantRepo := idb.NewPostgresCongregantRepository(db)
	automationRepo := idb.NewPostgresAutomationRepository(db)
	dispatchRepo := idb.NewPostgresDispatchRepository(db)

	// Initialize Services
	orgService := app.NewOrganizationService(orgRepo)
	congregantService := app.NewCongregantService(congregantRepo)
	automationService := app.NewAutomationService(automationRepo, log)
	dispatchService := app.NewDispatchService(dispatchRepo, log, cfg.DispatchBatchLimit)

	// Initialize DispatchScheduler
	dispatchScheduler := scheduler.NewDispatchScheduler(dispatchService, log, cfg.DispatchCronSpec)
	if err := dispatchScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start dispatch scheduler: %v", err)
	}

	// Initialize HTTP API
	api := &httpapi.API{
		Organizations: orgService,
		Congregants:   congregantService,
		Automations:   automationService,
		Dispatch:      dispatchService,
		Logger:        log,
	}
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // dispatch trigger can take a while under backlog
	}

	go func() {
		log.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	dispatchScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
	log.Info("Application shut down gracefully.")
}
