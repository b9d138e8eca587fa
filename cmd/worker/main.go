package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"congregation_backend/internal/app"
	"congregation_backend/internal/infra/config"
	idb "congregation_backend/internal/infra/database"
	"congregation_backend/internal/infra/logger"
	"congregation_backend/internal/infra/queue"
)

// The delivery worker drains PENDING dispatch log entries and hands them to
// the delivery gateway queue. Run as many replicas as needed; the skip-locked
// claim keeps them from double-sending.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	if cfg.AmqpURL == "" {
		log.Fatal("FATAL: AMQP_URL is not set")
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()

	publisher, err := queue.NewAMQPPublisher(cfg.AmqpURL, cfg.DeliveryQueue)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to AMQP broker: %v", err)
	}
	defer publisher.Close()
	log.Infof("Connected to AMQP broker, queue %q", cfg.DeliveryQueue)

	deliveryRepo := idb.NewPostgresDeliveryRepository(db)
	deliveryService := app.NewDeliveryService(deliveryRepo, publisher, log, cfg.DeliveryBatchLimit)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.DeliveryPollInterval)
	defer ticker.Stop()

	log.Infof("Delivery worker running, polling every %s", cfg.DeliveryPollInterval)
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), cfg.DeliveryPollInterval)
			if _, err := deliveryService.RunDeliveryPass(ctx); err != nil {
				log.Errorf("Delivery pass failed: %v", err)
			}
			cancel()
		case <-quit:
			log.Info("Delivery worker shutting down.")
			return
		}
	}
}
