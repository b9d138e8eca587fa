package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL          string
	HTTPAddr             string
	AmqpURL              string
	DeliveryQueue        string
	LogLevel             string
	Environment          string
	DispatchCronSpec     string        // How often the dispatch pass is triggered
	DispatchBatchLimit   int           // Max automations claimed per pass
	DeliveryBatchLimit   int           // Max dispatch entries claimed per worker pass
	DeliveryPollInterval time.Duration // How often the worker polls for pending entries
	DBMaxOpenConns       int
	DBMaxIdleConns       int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	// Only the delivery worker needs AMQP; the API server tolerates it missing.
	cfg.AmqpURL = os.Getenv("AMQP_URL")

	cfg.DeliveryQueue = os.Getenv("DELIVERY_QUEUE")
	if cfg.DeliveryQueue == "" {
		cfg.DeliveryQueue = "greeting_deliveries"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.DispatchCronSpec = os.Getenv("DISPATCH_CRON_SPEC")
	if cfg.DispatchCronSpec == "" {
		cfg.DispatchCronSpec = "* * * * *" // Default: every minute
	}

	var err error
	cfg.DispatchBatchLimit, err = intFromEnv("DISPATCH_BATCH_LIMIT", 200)
	if err != nil {
		return nil, err
	}

	cfg.DeliveryBatchLimit, err = intFromEnv("DELIVERY_BATCH_LIMIT", 100)
	if err != nil {
		return nil, err
	}

	cfg.DBMaxOpenConns, err = intFromEnv("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}

	cfg.DBMaxIdleConns, err = intFromEnv("DB_MAX_IDLE_CONNS", 25)
	if err != nil {
		return nil, err
	}

	pollStr := os.Getenv("DELIVERY_POLL_INTERVAL")
	if pollStr == "" {
		cfg.DeliveryPollInterval = 10 * time.Second
	} else {
		cfg.DeliveryPollInterval, err = time.ParseDuration(pollStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DELIVERY_POLL_INTERVAL: %w", err)
		}
	}

	return cfg, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 1 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}
