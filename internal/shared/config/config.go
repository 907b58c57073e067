package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	DBDSN     string
	RedisAddr string

	DBTimeout      time.Duration // per datastore round trip
	OutboxInterval time.Duration
	ReconcileAfter time.Duration // checkout age before the reconciler touches it
}

// Load reads .env (if present) then the environment. Only DB_DSN is required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:           getEnv("ADDR", ":8080"),
		DBDSN:          os.Getenv("DB_DSN"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		DBTimeout:      getDuration("DB_TIMEOUT", 3*time.Second),
		OutboxInterval: getDuration("OUTBOX_INTERVAL", 5*time.Second),
		ReconcileAfter: getDuration("RECONCILE_AFTER", 10*time.Minute),
	}
	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN environment variable is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
