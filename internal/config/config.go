package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	ClerkSecretKey     string
	ClerkWebhookSecret string
	MetricsUser        string
	MetricsPass        string
	PprofSecret        string
	LogFile            string
	LogLevel           string
	CatalogFile        string
	DimensionBaseline  int
	DBMaxConns         int32
	DBMinConns         int32

	// Warnings collects fallbacks taken while loading. Load runs before the
	// logger exists, so the caller logs them.
	Warnings []string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "No .env file found")
	}
	getInt := func(key string, fallback, floor int) int {
		v, warning := intEnv(key, fallback, floor)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		return v
	}

	cfg := &Config{
		Port:               getEnv("PORT", "3333"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ClerkSecretKey:     os.Getenv("CLERK_SECRET_KEY"),
		ClerkWebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),
		MetricsUser:        os.Getenv("METRICS_USER"),
		MetricsPass:        os.Getenv("METRICS_PASS"),
		PprofSecret:        os.Getenv("PPROF_SECRET"),
		LogFile:            getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CatalogFile:        os.Getenv("CATALOG_FILE"),
		DimensionBaseline:  getInt("DIMENSION_BASELINE", 5, 0),
		DBMaxConns:         int32(getInt("DB_MAX_CONNS", 25, 1)),
		DBMinConns:         int32(getInt("DB_MIN_CONNS", 5, 1)),
	}
	cfg.Warnings = warnings

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.ClerkSecretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		cfg.DBMinConns = cfg.DBMaxConns
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// intEnv parses key as an integer no smaller than floor. Anything else falls
// back and yields a warning.
func intEnv(key string, fallback, floor int) (int, string) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, ""
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		return fallback, fmt.Sprintf("Invalid %s=%q, using %d", key, raw, fallback)
	}
	return v, ""
}
