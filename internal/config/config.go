package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	DBLogLevel      string
	JWTSecret       string
	CORSOrigins     []string
	ExportBatchSize int
	ReleaseMode     bool
}

// Load reads configs/.env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBLogLevel:  getEnv("DB_LOG_LEVEL", "warn"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		ReleaseMode: os.Getenv("GIN_MODE") == "release",
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "postgres://" + getEnv("DB_USER", "postgres") + ":" + getEnv("DB_PASSWORD", "postgres") +
			"@" + getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") +
			"/" + getEnv("DB_NAME", "postgres") + "?sslmode=" + getEnv("DB_SSLMODE", "disable")
	}

	batch, err := strconv.Atoi(getEnv("EXPORT_BATCH_SIZE", "500"))
	if err != nil || batch <= 0 {
		return nil, fmt.Errorf("EXPORT_BATCH_SIZE must be a positive integer, got %q", os.Getenv("EXPORT_BATCH_SIZE"))
	}
	cfg.ExportBatchSize = batch

	if cfg.JWTSecret == "" {
		if cfg.ReleaseMode {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in release mode")
		}
		cfg.JWTSecret = "default_super_secret_key" // Development fallback only
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
