package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported storage backends.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int
	AppEnv     string
	LogLevel   string

	DatabaseDriver string
	DatabasePath   string // SQLite file
	MongoURI       string
	MongoDatabase  string

	HashSecret   string // HMAC secret for password and session hashes
	CookieDomain string

	CORSAllowedOrigins []string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	cfg := &Config{
		ServerPort:         port,
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabasePath:       getEnv("DATABASE_PATH", "./accountd.db"),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDatabase:      getEnv("MONGO_DATABASE", "accountd"),
		HashSecret:         getEnv("HASH_SECRET", ""),
		CookieDomain:       getEnv("COOKIE_DOMAIN", "localhost"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
// An empty variable counts as unset.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
