package config

import (
	"os"
	"time"
)

// Config carries the environment-supplied settings. Load it after godotenv
// has populated the process environment.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	TokenTTL      time.Duration
}

func Load() *Config {
	return &Config{
		Addr:          getenv("LISTEN_ADDR", ":8080"),
		PostgresDSN:   getenv("POSTGRES_DSN", "host=localhost user=user password=password dbname=questfeed port=5432 sslmode=disable"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      getduration("TOKEN_TTL", 72*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
