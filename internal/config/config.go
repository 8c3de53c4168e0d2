package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	MigrationsDir string
	CORSOrigin    string
	Debounce      time.Duration
	ThreadTimeout time.Duration
}

func Load() Config {
	return Config{
		Addr:          getenv("SUGGEST_ADDR", ":8788"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		RedisURL:      getenv("REDIS_URL", ""),
		MigrationsDir: getenv("SUGGEST_MIGRATIONS_DIR", "./db/migrations"),
		CORSOrigin:    getenv("SUGGEST_CORS_ORIGIN", "*"),
		Debounce:      time.Duration(getenvInt("SUGGEST_DEBOUNCE_MS", 1500)) * time.Millisecond,
		ThreadTimeout: time.Duration(getenvInt("SUGGEST_THREAD_TIMEOUT_MS", 10000)) * time.Millisecond,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
