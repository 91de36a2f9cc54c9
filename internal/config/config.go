package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBDriver      string // "postgres" | "sqlite"
	DSN           string
	JWTSecret     string
	RedisAddr     string
	NotifyChannel string
	NotifyTimeout time.Duration
	LogLevel      string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          getenv("API_ADDR", ":8080"),
		DBDriver:      getenv("DB_DRIVER", "postgres"),
		DSN:           getenv("DB_DSN", ""),
		JWTSecret:     getenv("JWT_SECRET", ""),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		NotifyChannel: getenv("NOTIFY_CHANNEL", "chat-events"),
		NotifyTimeout: time.Duration(getenvInt("NOTIFY_TIMEOUT_MS", 3000)) * time.Millisecond,
		LogLevel:      getenv("LOG_LEVEL", "info"),
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
