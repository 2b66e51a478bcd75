package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	// RedisURL is optional; without it session changes stay on this instance.
	RedisURL string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	CORSOrigins []string
}

// ClientConfig is what the jobboard CLI needs.
type ClientConfig struct {
	APIURL           string
	LogLevel         string
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:        getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),

		CORSOrigins: []string{getEnv("CORS_ORIGIN", "*")},
	}, nil
}

func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	attempts, err := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "4"))
	if err != nil || attempts < 1 {
		attempts = 4
	}

	return &ClientConfig{
		APIURL:           getEnv("JOBBOARD_API_URL", "http://localhost:8080"),
		LogLevel:         getEnv("LOG_LEVEL", "warn"),
		RetryMaxAttempts: attempts,
		RetryBaseDelay:   getDuration("RETRY_BASE_DELAY", time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
