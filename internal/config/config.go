package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Logger   LoggerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Sync     SyncConfig
}

type LoggerConfig struct {
	Env string
}

type DatabaseConfig struct {
	Host     string
	Name     string
	User     string
	Password string
	Port     int
}

// CacheConfig locates the durable local caches (profiles, visits, session).
type CacheConfig struct {
	Dir string
}

type SyncConfig struct {
	FeedTTL        time.Duration
	HealthInterval time.Duration
	DesktopAlerts  bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return &Config{
		Logger: LoggerConfig{
			Env: getEnv("LOGGER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Name:     getEnv("POSTGRES_DB", "microtask"),
			User:     getEnv("POSTGRES_USER", "microtask"),
			Password: getEnv("POSTGRES_PASSWORD", "microtask"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
		},
		Cache: CacheConfig{
			Dir: getEnv("CACHE_DIR", defaultCacheDir()),
		},
		Sync: SyncConfig{
			FeedTTL:        getEnvDuration("FEED_TTL", 3*time.Minute),
			HealthInterval: getEnvDuration("HEALTH_INTERVAL", 30*time.Second),
			DesktopAlerts:  getEnvBool("DESKTOP_ALERTS", true),
		},
	}, nil
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "microtask")
	}
	return ".microtask-cache"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
