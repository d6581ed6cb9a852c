package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API   APIConfig
	Cache CacheConfig
	Store StoreConfig
	Log   LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type CacheConfig struct {
	// HotCapacity bounds the FIFO tier.
	HotCapacity int
	// LRUCapacity and DefaultTTL configure the timed LRU tier.
	LRUCapacity int
	DefaultTTL  time.Duration
}

type StoreConfig struct {
	// Path of the sqlite file backing the offline store. ":memory:" gives an
	// ephemeral store.
	Path string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL: getEnv("API_BASE_URL", "https://reqres.in/api"),
			Timeout: getDurationEnv("API_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			HotCapacity: getIntEnv("CACHE_HOT_CAPACITY", 50),
			LRUCapacity: getIntEnv("CACHE_LRU_CAPACITY", 100),
			DefaultTTL:  getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		Store: StoreConfig{
			Path: getEnv("STORE_PATH", "datakit.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
