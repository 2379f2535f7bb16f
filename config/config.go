package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// HTTP server configuration
	Port    string
	BaseURL string

	// Mongo configuration
	MongoURI string
	MongoDB  string

	// Redis configuration (card event streams)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (fetch throttle)
	MemcacheAddr string

	// Headless browser endpoint (browserless-compatible HTTP API)
	BrowserAddr string

	// Scraper configuration
	NavigationTimeout time.Duration
	FetchDelay        time.Duration
	BulkLimitMax      int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	navTimeout, _ := strconv.Atoi(getEnv("NAVIGATION_TIMEOUT_SECONDS", "30"))
	fetchDelay, _ := strconv.Atoi(getEnv("FETCH_DELAY_SECONDS", "2"))
	bulkMax, _ := strconv.Atoi(getEnv("BULK_LIMIT_MAX", "50"))

	return Config{
		Port:                 getEnv("PORT", "8080"),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8080"),
		MongoURI:             getEnv("MONGODB_URI", "mongodb://localhost:27017/cardscout"),
		MongoDB:              getEnv("MONGODB_DATABASE", "cardscout"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "cardevents"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BrowserAddr:          getEnv("BROWSER_ADDR", "http://localhost:3000"),
		NavigationTimeout:    time.Duration(navTimeout) * time.Second,
		FetchDelay:           time.Duration(fetchDelay) * time.Second,
		BulkLimitMax:         bulkMax,
		Environment:          getEnv("CARDWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable before startup
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI must not be empty")
	}
	if _, err := url.Parse(c.BrowserAddr); err != nil {
		return fmt.Errorf("BROWSER_ADDR is not a valid URL: %w", err)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("NAVIGATION_TIMEOUT_SECONDS must be positive")
	}
	if c.FetchDelay < 0 {
		return fmt.Errorf("FETCH_DELAY_SECONDS must not be negative")
	}
	if c.RedisStreamCount <= 0 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
