// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// ServerAddr is the listen address for the frontend REST API (e.g., ":8090").
	ServerAddr string

	// APIBaseURL is the base URL of the trading server REST API.
	APIBaseURL string

	// StreamBaseURL is the base URL of the trading server WebSocket endpoint
	// (e.g., "ws://localhost:8000"). The price stream path is appended to it.
	StreamBaseURL string

	// Pair is the instrument streamed for candle updates (e.g., "EUR_USD").
	Pair string

	// Timeframe is the candle timeframe streamed (e.g., "M5").
	Timeframe string

	// DataDir is the directory for durable local state (watchlist, theme).
	DataDir string

	// QuoteInterval is the price feed polling interval.
	QuoteInterval time.Duration

	// DashboardInterval is the dashboard polling interval.
	DashboardInterval time.Duration

	// Journal contains Kafka settings for the optional tick journal.
	Journal JournalConfig
}

// JournalConfig holds Kafka connection settings for the tick journal.
// The journal is disabled when Broker is empty.
type JournalConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic for journal entries.
	Topic string
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		ServerAddr:        getEnv("FXDASH_ADDR", ":8090"),
		APIBaseURL:        getEnv("FXDASH_API_URL", "http://localhost:8000"),
		StreamBaseURL:     getEnv("FXDASH_STREAM_URL", "ws://localhost:8000"),
		Pair:              getEnv("FXDASH_PAIR", "EUR_USD"),
		Timeframe:         getEnv("FXDASH_TIMEFRAME", "M5"),
		DataDir:           getEnv("FXDASH_DATA_DIR", "data"),
		QuoteInterval:     getEnvDuration("FXDASH_QUOTE_INTERVAL_MS", 2*time.Second),
		DashboardInterval: getEnvDuration("FXDASH_DASHBOARD_INTERVAL_MS", 5*time.Second),
		Journal: JournalConfig{
			Broker: getEnv("FXDASH_KAFKA_BROKER", ""),
			Topic:  getEnv("FXDASH_KAFKA_TOPIC", "fxdash_ticks"),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration returns the environment variable as a millisecond count
// or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvInt(key, 0)
	if ms <= 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
