package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration from env.
type Config struct {
	// DataDir is the store root. DAYSTORE_DIR, default ~/.daystore.
	DataDir string `validate:"required"`
	// LogLevel: debug | info | warn | error. LOG_LEVEL.
	LogLevel string `validate:"oneof=debug info warn error"`
	// AlphaVantageKeys come from ALPHAVANTAGE_API_KEYS (comma separated)
	// or ALPHAVANTAGE_API_KEY. Empty disables the adapter.
	AlphaVantageKeys []string
	// FundQuoteBaseURL configures the fund-data endpoint.
	// FUNDQUOTE_BASE_URL. Empty disables the adapter.
	FundQuoteBaseURL string `validate:"omitempty,url"`
	// Workers caps import concurrency. IMPORT_WORKERS.
	Workers int `validate:"min=1,max=64"`
	// MaxAttempts is the per-item attempt ceiling for transient fetch
	// errors. IMPORT_ATTEMPTS.
	MaxAttempts int `validate:"min=1,max=10"`
	// FetchTimeoutSec bounds one adapter call. FETCH_TIMEOUT_SEC.
	FetchTimeoutSec int `validate:"min=1,max=3600"`
}

// LoadConfig reads config from environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DataDir:          getEnv("DAYSTORE_DIR", defaultDataDir()),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AlphaVantageKeys: parseAlphaVantageKeys(),
		FundQuoteBaseURL: os.Getenv("FUNDQUOTE_BASE_URL"),
		Workers:          getEnvInt("IMPORT_WORKERS", 4),
		MaxAttempts:      getEnvInt("IMPORT_ATTEMPTS", 3),
		FetchTimeoutSec:  getEnvInt("FETCH_TIMEOUT_SEC", 120),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daystore"
	}
	return filepath.Join(home, ".daystore")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseAlphaVantageKeys() []string {
	s := os.Getenv("ALPHAVANTAGE_API_KEYS")
	if s == "" {
		s = os.Getenv("ALPHAVANTAGE_API_KEY")
	}
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// IndicesDir returns the overlay directory for user-defined indices.
func (c *Config) IndicesDir() string {
	return filepath.Join(c.DataDir, "indices")
}
