package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"paperTrader/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Trading Parameters
	InitialBalance      decimal.Decimal // Cash balance given to new (and reset) accounts
	FeeRate             decimal.Decimal // Fee charged on every trade as a fraction of gross value (e.g., 0.0005)
	MaxPositionFraction decimal.Decimal // Maximum order size as a fraction of portfolio value (e.g., 0.2)

	// Pricing Feed
	QuoteBaseURL    string
	QuoteTimeout    time.Duration
	QuoteRetryCount int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Trading Parameters
	cfg.InitialBalance, err = getEnvAsDecimal("INITIAL_BALANCE", "1000000")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_BALANCE: %v", err))
	} else if !cfg.InitialBalance.IsPositive() {
		errs = append(errs, "INITIAL_BALANCE must be positive")
	}

	cfg.FeeRate, err = getEnvAsDecimal("FEE_RATE", "0.0005")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_RATE: %v", err))
	} else if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "FEE_RATE must be in [0.0, 1.0)")
	}

	cfg.MaxPositionFraction, err = getEnvAsDecimal("MAX_POSITION_FRACTION", "0.2")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_FRACTION: %v", err))
	} else if !cfg.MaxPositionFraction.IsPositive() || cfg.MaxPositionFraction.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, "MAX_POSITION_FRACTION must be in (0.0, 1.0]")
	}

	// Pricing Feed
	cfg.QuoteBaseURL = getEnv("QUOTE_BASE_URL", "http://localhost:8081")
	if cfg.QuoteBaseURL == "" {
		errs = append(errs, "QUOTE_BASE_URL must be set")
	}

	quoteTimeoutSeconds := getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 5)
	if quoteTimeoutSeconds <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be positive")
	}
	cfg.QuoteTimeout = time.Duration(quoteTimeoutSeconds) * time.Second

	cfg.QuoteRetryCount = getEnvAsInt("QUOTE_RETRY_COUNT", 2)
	if cfg.QuoteRetryCount < 0 {
		errs = append(errs, "QUOTE_RETRY_COUNT cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/paper_trader.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue string) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Defaults are compiled in and must parse
		return decimal.NewFromString(defaultValue)
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
