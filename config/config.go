package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pnlEngine/internal/adapters/logger" // Import the logger package for LogLevel
)

// Mark price sources.
const (
	MarkSourceNone    = "none"
	MarkSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// HTTP API
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Reporting
	Currency                   string
	ShortTermTaxRate           float64 // percent, e.g. 15 for 15%
	LongTermTaxRate            float64 // percent
	HoldingPeriodThresholdDays int
	StrictMarks                bool
	RiskFreeRate               float64 // annual, as a fraction
	CapitalBase                float64
	Location                   *time.Location
	TopNBreakdown              int
	MatchWorkers               int

	// Mark prices
	MarkSource string
	APIKey     string
	SecretKey  string
	IsTestnet  bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/pnl.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "json"))

	// HTTP API
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	shutdownSeconds := getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if shutdownSeconds <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	// Reporting
	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", "USD"))

	cfg.ShortTermTaxRate, err = getEnvAsFloatRequired("SHORT_TERM_TAX_RATE", 15.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SHORT_TERM_TAX_RATE: %v", err))
	} else if cfg.ShortTermTaxRate < 0 || cfg.ShortTermTaxRate > 100 {
		errs = append(errs, "SHORT_TERM_TAX_RATE must be between 0 and 100")
	}

	cfg.LongTermTaxRate, err = getEnvAsFloatRequired("LONG_TERM_TAX_RATE", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LONG_TERM_TAX_RATE: %v", err))
	} else if cfg.LongTermTaxRate < 0 || cfg.LongTermTaxRate > 100 {
		errs = append(errs, "LONG_TERM_TAX_RATE must be between 0 and 100")
	}

	cfg.HoldingPeriodThresholdDays, err = getEnvAsIntRequired("LONG_TERM_DAYS", 365)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LONG_TERM_DAYS: %v", err))
	} else if cfg.HoldingPeriodThresholdDays <= 0 {
		errs = append(errs, "LONG_TERM_DAYS must be positive")
	}

	cfg.StrictMarks = getEnvAsBool("STRICT_MARKS", false)

	cfg.RiskFreeRate, err = getEnvAsFloatRequired("RISK_FREE_RATE", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	} else if cfg.RiskFreeRate < 0 || cfg.RiskFreeRate >= 1 {
		errs = append(errs, "RISK_FREE_RATE must be a fraction between 0.0 and 1.0")
	}

	cfg.CapitalBase, err = getEnvAsFloatRequired("CAPITAL_BASE", 100000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CAPITAL_BASE: %v", err))
	} else if cfg.CapitalBase <= 0 {
		errs = append(errs, "CAPITAL_BASE must be positive")
	}

	tz := getEnv("TIMEZONE", "UTC")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEZONE %q: %v", tz, err))
	}

	cfg.TopNBreakdown = getEnvAsInt("TOP_N_BREAKDOWN", 10)
	if cfg.TopNBreakdown < 0 {
		errs = append(errs, "TOP_N_BREAKDOWN cannot be negative")
	}

	cfg.MatchWorkers = getEnvAsInt("MATCH_WORKERS", 1)
	if cfg.MatchWorkers < 1 {
		errs = append(errs, "MATCH_WORKERS must be at least 1")
	}

	// Mark prices
	cfg.MarkSource = strings.ToLower(getEnv("MARK_SOURCE", MarkSourceNone))
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	switch cfg.MarkSource {
	case MarkSourceNone, MarkSourceBinance:
	default:
		errs = append(errs, fmt.Sprintf("MARK_SOURCE must be %q or %q", MarkSourceNone, MarkSourceBinance))
	}

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

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
