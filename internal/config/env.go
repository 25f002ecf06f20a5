package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BACKTEST_"

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays BACKTEST_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if v := getEnv("STARTING_BALANCE", ""); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%sSTARTING_BALANCE: %w", EnvPrefix, err)
		}
		c.StartingBalance = &d
	}

	c.Strategy.Name = getEnv("STRATEGY", c.Strategy.Name)

	c.Data.Source = getEnv("DATA_SOURCE", c.Data.Source)
	c.Data.Dir = getEnv("DATA_DIR", c.Data.Dir)
	c.Data.DBPath = getEnv("DB_PATH", c.Data.DBPath)
	c.Data.BaseURL = getEnv("PRICE_API_URL", c.Data.BaseURL)
	c.Data.APIKey = getEnv("PRICE_API_KEY", c.Data.APIKey)
	c.Data.RatePerSecond = getEnvFloat("PRICE_API_RATE", c.Data.RatePerSecond)
	c.Data.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", c.Data.FetchTimeout)
	c.Data.CacheTTL = getEnvDuration("CACHE_TTL", c.Data.CacheTTL)

	c.Sentiment.Source = getEnv("SENTIMENT_SOURCE", c.Sentiment.Source)
	c.Sentiment.File = getEnv("SENTIMENT_FILE", c.Sentiment.File)
	if v := getEnv("SENTIMENT_CONSTANT", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSENTIMENT_CONSTANT: %w", EnvPrefix, err)
		}
		c.Sentiment.Constant = &f
	}
	c.Sentiment.Timeout = getEnvDuration("SENTIMENT_TIMEOUT", c.Sentiment.Timeout)

	if v := getEnv("INSTRUMENTS", ""); v != "" {
		c.Batch.Instruments = splitAndTrim(v)
	}
	c.Batch.StartDate = getEnv("START_DATE", c.Batch.StartDate)
	c.Batch.EndDate = getEnv("END_DATE", c.Batch.EndDate)
	c.Batch.Workers = getEnvInt("WORKERS", c.Batch.Workers)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
