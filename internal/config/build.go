package config

import (
	"fmt"
	"log/slog"

	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/data"
	"sentiment-backtest/internal/sentiment"
	"sentiment-backtest/internal/strategy"
)

// Policy builds the configured decision policy.
func (c *Config) Policy() (strategy.Policy, error) {
	return strategy.New(c.Strategy.Name, c.Strategy.Params)
}

// EngineConfig is the simulator configuration.
func (c *Config) EngineConfig() backtest.Config {
	return backtest.Config{
		StartingBalance:  *c.StartingBalance,
		Indicators:       c.Indicators,
		SentimentTimeout: c.Sentiment.Timeout,
	}
}

// SentimentProvider builds the configured sentiment source.
func (c *Config) SentimentProvider() (sentiment.Provider, error) {
	switch c.Sentiment.Source {
	case SentimentConstant:
		return sentiment.Constant(*c.Sentiment.Constant), nil
	case SentimentTable:
		t, err := sentiment.LoadTable(c.Sentiment.File)
		if err != nil {
			return nil, err
		}
		if c.Sentiment.Default != nil {
			t = t.WithFallback(*c.Sentiment.Default)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown sentiment.source %q", c.Sentiment.Source)
	}
}

// PriceSource builds the configured price source, wrapped in a TTL cache when
// data.cache_ttl is set. The returned close function releases resources held
// by the source (the SQLite handle) and is never nil.
func (c *Config) PriceSource(l *slog.Logger) (src data.Source, closeFn func() error, err error) {
	closeFn = func() error { return nil }

	switch c.Data.Source {
	case SourceCSV:
		src = data.NewCSVDir(c.Data.Dir)
	case SourceSQLite:
		store, err := data.OpenSQLite(c.Data.DBPath, l)
		if err != nil {
			return nil, closeFn, err
		}
		src, closeFn = store, store.Close
	case SourceAPI:
		src = data.NewPriceAPIClient(c.Data.APIKey, c.Data.BaseURL, data.PriceAPIOptions{
			Timeout:       c.Data.FetchTimeout,
			RatePerSecond: c.Data.RatePerSecond,
			Logger:        l,
		})
	default:
		return nil, closeFn, fmt.Errorf("unknown data.source %q", c.Data.Source)
	}

	if c.Data.CacheTTL > 0 {
		src = data.NewCachedSource(src, c.Data.CacheTTL, l)
	}
	return src, closeFn, nil
}

// Instruments returns batch.instruments followed by the symbols of
// batch.universe_file, if set.
func (c *Config) Instruments() ([]string, error) {
	out := append([]string(nil), c.Batch.Instruments...)
	if c.Batch.UniverseFile != "" {
		u, err := data.LoadUniverse(c.Batch.UniverseFile)
		if err != nil {
			return nil, err
		}
		out = append(out, u.Symbols()...)
	}
	return out, nil
}
