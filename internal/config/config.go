package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/strategy"
)

// Price data sources.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceAPI    = "api"
)

// Sentiment sources.
const (
	SentimentConstant = "constant"
	SentimentTable    = "table"
)

const (
	DefaultSentimentScore = 0.5
	DefaultDataDir        = "data"
	DefaultOutputDir      = "data"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	StartingBalance *decimal.Decimal `yaml:"starting_balance"`
	Indicators      indicator.Params `yaml:"indicators"`

	// Optional: load strategy settings from a separate YAML (e.g. configs/strategies/*.yaml).
	// If both StrategyFile and Strategy are provided, Strategy overrides StrategyFile.
	StrategyFile string         `yaml:"strategy_file"`
	Strategy     StrategyConfig `yaml:"strategy"`

	Data      DataConfig      `yaml:"data"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Batch     BatchConfig     `yaml:"batch"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type DataConfig struct {
	Source        string        `yaml:"source"`
	Dir           string        `yaml:"dir"`
	DBPath        string        `yaml:"db_path"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type SentimentConfig struct {
	Source   string        `yaml:"source"`
	Constant *float64      `yaml:"constant"`
	File     string        `yaml:"file"`
	Default  *float64      `yaml:"default"`
	Timeout  time.Duration `yaml:"timeout"`
}

type BatchConfig struct {
	Instruments  []string `yaml:"instruments"`
	UniverseFile string   `yaml:"universe_file"`
	StartDate    string   `yaml:"start_date"`
	EndDate      string   `yaml:"end_date"`
	Workers      int      `yaml:"workers"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (optional), fills defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads, merges and applies defaults and environment overrides,
// but does not validate. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		c.resolvePaths(filepath.Dir(path))
	}

	// If strategy_file is set, load it and merge in any explicit overrides from c.Strategy.
	if c.StrategyFile != "" {
		loaded, err := loadStrategyFile(c.StrategyFile)
		if err != nil {
			return nil, err
		}
		c.Strategy = MergeStrategy(loaded, c.Strategy)
	}

	c.ApplyDefaults()
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// resolvePaths interprets relative file references as relative to the config
// file directory when such a file exists, falling back to the path as given
// (relative to cwd).
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.StrategyFile, &c.Sentiment.File, &c.Batch.UniverseFile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		cand := filepath.Join(base, *p)
		if _, err := os.Stat(cand); err == nil {
			*p = cand
		}
	}
}

func (c *Config) ApplyDefaults() {
	if c.StartingBalance == nil {
		d := decimal.NewFromInt(10000)
		c.StartingBalance = &d
	}
	c.Indicators = c.Indicators.WithDefaults()
	if c.Strategy.Name == "" {
		c.Strategy.Name = strategy.BaselineName
	}
	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	if c.Data.Dir == "" {
		c.Data.Dir = DefaultDataDir
	}
	if c.Data.FetchTimeout == 0 {
		c.Data.FetchTimeout = 30 * time.Second
	}
	if c.Sentiment.Source == "" {
		c.Sentiment.Source = SentimentConstant
	}
	if c.Sentiment.Constant == nil {
		v := DefaultSentimentScore
		c.Sentiment.Constant = &v
	}
	if c.Sentiment.Timeout == 0 {
		c.Sentiment.Timeout = 5 * time.Second
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 4
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.StartingBalance == nil || c.StartingBalance.IsNegative() {
		return errors.New("starting_balance must be >= 0")
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators config invalid: %w", err)
	}
	// Validate strategy by constructing it; an unknown name is fatal before any run.
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("strategy config invalid: %w", err)
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return errors.New("data.dir is required for the csv source")
		}
	case SourceSQLite:
		if c.Data.DBPath == "" {
			return errors.New("data.db_path is required for the sqlite source")
		}
	case SourceAPI:
		if c.Data.BaseURL == "" {
			return errors.New("data.base_url is required for the api source")
		}
	default:
		return fmt.Errorf("unknown data.source %q (want %s, %s or %s)", c.Data.Source, SourceCSV, SourceSQLite, SourceAPI)
	}
	if c.Data.FetchTimeout < 0 || c.Data.CacheTTL < 0 || c.Data.RatePerSecond < 0 {
		return errors.New("data timeouts, cache_ttl and rate_per_second must be >= 0")
	}

	switch c.Sentiment.Source {
	case SentimentConstant:
		if c.Sentiment.Constant == nil {
			return errors.New("sentiment.constant is required for the constant source")
		}
	case SentimentTable:
		if c.Sentiment.File == "" {
			return errors.New("sentiment.file is required for the table source")
		}
	default:
		return fmt.Errorf("unknown sentiment.source %q (want %s or %s)", c.Sentiment.Source, SentimentConstant, SentimentTable)
	}
	if c.Sentiment.Timeout < 0 {
		return errors.New("sentiment.timeout must be >= 0")
	}

	if c.Batch.Workers < 0 {
		return errors.New("batch.workers must be >= 0")
	}
	if _, _, err := c.DateRange(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DateRange parses batch.start_date/end_date. Empty dates leave that side
// of the range open.
func (c *Config) DateRange() (start, end time.Time, err error) {
	if s := strings.TrimSpace(c.Batch.StartDate); s != "" {
		if start, err = model.ParseDay(s); err != nil {
			return start, end, fmt.Errorf("batch.start_date: %w", err)
		}
	}
	if s := strings.TrimSpace(c.Batch.EndDate); s != "" {
		if end, err = model.ParseDay(s); err != nil {
			return start, end, fmt.Errorf("batch.end_date: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return start, end, errors.New("batch.start_date must be before batch.end_date")
	}
	return start, end, nil
}

type strategyFileWrapper struct {
	Strategy StrategyConfig `yaml:"strategy"`
}

func loadStrategyFile(path string) (StrategyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StrategyConfig{}, err
	}
	var w strategyFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return StrategyConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return w.Strategy, nil
}

// MergeStrategy overlays override onto base: a non-empty name replaces the
// base name, and params are merged key by key.
// This is used when loading a strategy file and when applying request overrides.
func MergeStrategy(base, override StrategyConfig) StrategyConfig {
	out := StrategyConfig{Name: base.Name, Params: map[string]any{}}
	if override.Name != "" && !strings.EqualFold(override.Name, base.Name) {
		// Params of a different policy do not carry over.
		out.Name = override.Name
	} else {
		for k, v := range base.Params {
			out.Params[k] = v
		}
	}
	for k, v := range override.Params {
		out.Params[k] = v
	}
	return out
}
