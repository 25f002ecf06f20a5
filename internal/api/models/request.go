package models

import (
	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/indicator"
)

// BacktestRequest represents a request to run a backtest for one instrument
type BacktestRequest struct {
	Symbol    string `json:"symbol" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD, inclusive
	EndDate   string `json:"end_date" binding:"required"`   // YYYY-MM-DD, exclusive

	// Optional overrides of the server configuration.
	Strategy        *StrategyConfig   `json:"strategy,omitempty"`
	StartingBalance *decimal.Decimal  `json:"starting_balance,omitempty"`
	Indicators      *indicator.Params `json:"indicators,omitempty"`
	Sentiment       *float64          `json:"sentiment,omitempty"` // constant score for every period

	Options *BacktestOptions `json:"options,omitempty"`
}

// StrategyConfig selects a policy and its parameters
type StrategyConfig struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// BacktestOptions represents additional backtest options
type BacktestOptions struct {
	IncludeLedger bool `json:"include_ledger"`
}

// BatchRequest represents a request to run one policy over many instruments
type BatchRequest struct {
	Instruments []string `json:"instruments" binding:"required,min=1"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`

	Strategy        *StrategyConfig  `json:"strategy,omitempty"`
	StartingBalance *decimal.Decimal `json:"starting_balance,omitempty"`
	Sentiment       *float64         `json:"sentiment,omitempty"`
	Workers         int              `json:"workers,omitempty"`
}
