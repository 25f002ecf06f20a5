package models

import (
	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/analysis"
	"sentiment-backtest/internal/backtest"
)

// BacktestResponse represents the response from a backtest
type BacktestResponse struct {
	ID           string                  `json:"id"`
	Status       string                  `json:"status"`
	Summary      analysis.Summary        `json:"summary"`
	PeriodErrors []PeriodErrorInfo       `json:"period_errors,omitempty"`
	Ledger       []backtest.LedgerRecord `json:"ledger,omitempty"`
}

// PeriodErrorInfo describes a skipped period
type PeriodErrorInfo struct {
	Index int    `json:"index"`
	Date  string `json:"date"`
	Error string `json:"error"`
}

// LedgerResponse is returned by GET /backtest/:id/ledger
type LedgerResponse struct {
	ID         string                  `json:"id"`
	Instrument string                  `json:"instrument"`
	Policy     string                  `json:"policy"`
	Ledger     []backtest.LedgerRecord `json:"ledger"`
}

// BatchResponse represents the response from a batch run
type BatchResponse struct {
	Status   string                     `json:"status"`
	Summary  map[string]decimal.Decimal `json:"summary"`
	RunIDs   map[string]string          `json:"run_ids"`
	Ranking  []analysis.Ranked          `json:"ranking"`
	Failures []FailureInfo              `json:"failures,omitempty"`
}

// FailureInfo explains why an instrument is missing from a batch summary
type FailureInfo struct {
	Instrument string `json:"instrument"`
	Error      string `json:"error"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
