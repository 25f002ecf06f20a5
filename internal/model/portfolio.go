package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PortfolioState is the account of a single simulation run.
// Balance and Position only change together, through Buy and Sell.
type PortfolioState struct {
	Balance  decimal.Decimal
	Position int

	// EntryPrice is the average cost of the held units; zero when flat.
	EntryPrice decimal.Decimal
}

func NewPortfolioState(startingBalance decimal.Decimal) (*PortfolioState, error) {
	s := &PortfolioState{Balance: startingBalance}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PortfolioState) Validate() error {
	if s.Balance.IsNegative() {
		return errors.New("balance must be >= 0")
	}
	if s.Position < 0 {
		return errors.New("position must be >= 0")
	}
	return nil
}

// Buy acquires one unit at price if the balance covers it.
// Returns false and leaves the state untouched otherwise.
func (s *PortfolioState) Buy(price decimal.Decimal) bool {
	if !price.IsPositive() || s.Balance.LessThan(price) {
		return false
	}
	cost := s.EntryPrice.Mul(decimal.NewFromInt(int64(s.Position))).Add(price)
	s.Position++
	s.Balance = s.Balance.Sub(price)
	s.EntryPrice = cost.Div(decimal.NewFromInt(int64(s.Position)))
	return true
}

// Sell disposes of one unit at price if any are held.
func (s *PortfolioState) Sell(price decimal.Decimal) bool {
	if s.Position <= 0 || !price.IsPositive() {
		return false
	}
	s.Position--
	s.Balance = s.Balance.Add(price)
	if s.Position == 0 {
		s.EntryPrice = decimal.Zero
	}
	return true
}

// Apply executes d at price and reports whether the state changed.
// Hold never changes state.
func (s *PortfolioState) Apply(d Decision, price decimal.Decimal) bool {
	switch d {
	case DecisionBuy:
		return s.Buy(price)
	case DecisionSell:
		return s.Sell(price)
	default:
		return false
	}
}

// Equity values the account at price: balance plus held units.
func (s PortfolioState) Equity(price decimal.Decimal) decimal.Decimal {
	return s.Balance.Add(price.Mul(decimal.NewFromInt(int64(s.Position))))
}
