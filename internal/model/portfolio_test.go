package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPortfolioState_BuySell(t *testing.T) {
	s, err := NewPortfolioState(dec("25"))
	if err != nil {
		t.Fatalf("NewPortfolioState: %v", err)
	}

	if !s.Buy(dec("10")) {
		t.Fatal("first buy should fill")
	}
	if !s.Buy(dec("12")) {
		t.Fatal("second buy should fill")
	}
	if s.Buy(dec("10")) {
		t.Fatal("third buy should not fill with balance 3")
	}
	if !s.Balance.Equal(dec("3")) || s.Position != 2 {
		t.Fatalf("got balance=%s position=%d, want 3/2", s.Balance, s.Position)
	}
	if !s.EntryPrice.Equal(dec("11")) {
		t.Errorf("entry price = %s, want 11", s.EntryPrice)
	}

	if !s.Sell(dec("15")) || !s.Sell(dec("15")) {
		t.Fatal("sells should fill while units are held")
	}
	if s.Sell(dec("15")) {
		t.Fatal("sell with no position should not fill")
	}
	if !s.Balance.Equal(dec("33")) || s.Position != 0 {
		t.Fatalf("got balance=%s position=%d, want 33/0", s.Balance, s.Position)
	}
	if !s.EntryPrice.IsZero() {
		t.Errorf("entry price should reset when flat, got %s", s.EntryPrice)
	}
}

func TestPortfolioState_ExactAffordability(t *testing.T) {
	s, _ := NewPortfolioState(dec("10"))
	if !s.Apply(DecisionBuy, dec("10")) {
		t.Fatal("balance equal to price should fill")
	}
	if !s.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", s.Balance)
	}
}

func TestPortfolioState_HoldIsNoop(t *testing.T) {
	s, _ := NewPortfolioState(dec("100"))
	if s.Apply(DecisionHold, dec("10")) {
		t.Fatal("hold must not change state")
	}
	if !s.Balance.Equal(dec("100")) || s.Position != 0 {
		t.Fatalf("state changed: %+v", s)
	}
}

func TestNewPortfolioState_RejectsNegative(t *testing.T) {
	if _, err := NewPortfolioState(dec("-1")); err == nil {
		t.Fatal("expected error for negative starting balance")
	}
}
