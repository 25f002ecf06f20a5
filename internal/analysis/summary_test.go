package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/model"
)

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func rec(day int, price float64, d model.Decision, balance int64, pos int, filled bool) backtest.LedgerRecord {
	return backtest.LedgerRecord{
		Date:     time.Date(2024, 1, 2+day, 0, 0, 0, 0, time.UTC),
		Close:    price,
		Decision: d,
		Balance:  decimal.NewFromInt(balance),
		Position: pos,
		Filled:   filled,
	}
}

func sampleResult(id string) *backtest.Result {
	return &backtest.Result{
		Instrument:      id,
		Policy:          "baseline",
		StartingBalance: decimal.NewFromInt(10000),
		Ledger: []backtest.LedgerRecord{
			rec(0, 10, model.DecisionHold, 10000, 0, false),
			rec(1, 11, model.DecisionBuy, 9989, 1, true),
			rec(2, 9, model.DecisionHold, 9989, 1, false),
			rec(3, 12, model.DecisionBuy, 9977, 2, true),
			rec(4, 12, model.DecisionSell, 9989, 1, true),
			rec(5, 12, model.DecisionBuy, 9977, 2, false),
		},
		FinalBalance:  decimal.NewFromInt(9977),
		FinalPosition: 2,
		PeriodErrors:  []backtest.PeriodError{{Index: 6}},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult("AAPL"))

	if s.Periods != 6 || s.PeriodErrors != 1 {
		t.Fatalf("periods/errors = %d/%d", s.Periods, s.PeriodErrors)
	}
	if !s.FinalEquity.Equal(decimal.NewFromInt(10001)) {
		t.Fatalf("FinalEquity = %s, want 10001", s.FinalEquity)
	}
	assertClose(t, "TotalReturnPct", s.TotalReturnPct, 0.01)
	assertClose(t, "MaxDrawdownPct", s.MaxDrawdownPct, -0.02)
	assertClose(t, "BuyAndHoldReturnPct", s.BuyAndHoldReturnPct, 20)
	assertClose(t, "P05Close", s.P05Close, 9.25)
	if s.BuyDecisions != 3 || s.BuyFills != 2 || s.SellDecisions != 1 || s.SellFills != 1 {
		t.Fatalf("decision counts %+v", s)
	}
	if s.MinClose != 9 || s.MaxClose != 12 {
		t.Fatalf("close range %v..%v", s.MinClose, s.MaxClose)
	}
}

func TestSummarize_EmptyLedger(t *testing.T) {
	s := Summarize(&backtest.Result{Instrument: "X", StartingBalance: decimal.NewFromInt(5), FinalBalance: decimal.NewFromInt(5)})
	if s.Periods != 0 || !s.FinalEquity.Equal(decimal.NewFromInt(5)) || s.TotalReturnPct != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRankByFinalEquity(t *testing.T) {
	loser := sampleResult("LOSE")
	loser.Ledger[len(loser.Ledger)-1].Balance = decimal.NewFromInt(9000)
	tie := sampleResult("AAPL")

	ranked := RankByFinalEquity([]*backtest.Result{loser, sampleResult("ZED"), tie})
	var order []string
	for _, r := range ranked {
		order = append(order, r.Instrument)
	}
	want := []string{"AAPL", "ZED", "LOSE"}
	for i := range want {
		if order[i] != want[i] || ranked[i].Rank != i+1 {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
