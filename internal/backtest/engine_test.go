package backtest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/sentiment"
	"sentiment-backtest/internal/strategy"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) []model.PricePoint {
	pts := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		pts[i] = model.PricePoint{Date: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return pts
}

func newEngine(t *testing.T, balance int64) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StartingBalance = decimal.NewFromInt(balance)
	cfg.SentimentTimeout = time.Second
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func policy(t *testing.T, name string, params map[string]any) strategy.Policy {
	t.Helper()
	p, err := strategy.New(name, params)
	if err != nil {
		t.Fatalf("strategy.New(%q): %v", name, err)
	}
	return p
}

type want struct {
	decision model.Decision
	balance  string
	position int
	filled   bool
}

func checkLedger(t *testing.T, got []LedgerRecord, wants []want) {
	t.Helper()
	if len(got) != len(wants) {
		t.Fatalf("ledger has %d records, want %d", len(got), len(wants))
	}
	for i, w := range wants {
		r := got[i]
		if r.Decision != w.decision || !r.Balance.Equal(decimal.RequireFromString(w.balance)) ||
			r.Position != w.position || r.Filled != w.filled {
			t.Errorf("day %d: got {%s %s %d filled=%v}, want {%s %s %d filled=%v}",
				i, r.Decision, r.Balance, r.Position, r.Filled, w.decision, w.balance, w.position, w.filled)
		}
	}
}

func TestRun_BaselineRisingWithPositiveSentiment(t *testing.T) {
	e := newEngine(t, 10000)
	res, err := e.Run(context.Background(), "AAPL", series(10, 11, 9, 12), sentiment.Constant(0.5), policy(t, "baseline", nil))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkLedger(t, res.Ledger, []want{
		{model.DecisionHold, "10000", 0, false},
		{model.DecisionBuy, "9989", 1, true},
		{model.DecisionHold, "9989", 1, false},
		{model.DecisionBuy, "9977", 2, true},
	})
	for i, r := range res.Ledger {
		if !r.Date.Equal(day0.AddDate(0, 0, i)) {
			t.Errorf("day %d: date %s out of order", i, r.Date)
		}
		if r.Close == 0 {
			t.Errorf("day %d: close not recorded", i)
		}
	}
	if !res.FinalBalance.Equal(decimal.NewFromInt(9977)) || res.FinalPosition != 2 {
		t.Fatalf("final = %s/%d, want 9977/2", res.FinalBalance, res.FinalPosition)
	}
	if res.LastClose() != 12 {
		t.Fatalf("LastClose = %v", res.LastClose())
	}
}

func TestRun_NegativeSentimentSellsDownToFlat(t *testing.T) {
	e := newEngine(t, 10000)
	// Two buys first, then constant negative sentiment.
	src := sentiment.Func(func(_ context.Context, _ string, d time.Time) (float64, error) {
		if d.Before(day0.AddDate(0, 0, 3)) {
			return 0.5, nil
		}
		return -0.3, nil
	})
	res, err := e.Run(context.Background(), "MSFT", series(10, 11, 12, 13, 14, 15), src, policy(t, "baseline", nil))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkLedger(t, res.Ledger, []want{
		{model.DecisionHold, "10000", 0, false},
		{model.DecisionBuy, "9989", 1, true},
		{model.DecisionBuy, "9977", 2, true},
		{model.DecisionSell, "9990", 1, true},
		{model.DecisionSell, "10004", 0, true},
		{model.DecisionSell, "10004", 0, false},
	})
}

func TestRun_InsufficientFundsLogsBuyWithoutFill(t *testing.T) {
	e := newEngine(t, 5)
	res, err := e.Run(context.Background(), "X", series(8, 10), sentiment.Constant(1), policy(t, "baseline", nil))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	checkLedger(t, res.Ledger, []want{
		{model.DecisionHold, "5", 0, false},
		{model.DecisionBuy, "5", 0, false},
	})
}

func TestRun_RejectsBadSeries(t *testing.T) {
	e := newEngine(t, 100)
	p := policy(t, "baseline", nil)

	_, err := e.Run(context.Background(), "EMPTY", nil, sentiment.Constant(1), p)
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("empty series: got %v, want ErrDataUnavailable", err)
	}

	pts := series(10, 11, 12)
	pts[2].Date = pts[0].Date
	_, err = e.Run(context.Background(), "DUP", pts, sentiment.Constant(1), p)
	if !errors.Is(err, model.ErrMalformedSeries) {
		t.Fatalf("unordered series: got %v, want ErrMalformedSeries", err)
	}
}

func TestRun_SentimentFailureSkipsOnlyThatPeriod(t *testing.T) {
	e := newEngine(t, 10000)
	bad := day0.AddDate(0, 0, 2)
	src := sentiment.Func(func(_ context.Context, _ string, d time.Time) (float64, error) {
		switch {
		case d.Equal(bad):
			return 0, errors.New("feed hiccup")
		case d.Equal(bad.AddDate(0, 0, 1)):
			return math.NaN(), nil
		}
		return 0.5, nil
	})

	res, err := e.Run(context.Background(), "AAPL", series(10, 11, 12, 13, 14), src, policy(t, "baseline", nil))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Ledger) != 3 {
		t.Fatalf("ledger has %d records, want 3", len(res.Ledger))
	}
	if len(res.PeriodErrors) != 2 {
		t.Fatalf("got %d period errors, want 2", len(res.PeriodErrors))
	}
	if pe := res.PeriodErrors[0]; pe.Index != 2 || !pe.Date.Equal(bad) {
		t.Errorf("unexpected period error %+v", pe)
	}

	// Periods 1 and 4 still trade: 10000 - 11 - 14.
	if !res.FinalBalance.Equal(decimal.NewFromInt(9975)) || res.FinalPosition != 2 {
		t.Fatalf("final = %s/%d, want 9975/2", res.FinalBalance, res.FinalPosition)
	}
	if got := res.Ledger[2].Date; !got.Equal(day0.AddDate(0, 0, 4)) {
		t.Fatalf("third record dated %s, want day 4", got)
	}
}

type panicky struct{ strategy.Baseline }

func (panicky) Decide(h indicator.History, _ float64, _ model.PortfolioState) model.Decision {
	if h.Len() == 3 {
		panic("boom")
	}
	return model.DecisionHold
}

func TestRun_PolicyPanicBecomesPeriodError(t *testing.T) {
	e := newEngine(t, 100)
	res, err := e.Run(context.Background(), "X", series(1, 2, 3, 4), sentiment.Constant(0), panicky{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Ledger) != 3 || len(res.PeriodErrors) != 1 {
		t.Fatalf("got %d records and %d period errors", len(res.Ledger), len(res.PeriodErrors))
	}
	var pe PeriodError
	if !errors.As(error(res.PeriodErrors[0]), &pe) || pe.Index != 2 {
		t.Fatalf("unexpected period error %v", res.PeriodErrors[0])
	}
}

func TestRun_SentimentTimeoutAbortsRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SentimentTimeout = 10 * time.Millisecond
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	slow := sentiment.Func(func(context.Context, string, time.Time) (float64, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})

	_, err = e.Run(context.Background(), "SLOW", series(1, 2, 3), slow, policy(t, "baseline", nil))
	if !errors.Is(err, ErrSentimentTimeout) {
		t.Fatalf("got %v, want ErrSentimentTimeout", err)
	}
}

func TestRun_BalanceAndPositionNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 300)
	price := 50.0
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)*0.08
		closes[i] = math.Round(price*100) / 100
	}
	scores := make(map[time.Time]float64, len(closes))
	for i := range closes {
		scores[day0.AddDate(0, 0, i)] = rng.Float64()*2 - 1
	}
	src := sentiment.Func(func(_ context.Context, _ string, d time.Time) (float64, error) {
		return scores[d], nil
	})

	for _, name := range []string{"baseline", "enhanced"} {
		for _, balance := range []int64{0, 40, 500, 10000} {
			e := newEngine(t, balance)
			res, err := e.Run(context.Background(), "RND", series(closes...), src, policy(t, name, map[string]any{"stop_reference": "entry"}))
			if err != nil {
				t.Fatalf("%s/%d: %v", name, balance, err)
			}
			if len(res.Ledger) != len(closes) {
				t.Fatalf("%s/%d: %d records", name, balance, len(res.Ledger))
			}
			for i, r := range res.Ledger {
				if r.Balance.IsNegative() || r.Position < 0 {
					t.Fatalf("%s/%d day %d: balance %s position %d", name, balance, i, r.Balance, r.Position)
				}
			}
		}
	}
}

func TestRun_NoLookAhead(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indicators = indicator.Params{SMAShort: 3, SMALong: 5, EMAShort: 3, RSI: 4, MACDFast: 3, MACDSlow: 6, MACDSignal: 3}
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	src := sentiment.Func(func(_ context.Context, _ string, d time.Time) (float64, error) {
		if d.YearDay()%3 == 0 {
			return -0.4, nil
		}
		return 0.6, nil
	})

	base := []float64{10, 11, 10.5, 12, 12.5, 11.8, 13, 13.4, 12.9, 14, 14.2, 13.1, 15, 15.5}
	for _, name := range []string{"baseline", "enhanced"} {
		ref, err := e.Run(context.Background(), "A", series(base...), src, policy(t, name, nil))
		if err != nil {
			t.Fatal(err)
		}
		for cut := 0; cut < len(base)-1; cut++ {
			perturbed := append([]float64(nil), base...)
			for j := cut + 1; j < len(perturbed); j++ {
				perturbed[j] = perturbed[j]*3 + 7
			}
			got, err := e.Run(context.Background(), "A", series(perturbed...), src, policy(t, name, nil))
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i <= cut; i++ {
				a, b := ref.Ledger[i], got.Ledger[i]
				if a.Decision != b.Decision || !a.Balance.Equal(b.Balance) || a.Position != b.Position {
					t.Fatalf("%s: perturbing after day %d changed day %d: %+v vs %+v", name, cut, i, a, b)
				}
			}
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = decimal.NewFromInt(-1)
	if _, err := New(cfg); err == nil {
		t.Fatal("expected negative starting balance to be rejected")
	}

	cfg = DefaultConfig()
	cfg.Indicators.MACDFast = 30
	if _, err := New(cfg); err == nil {
		t.Fatal("expected macd_fast >= macd_slow to be rejected")
	}
}
