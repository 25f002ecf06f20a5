package strategy

import (
	"errors"
	"testing"
	"time"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/model"

	"github.com/shopspring/decimal"
)

func frame(t *testing.T, p indicator.Params, closes ...float64) *indicator.Frame {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		pts[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	f, err := indicator.Compute(pts, p)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return f
}

func flat(balance string) model.PortfolioState {
	return model.PortfolioState{Balance: decimal.RequireFromString(balance)}
}

func TestBaseline_Decide(t *testing.T) {
	f := frame(t, indicator.DefaultParams(), 10, 11, 9, 12)
	b := Baseline{}

	if b.Ready(f.Prefix(0)) {
		t.Fatal("baseline must not be ready without a previous close")
	}

	tests := []struct {
		name      string
		day       int
		sentiment float64
		want      model.Decision
	}{
		{"rising and positive", 1, 0.5, model.DecisionBuy},
		{"falling and positive", 2, 0.5, model.DecisionHold},
		{"rising and neutral", 3, 0, model.DecisionHold},
		{"rising and negative", 3, -0.1, model.DecisionSell},
		{"falling and negative", 2, -0.3, model.DecisionSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := f.Prefix(tt.day)
			if !b.Ready(h) {
				t.Fatalf("day %d should be ready", tt.day)
			}
			if got := b.Decide(h, tt.sentiment, flat("100")); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func tiny() indicator.Params {
	return indicator.Params{SMAShort: 2, SMALong: 3, EMAShort: 2, RSI: 3, MACDFast: 2, MACDSlow: 4, MACDSignal: 2}
}

func TestEnhanced_WarmupNotReady(t *testing.T) {
	e, err := NewEnhanced(EnhancedParamsFrom(nil))
	if err != nil {
		t.Fatalf("NewEnhanced: %v", err)
	}
	f := frame(t, tiny(), 10, 11, 10, 12, 11)
	for i := 0; i < 3; i++ {
		if e.Ready(f.Prefix(i)) {
			t.Errorf("day %d: should still be warming up", i)
		}
	}
	if !e.Ready(f.Prefix(3)) {
		t.Error("day 3: all indicators should be warm")
	}
}

func TestEnhanced_BuyOnTrendWithRoomBelowOverbought(t *testing.T) {
	e, _ := NewEnhanced(EnhancedParamsFrom(nil))
	p := tiny()
	p.SMAShort = 1
	// deltas +2, -2, +1.5: rsi = 100 - 100/(1+3.5/2) ~ 63.6, close above sma(3)
	f := frame(t, p, 10, 12, 10, 11.5)
	h := f.Prefix(3)
	r := h.Today()
	if !r.SMAShort.AboveValue(r.SMALong) {
		t.Fatalf("setup: sma_short %s should be above sma_long %s", r.SMAShort, r.SMALong)
	}
	if !r.RSI.Below(70) {
		t.Fatalf("setup: rsi %s should be below 70", r.RSI)
	}
	if got := e.Decide(h, 0.2, flat("1000")); got != model.DecisionBuy {
		t.Fatalf("got %s, want buy", got)
	}
	if got := e.Decide(h, 0, flat("1000")); got != model.DecisionHold {
		t.Fatalf("neutral sentiment: got %s, want hold", got)
	}
}

func TestEnhanced_NoSignalRSIBlocksBuy(t *testing.T) {
	e, _ := NewEnhanced(EnhancedParamsFrom(nil))
	// Strictly rising: avg loss is zero so RSI is no-signal.
	f := frame(t, tiny(), 10, 11, 12, 13, 14)
	h := f.Prefix(4)
	if !h.Today().RSI.IsNoSignal() {
		t.Fatalf("setup: expected no-signal RSI, got %s", h.Today().RSI)
	}
	if !e.Ready(h) {
		t.Fatal("no-signal RSI is not warm-up")
	}
	if got := e.Decide(h, 0.9, flat("1000")); got != model.DecisionHold {
		t.Fatalf("got %s, want hold", got)
	}
}

func TestEnhanced_MACDExitWhenOverbought(t *testing.T) {
	e, _ := NewEnhanced(EnhancedParamsFrom(nil))
	// Big run-up then a small dip: RSI stays high while MACD turns below signal.
	f := frame(t, tiny(), 10, 10, 10, 10, 20, 30, 27)
	h := f.Prefix(6)
	r := h.Today()
	if !r.RSI.Above(70) {
		t.Fatalf("setup: rsi %s should be above 70", r.RSI)
	}
	if !r.MACD.BelowValue(r.MACDSignal) {
		t.Fatalf("setup: macd %s should be below signal %s", r.MACD, r.MACDSignal)
	}
	if got := e.Decide(h, -1, flat("0")); got != model.DecisionSell {
		t.Fatalf("got %s, want sell", got)
	}
}

func TestEnhanced_StopBandAgainstCurrentNeverFires(t *testing.T) {
	e, _ := NewEnhanced(EnhancedParamsFrom(nil))
	f := frame(t, tiny(), 10, 11, 10, 11, 10)
	h := f.Prefix(4)
	st := model.PortfolioState{
		Balance:    decimal.NewFromInt(100),
		Position:   3,
		EntryPrice: decimal.NewFromInt(50),
	}
	if got := e.Decide(h, 0, st); got != model.DecisionHold {
		t.Fatalf("got %s, want hold", got)
	}
}

func TestEnhanced_StopBandAgainstEntry(t *testing.T) {
	e, err := NewEnhanced(EnhancedParamsFrom(map[string]any{"stop_reference": "entry"}))
	if err != nil {
		t.Fatalf("NewEnhanced: %v", err)
	}
	f := frame(t, tiny(), 10, 11, 10, 11, 10)
	h := f.Prefix(4)

	st := model.PortfolioState{Balance: decimal.NewFromInt(100), Position: 1, EntryPrice: decimal.NewFromInt(50)}
	if got := e.Decide(h, 0, st); got != model.DecisionSell {
		t.Fatalf("close 10 vs entry 50: got %s, want sell", got)
	}

	st.EntryPrice = decimal.RequireFromString("10.2")
	if got := e.Decide(h, 0, st); got != model.DecisionHold {
		t.Fatalf("close within band: got %s, want hold", got)
	}

	st.Position = 0
	st.EntryPrice = decimal.NewFromInt(50)
	if got := e.Decide(h, 0, st); got != model.DecisionHold {
		t.Fatalf("flat account: got %s, want hold", got)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"baseline", "Enhanced", " enhanced "} {
		p, err := New(name, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if p.Name() == "" {
			t.Errorf("New(%q) returned unnamed policy", name)
		}
	}

	_, err := New("momentum", nil)
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("got %v, want ErrUnknownPolicy", err)
	}

	_, err = New("enhanced", map[string]any{"stop_reference": "yesterday"})
	if err == nil {
		t.Fatal("expected invalid stop_reference to be rejected")
	}
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	if len(cat) != 2 || cat[0].Name != BaselineName || cat[1].Name != EnhancedName {
		t.Fatalf("unexpected catalog: %+v", cat)
	}
}
