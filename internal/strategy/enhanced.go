package strategy

import (
	"fmt"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/model"
)

const EnhancedName = "enhanced"

const (
	defaultOverbought    = 70.0
	defaultStopLossPct   = 0.05
	defaultTakeProfitPct = 0.05
)

// StopReference selects the price the stop-loss/take-profit bounds are
// derived from.
type StopReference string

const (
	// ReferenceCurrent derives both bounds from today's close. Since the close
	// can never leave a band around itself, the branch never fires; it is kept
	// as the default so ledgers stay comparable with earlier runs.
	ReferenceCurrent StopReference = "current"
	// ReferenceEntry derives the bounds from the average entry price of the
	// held units.
	ReferenceEntry StopReference = "entry"
)

type EnhancedParams struct {
	Overbought    float64
	StopLossPct   float64
	TakeProfitPct float64
	StopReference StopReference
}

func EnhancedParamsFrom(m map[string]any) EnhancedParams {
	return EnhancedParams{
		Overbought:    num(m, "overbought", defaultOverbought),
		StopLossPct:   num(m, "stop_loss_pct", defaultStopLossPct),
		TakeProfitPct: num(m, "take_profit_pct", defaultTakeProfitPct),
		StopReference: StopReference(str(m, "stop_reference", string(ReferenceCurrent))),
	}
}

func (p EnhancedParams) Validate() error {
	if p.Overbought <= 0 || p.Overbought > 100 {
		return fmt.Errorf("overbought must be in (0, 100], got %v", p.Overbought)
	}
	if p.StopLossPct < 0 || p.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in [0, 1), got %v", p.StopLossPct)
	}
	if p.TakeProfitPct < 0 {
		return fmt.Errorf("take_profit_pct must be >= 0, got %v", p.TakeProfitPct)
	}
	switch p.StopReference {
	case ReferenceCurrent, ReferenceEntry:
	default:
		return fmt.Errorf("stop_reference must be %q or %q, got %q", ReferenceCurrent, ReferenceEntry, p.StopReference)
	}
	return nil
}

// Enhanced evaluates, first match wins:
//  1. buy when sentiment > 0, sma_short > sma_long and rsi < overbought
//  2. sell when holding and the close breaches the stop-loss/take-profit band
//  3. sell when macd < macd_signal and rsi > overbought
//  4. hold
type Enhanced struct {
	params EnhancedParams
}

func NewEnhanced(p EnhancedParams) (*Enhanced, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("enhanced policy: %w", err)
	}
	return &Enhanced{params: p}, nil
}

func (e *Enhanced) Name() string           { return EnhancedName }
func (e *Enhanced) Params() EnhancedParams { return e.params }

func (e *Enhanced) Ready(h indicator.History) bool {
	r := h.Today()
	return r.SMAShort.Warm() && r.SMALong.Warm() && r.RSI.Warm() && r.MACD.Warm() && r.MACDSignal.Warm()
}

func (e *Enhanced) Decide(h indicator.History, sentiment float64, st model.PortfolioState) model.Decision {
	r := h.Today()
	ob := e.params.Overbought

	if sentiment > 0 && r.SMAShort.AboveValue(r.SMALong) && r.RSI.Below(ob) {
		return model.DecisionBuy
	}
	if st.Position > 0 && e.breachesBand(r.Close, st) {
		return model.DecisionSell
	}
	if r.MACD.BelowValue(r.MACDSignal) && r.RSI.Above(ob) {
		return model.DecisionSell
	}
	return model.DecisionHold
}

func (e *Enhanced) breachesBand(price float64, st model.PortfolioState) bool {
	ref := price
	if e.params.StopReference == ReferenceEntry && st.EntryPrice.IsPositive() {
		ref = st.EntryPrice.InexactFloat64()
	}
	return price < (1-e.params.StopLossPct)*ref || price > (1+e.params.TakeProfitPct)*ref
}
