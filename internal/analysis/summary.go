package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/model"
)

// Summary condenses a run's ledger into the numbers used for ranking.
type Summary struct {
	Instrument string `json:"instrument"`
	Policy     string `json:"policy"`

	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Periods int       `json:"periods"`

	StartingBalance decimal.Decimal `json:"starting_balance"`
	FinalBalance    decimal.Decimal `json:"final_balance"`
	FinalPosition   int             `json:"final_position"`

	// FinalEquity values held units at the last recorded close.
	FinalEquity    decimal.Decimal `json:"final_equity"`
	TotalReturnPct float64         `json:"total_return_pct"`

	// MaxDrawdownPct is the deepest peak-to-trough fall of equity, <= 0.
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	// BuyAndHoldReturnPct is the move of the close over the recorded periods.
	BuyAndHoldReturnPct float64 `json:"buy_and_hold_return_pct"`

	BuyDecisions  int `json:"buy_decisions"`
	SellDecisions int `json:"sell_decisions"`
	BuyFills      int `json:"buy_fills"`
	SellFills     int `json:"sell_fills"`
	PeriodErrors  int `json:"period_errors"`

	MinClose float64 `json:"min_close"`
	MaxClose float64 `json:"max_close"`
	P05Close float64 `json:"p05_close"`
	P95Close float64 `json:"p95_close"`
}

func Summarize(res *backtest.Result) Summary {
	s := Summary{
		Instrument:      res.Instrument,
		Policy:          res.Policy,
		StartingBalance: res.StartingBalance,
		FinalBalance:    res.FinalBalance,
		FinalPosition:   res.FinalPosition,
		FinalEquity:     res.FinalBalance,
		PeriodErrors:    len(res.PeriodErrors),
		Periods:         len(res.Ledger),
	}
	if len(res.Ledger) == 0 {
		return s
	}

	first, last := res.Ledger[0], res.Ledger[len(res.Ledger)-1]
	s.Start, s.End = first.Date, last.Date

	closes := make([]float64, 0, len(res.Ledger))
	peak := math.Inf(-1)
	for _, r := range res.Ledger {
		closes = append(closes, r.Close)

		switch r.Decision {
		case model.DecisionBuy:
			s.BuyDecisions++
			if r.Filled {
				s.BuyFills++
			}
		case model.DecisionSell:
			s.SellDecisions++
			if r.Filled {
				s.SellFills++
			}
		}

		eq := equity(r).InexactFloat64()
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (eq - peak) / peak * 100; dd < s.MaxDrawdownPct {
				s.MaxDrawdownPct = dd
			}
		}
	}

	s.FinalEquity = equity(last)
	if res.StartingBalance.IsPositive() {
		s.TotalReturnPct = s.FinalEquity.Sub(res.StartingBalance).
			Div(res.StartingBalance).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}
	if first.Close > 0 {
		s.BuyAndHoldReturnPct = (last.Close - first.Close) / first.Close * 100
	}

	sort.Float64s(closes)
	s.MinClose = closes[0]
	s.MaxClose = closes[len(closes)-1]
	s.P05Close = percentileSorted(closes, 0.05)
	s.P95Close = percentileSorted(closes, 0.95)
	return s
}

func equity(r backtest.LedgerRecord) decimal.Decimal {
	return r.Balance.Add(decimal.NewFromFloat(r.Close).Mul(decimal.NewFromInt(int64(r.Position))))
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
