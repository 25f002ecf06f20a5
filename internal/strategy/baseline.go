package strategy

import (
	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/model"
)

const BaselineName = "baseline"

// Baseline buys when sentiment is positive and today's close is above
// yesterday's, sells whenever sentiment is negative, and holds otherwise.
type Baseline struct{}

func (Baseline) Name() string { return BaselineName }

// Ready needs a previous close to compare against.
func (Baseline) Ready(h indicator.History) bool { return h.Len() >= 2 }

func (Baseline) Decide(h indicator.History, sentiment float64, _ model.PortfolioState) model.Decision {
	yesterday, ok := h.Ago(1)
	if !ok {
		return model.DecisionHold
	}
	switch {
	case sentiment > 0 && h.Today().Close > yesterday.Close:
		return model.DecisionBuy
	case sentiment < 0:
		return model.DecisionSell
	default:
		return model.DecisionHold
	}
}
