package backtest

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/model"
)

// LedgerRecord is the account snapshot taken after a period's decision was
// applied. This is the primary artifact for "what happened" in a backtest.
//
// Decision is what the policy chose, not what executed: a buy without the
// cash or a sell without inventory is still logged as buy/sell. Filled tells
// the two apart.
type LedgerRecord struct {
	Date     time.Time
	Close    float64
	Decision model.Decision
	Balance  decimal.Decimal
	Position int
	Filled   bool
}

func (r LedgerRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date     string          `json:"date"`
		Close    float64         `json:"close"`
		Decision model.Decision  `json:"decision"`
		Balance  decimal.Decimal `json:"balance"`
		Position int             `json:"position"`
		Filled   bool            `json:"filled"`
	}{
		Date:     r.Date.Format(model.DateLayout),
		Close:    r.Close,
		Decision: r.Decision,
		Balance:  r.Balance,
		Position: r.Position,
		Filled:   r.Filled,
	})
}

// Result is the outcome of one instrument's run. It is not modified after Run
// returns.
type Result struct {
	Instrument      string
	Policy          string
	StartingBalance decimal.Decimal
	Ledger          []LedgerRecord

	FinalBalance  decimal.Decimal
	FinalPosition int

	// PeriodErrors lists periods that produced no ledger record.
	PeriodErrors []PeriodError
}

// LastClose is the close of the final recorded period, or zero for an empty
// ledger.
func (r *Result) LastClose() float64 {
	if len(r.Ledger) == 0 {
		return 0
	}
	return r.Ledger[len(r.Ledger)-1].Close
}
