package indicator

import (
	"sentiment-backtest/internal/model"
)

// Row is one period of a price series with its derived indicators.
type Row struct {
	model.PricePoint

	SMAShort   Value `json:"sma_short"`
	SMALong    Value `json:"sma_long"`
	EMAShort   Value `json:"ema_short"`
	RSI        Value `json:"rsi"`
	MACD       Value `json:"macd"`
	MACDSignal Value `json:"macd_signal"`
}

// Frame is a price series augmented with indicators. It has the same length
// and order as the input series and is never mutated after Compute returns.
type Frame struct {
	params Params
	rows   []Row
}

// Compute derives every indicator column for points in a single forward pass.
// Series shorter than a window simply leave that column Undefined.
func Compute(points []model.PricePoint, p Params) (*Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	smaShort := NewSMA(p.SMAShort)
	smaLong := NewSMA(p.SMALong)
	emaShort := NewEMA(p.EMAShort)
	rsi := NewRSI(p.RSI)
	emaFast := NewEMA(p.MACDFast)
	emaSlow := NewEMA(p.MACDSlow)
	signal := NewEMA(p.MACDSignal)

	rows := make([]Row, len(points))
	for i, pt := range points {
		c := pt.Close
		smaShort.Update(c)
		smaLong.Update(c)
		emaShort.Update(c)
		rsi.Update(c)
		emaFast.Update(c)
		emaSlow.Update(c)

		macd := Undefined
		fast, okFast := emaFast.Value().Float()
		slow, okSlow := emaSlow.Value().Float()
		if okFast && okSlow {
			macd = Defined(fast - slow)
			signal.Update(fast - slow)
		}

		rows[i] = Row{
			PricePoint: pt,
			SMAShort:   smaShort.Value(),
			SMALong:    smaLong.Value(),
			EMAShort:   emaShort.Value(),
			RSI:        rsi.Value(),
			MACD:       macd,
			MACDSignal: signal.Value(),
		}
	}

	return &Frame{params: p, rows: rows}, nil
}

func (f *Frame) Params() Params { return f.params }
func (f *Frame) Len() int       { return len(f.rows) }

// Row returns period i.
func (f *Frame) Row(i int) Row { return f.rows[i] }

// Rows returns a copy of every period.
func (f *Frame) Rows() []Row {
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

// Prefix returns the view of periods 0..i. Nothing after i is reachable
// through the returned History.
func (f *Frame) Prefix(i int) History {
	return History{rows: f.rows[: i+1 : i+1]}
}

// History is a read-only view of a frame that ends at "today".
type History struct {
	rows []Row
}

// Len is the number of periods up to and including today.
func (h History) Len() int { return len(h.rows) }

// Today returns the last period of the view.
func (h History) Today() Row { return h.rows[len(h.rows)-1] }

// Ago returns the period k days before today (Ago(0) is today).
func (h History) Ago(k int) (Row, bool) {
	i := len(h.rows) - 1 - k
	if k < 0 || i < 0 {
		return Row{}, false
	}
	return h.rows[i], true
}

// At returns period i of the view.
func (h History) At(i int) (Row, bool) {
	if i < 0 || i >= len(h.rows) {
		return Row{}, false
	}
	return h.rows[i], true
}

// Closes returns a copy of the close prices in the view.
func (h History) Closes() []float64 {
	out := make([]float64, len(h.rows))
	for i, r := range h.rows {
		out[i] = r.Close
	}
	return out
}
