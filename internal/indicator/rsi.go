package indicator

// RSI is the relative strength index over the trailing period close-to-close
// deltas. Average gain and loss are plain means of the window (a flat day
// contributes zero to both). It needs period+1 closes before it is defined and
// reports NoSignal when the average loss is zero.
type RSI struct {
	gains     *SMA
	losses    *SMA
	prevClose float64
	count     int
}

func NewRSI(period int) *RSI {
	return &RSI{
		gains:  NewSMA(period),
		losses: NewSMA(period),
	}
}

func (r *RSI) Update(price float64) {
	r.count++
	if r.count == 1 {
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Update(gain)
	r.losses.Update(loss)
}

func (r *RSI) Value() Value {
	avgGain, ok := r.gains.Value().Float()
	if !ok {
		return Undefined
	}
	avgLoss, _ := r.losses.Value().Float()
	if avgLoss == 0 {
		return NoSignal
	}
	rs := avgGain / avgLoss
	return Defined(100.0 - (100.0 / (1.0 + rs)))
}
