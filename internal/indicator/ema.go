package indicator

// EMA is an exponential moving average with alpha = 2/(span+1),
// seeded with the first input, so it is defined from the first period.
type EMA struct {
	alpha   float64
	current float64
	seeded  bool
}

func NewEMA(span int) *EMA {
	return &EMA{alpha: 2.0 / float64(span+1)}
}

func (e *EMA) Update(x float64) {
	if !e.seeded {
		e.current = x
		e.seeded = true
		return
	}
	e.current = x*e.alpha + e.current*(1-e.alpha)
}

func (e *EMA) Value() Value {
	if !e.seeded {
		return Undefined
	}
	return Defined(e.current)
}
