package indicator

// SMA is a simple moving average over the last period inputs.
// The sum is recomputed from the window on each read so that a window of
// zeros yields exactly zero (RSI relies on this to detect a zero loss).
type SMA struct {
	period int
	buf    []float64
	idx    int
	count  int
}

func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Update(x float64) {
	s.buf[s.idx] = x
	s.idx = (s.idx + 1) % s.period
	s.count++
}

func (s *SMA) Ready() bool { return s.count >= s.period }

func (s *SMA) Value() Value {
	if !s.Ready() {
		return Undefined
	}
	sum := 0.0
	for _, v := range s.buf {
		sum += v
	}
	return Defined(sum / float64(s.period))
}
