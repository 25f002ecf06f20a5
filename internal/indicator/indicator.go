// Package indicator derives technical indicators from a daily price series.
//
// Indicators are computed by streaming calculators fed one close at a time, so
// the value at period i only ever depends on periods 0..i. A value that cannot
// be computed yet is Undefined; an RSI whose averaged loss is zero is NoSignal.
package indicator

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type status uint8

const (
	statusUndefined status = iota
	statusNoSignal
	statusDefined
)

// Value is an indicator reading that may be unavailable.
// The zero Value is Undefined.
type Value struct {
	v float64
	s status
}

var (
	Undefined = Value{}
	NoSignal  = Value{s: statusNoSignal}
)

func Defined(v float64) Value { return Value{v: v, s: statusDefined} }

// Float returns the numeric reading and whether there is one.
func (x Value) Float() (float64, bool) { return x.v, x.s == statusDefined }

func (x Value) IsDefined() bool  { return x.s == statusDefined }
func (x Value) IsNoSignal() bool { return x.s == statusNoSignal }

// Warm reports whether the indicator has left its warm-up window.
// NoSignal counts as warm: the window is full, the ratio just has no meaning.
func (x Value) Warm() bool { return x.s != statusUndefined }

// Below reports x < y. Undefined and NoSignal never compare.
func (x Value) Below(y float64) bool { return x.s == statusDefined && x.v < y }

// Above reports x > y. Undefined and NoSignal never compare.
func (x Value) Above(y float64) bool { return x.s == statusDefined && x.v > y }

// BelowValue reports x < y when both are defined.
func (x Value) BelowValue(y Value) bool {
	return x.s == statusDefined && y.s == statusDefined && x.v < y.v
}

// AboveValue reports x > y when both are defined.
func (x Value) AboveValue(y Value) bool {
	return x.s == statusDefined && y.s == statusDefined && x.v > y.v
}

func (x Value) String() string {
	switch x.s {
	case statusDefined:
		return strconv.FormatFloat(x.v, 'f', -1, 64)
	case statusNoSignal:
		return "no-signal"
	default:
		return "undefined"
	}
}

// MarshalJSON encodes unavailable readings as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if x.s != statusDefined {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// Params fixes the windows and spans of every derived column.
type Params struct {
	SMAShort   int `yaml:"sma_short" json:"sma_short"`
	SMALong    int `yaml:"sma_long" json:"sma_long"`
	EMAShort   int `yaml:"ema_short" json:"ema_short"`
	RSI        int `yaml:"rsi" json:"rsi"`
	MACDFast   int `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow" json:"macd_slow"`
	MACDSignal int `yaml:"macd_signal" json:"macd_signal"`
}

func DefaultParams() Params {
	return Params{
		SMAShort:   20,
		SMALong:    50,
		EMAShort:   20,
		RSI:        14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.SMAShort == 0 {
		p.SMAShort = d.SMAShort
	}
	if p.SMALong == 0 {
		p.SMALong = d.SMALong
	}
	if p.EMAShort == 0 {
		p.EMAShort = d.EMAShort
	}
	if p.RSI == 0 {
		p.RSI = d.RSI
	}
	if p.MACDFast == 0 {
		p.MACDFast = d.MACDFast
	}
	if p.MACDSlow == 0 {
		p.MACDSlow = d.MACDSlow
	}
	if p.MACDSignal == 0 {
		p.MACDSignal = d.MACDSignal
	}
	return p
}

func (p Params) Validate() error {
	for name, v := range map[string]int{
		"sma_short":   p.SMAShort,
		"sma_long":    p.SMALong,
		"ema_short":   p.EMAShort,
		"rsi":         p.RSI,
		"macd_fast":   p.MACDFast,
		"macd_slow":   p.MACDSlow,
		"macd_signal": p.MACDSignal,
	} {
		if v < 1 {
			return fmt.Errorf("indicator %s window must be >= 1, got %d", name, v)
		}
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("macd_fast (%d) must be < macd_slow (%d)", p.MACDFast, p.MACDSlow)
	}
	return nil
}
