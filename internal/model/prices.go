package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

var (
	// ErrDataUnavailable means a source has no prices for the requested range.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrMalformedSeries means a series violates ordering or field constraints.
	ErrMalformedSeries = errors.New("malformed series")
)

// PricePoint is one trading period of an instrument's daily series.
// Prices are in the account currency; Volume is a share count.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// ValidateSeries checks that a series is non-empty, strictly ascending by date
// and carries a positive finite close on every point. Open/High/Low may be zero
// when a source does not provide them but must never be negative or non-finite.
func ValidateSeries(points []PricePoint) error {
	if len(points) == 0 {
		return ErrDataUnavailable
	}
	for i, p := range points {
		if p.Date.IsZero() {
			return fmt.Errorf("%w: point %d has no date", ErrMalformedSeries, i)
		}
		if !positiveFinite(p.Close) {
			return fmt.Errorf("%w: point %d (%s) close %v must be positive and finite",
				ErrMalformedSeries, i, p.Date.Format(DateLayout), p.Close)
		}
		for _, v := range []float64{p.Open, p.High, p.Low} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: point %d (%s) has invalid OHLC value %v",
					ErrMalformedSeries, i, p.Date.Format(DateLayout), v)
			}
		}
		if p.Volume < 0 {
			return fmt.Errorf("%w: point %d (%s) has negative volume", ErrMalformedSeries, i, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(points[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at point %d (%s after %s)",
				ErrMalformedSeries, i, p.Date.Format(DateLayout), points[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
