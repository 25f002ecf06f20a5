// Package data provides the price series collaborators of the simulator:
// a directory of CSV files, a SQLite store and an HTTP price API, optionally
// behind an in-memory TTL cache.
//
// Every source returns a series sorted by date for the half-open range
// [start, end) and fails with model.ErrDataUnavailable when it is empty.
package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sentiment-backtest/internal/model"
)

// Source loads an instrument's daily prices.
type Source interface {
	PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error)
}

// InRange keeps points with start <= date < end. A zero start or end leaves
// that side open.
func InRange(points []model.PricePoint, start, end time.Time) []model.PricePoint {
	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !p.Date.Before(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Normalize sorts points by date and drops repeated dates, keeping the last
// occurrence.
func Normalize(points []model.PricePoint) []model.PricePoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func checkRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("start %s must be before end %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	return nil
}

func unavailable(instrument string, start, end time.Time) error {
	return fmt.Errorf("%s [%s, %s): %w", instrument, fmtDay(start), fmtDay(end), model.ErrDataUnavailable)
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
