package sentiment

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sentiment-backtest/internal/model"
)

// ErrNoScore is returned by a Table without a fallback for dates it has no
// entry for.
var ErrNoScore = errors.New("no sentiment score")

type tableKey struct {
	instrument string
	date       string
}

// Table serves scores recorded per date, optionally per instrument.
// Instrument-specific rows take precedence over rows without an instrument.
// A Table is read-only after loading.
type Table struct {
	scores   map[tableKey]float64
	fallback *float64
}

// WithFallback returns a copy of t that answers missing dates with score.
func (t *Table) WithFallback(score float64) *Table {
	return &Table{scores: t.scores, fallback: &score}
}

func (t *Table) Len() int { return len(t.scores) }

func (t *Table) Score(ctx context.Context, instrument string, date time.Time) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	day := date.Format(model.DateLayout)
	if s, ok := t.scores[tableKey{strings.ToUpper(instrument), day}]; ok {
		return s, nil
	}
	if s, ok := t.scores[tableKey{"", day}]; ok {
		return s, nil
	}
	if t.fallback != nil {
		return *t.fallback, nil
	}
	return 0, fmt.Errorf("%w for %s on %s", ErrNoScore, instrument, day)
}

// LoadTable reads a score table from a CSV file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sentiment table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadTable parses a CSV with a header of either "date,score" or
// "instrument,date,score" (column order is free, names are case-insensitive).
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		return nil, errors.New("missing date column")
	}
	scoreIdx, ok := col["score"]
	if !ok {
		return nil, errors.New("missing score column")
	}
	instIdx, hasInst := col["instrument"]

	t := &Table{scores: map[tableKey]float64{}}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		d, err := model.ParseDay(strings.TrimSpace(rec[dateIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(rec[scoreIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score %q", line, rec[scoreIdx])
		}
		if err := CheckScore(s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		k := tableKey{date: d.Format(model.DateLayout)}
		if hasInst {
			k.instrument = strings.ToUpper(strings.TrimSpace(rec[instIdx]))
		}
		t.scores[k] = s
	}
	return t, nil
}
