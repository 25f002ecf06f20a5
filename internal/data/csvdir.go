package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sentiment-backtest/internal/model"
)

// CSVDir reads {SYMBOL}_historical_data.csv files from a directory, as
// written by yfinance (Date,Open,High,Low,Close,Adj Close,Volume).
type CSVDir struct {
	Dir string
}

func NewCSVDir(dir string) *CSVDir { return &CSVDir{Dir: dir} }

// HistoricalFileName is the file a symbol's daily prices are stored in.
func HistoricalFileName(symbol string) string {
	return normalizeSymbol(symbol) + "_historical_data.csv"
}

func (s *CSVDir) Path(symbol string) string {
	return filepath.Join(s.Dir, HistoricalFileName(symbol))
}

func (s *CSVDir) PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points, err := LoadPriceCSV(s.Path(instrument))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, unavailable(instrument, start, end)
	}
	if err != nil {
		return nil, err
	}

	points = InRange(points, start, end)
	if len(points) == 0 {
		return nil, unavailable(instrument, start, end)
	}
	return points, nil
}

func LoadPriceCSV(path string) ([]model.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := ReadPriceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// ReadPriceCSV parses a daily price CSV. Column names are matched
// case-insensitively; only the date and close columns are required. Rows
// before the first dated row (yfinance ticker/index header rows) are skipped.
// The result is sorted by date with duplicates removed.
func ReadPriceCSV(r io.Reader) ([]model.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
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
		// yfinance multi-level headers label the index column "Price".
		if dateIdx, ok = col["price"]; !ok {
			return nil, errors.New("missing Date column")
		}
	}
	closeIdx, ok := col["close"]
	if !ok {
		return nil, errors.New("missing Close column")
	}
	optional := func(name string) int {
		if i, ok := col[name]; ok {
			return i
		}
		return -1
	}
	openIdx, highIdx, lowIdx, volIdx := optional("open"), optional("high"), optional("low"), optional("volume")

	var points []model.PricePoint
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

		d, derr := parseDate(field(rec, dateIdx))
		if derr != nil {
			if len(points) == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, derr)
		}

		p := model.PricePoint{Date: d}
		if p.Close, err = parseNum(field(rec, closeIdx)); err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		for _, c := range []struct {
			idx int
			dst *float64
		}{{openIdx, &p.Open}, {highIdx, &p.High}, {lowIdx, &p.Low}} {
			if c.idx < 0 || field(rec, c.idx) == "" {
				continue
			}
			if *c.dst, err = parseNum(field(rec, c.idx)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if volIdx >= 0 && field(rec, volIdx) != "" {
			v, err := parseNum(field(rec, volIdx))
			if err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
			p.Volume = int64(v)
		}
		points = append(points, p)
	}
	return Normalize(points), nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseNum(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// parseDate accepts a plain date or a timestamp whose first ten characters
// are one.
func parseDate(s string) (time.Time, error) {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	return model.ParseDay(s)
}
