package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sentiment-backtest/internal/model"
)

func day(s string) time.Time {
	t, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

const yfinanceCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,184.22,185.88,183.43,184.25,183.5,58414500
2024-01-02,187.15,188.44,183.89,185.64,184.9,82488700
2024-01-04,182.15,183.09,180.88,181.91,181.2,71983600
2024-01-04,182.15,183.09,180.88,181.90,181.2,71983600
`

func TestReadPriceCSV_SortsAndDedupes(t *testing.T) {
	pts, err := ReadPriceCSV(strings.NewReader(yfinanceCSV))
	if err != nil {
		t.Fatalf("ReadPriceCSV: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("got %d points, want 3", len(pts))
	}
	if !pts[0].Date.Equal(day("2024-01-02")) || pts[0].Close != 185.64 || pts[0].Volume != 82488700 {
		t.Errorf("unexpected first point %+v", pts[0])
	}
	if pts[2].Close != 181.90 {
		t.Errorf("duplicate date should keep the last row, got close %v", pts[2].Close)
	}
	if err := model.ValidateSeries(pts); err != nil {
		t.Fatalf("series should validate: %v", err)
	}
}

func TestReadPriceCSV_MultiLevelHeader(t *testing.T) {
	in := `Price,Adj Close,Close,High,Low,Open,Volume
Ticker,AAPL,AAPL,AAPL,AAPL,AAPL,AAPL
Date,,,,,,
2024-01-02 00:00:00+00:00,184.9,185.64,188.44,183.89,187.15,82488700
2024-01-03 00:00:00+00:00,183.5,184.25,185.88,183.43,184.22,58414500
`
	pts, err := ReadPriceCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPriceCSV: %v", err)
	}
	if len(pts) != 2 || pts[1].Close != 184.25 || pts[1].Open != 184.22 {
		t.Fatalf("unexpected points %+v", pts)
	}
}

func TestReadPriceCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"no close":     "Date,Open\n2024-01-02,1\n",
		"no date":      "Day,Close\n2024-01-02,1\n",
		"bad close":    "Date,Close\n2024-01-02,abc\n",
		"bad late row": "Date,Close\n2024-01-02,1\nyesterday,2\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadPriceCSV(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCSVDir_PriceSeries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "AAPL_historical_data.csv"), []byte(yfinanceCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewCSVDir(dir)
	ctx := context.Background()

	pts, err := src.PriceSeries(ctx, "aapl", day("2024-01-02"), day("2024-01-04"))
	if err != nil {
		t.Fatalf("PriceSeries: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("end should be exclusive: got %d points", len(pts))
	}

	_, err = src.PriceSeries(ctx, "AAPL", day("2025-01-01"), day("2025-02-01"))
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("empty range: got %v", err)
	}
	_, err = src.PriceSeries(ctx, "NOPE", time.Time{}, time.Time{})
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("missing file: got %v", err)
	}
	if _, err = src.PriceSeries(ctx, "AAPL", day("2024-02-01"), day("2024-01-01")); err == nil {
		t.Fatal("expected inverted range to fail")
	}
}
