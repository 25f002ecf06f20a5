package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestValidateSeries(t *testing.T) {
	tests := []struct {
		name   string
		points []PricePoint
		want   error
	}{
		{"empty", nil, ErrDataUnavailable},
		{"ok", []PricePoint{{Date: day(1), Close: 10}, {Date: day(2), Close: 11}}, nil},
		{"duplicate date", []PricePoint{{Date: day(1), Close: 10}, {Date: day(1), Close: 11}}, ErrMalformedSeries},
		{"descending", []PricePoint{{Date: day(2), Close: 10}, {Date: day(1), Close: 11}}, ErrMalformedSeries},
		{"zero close", []PricePoint{{Date: day(1), Close: 0}}, ErrMalformedSeries},
		{"nan close", []PricePoint{{Date: day(1), Close: math.NaN()}}, ErrMalformedSeries},
		{"negative open", []PricePoint{{Date: day(1), Open: -1, Close: 10}}, ErrMalformedSeries},
		{"missing date", []PricePoint{{Close: 10}}, ErrMalformedSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeries(tt.points)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
