package data

import (
	"encoding/json"
	"fmt"
	"os"

	"sentiment-backtest/internal/model"
)

// PriceResponse is the JSON shape served by the price API and accepted by
// LoadPricesJSON.
type PriceResponse struct {
	Symbol string     `json:"symbol"`
	Data   []PriceBar `json:"data"`
}

type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Points converts the bars to a sorted, de-duplicated series.
func (r *PriceResponse) Points() ([]model.PricePoint, error) {
	out := make([]model.PricePoint, 0, len(r.Data))
	for i, b := range r.Data {
		d, err := parseDate(b.Date)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		out = append(out, model.PricePoint{
			Date: d, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}
	return Normalize(out), nil
}

func LoadPricesJSON(path string) (*PriceResponse, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var resp PriceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &resp, nil
}
