package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Instrument is an entry of a universe file.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// Universe is the list of instruments a batch runs over.
type Universe struct {
	UpdatedAt   string       `json:"updated_at"` // RFC 3339
	Instruments []Instrument `json:"instruments"`
}

func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.Instruments))
	for _, in := range u.Instruments {
		if s := normalizeSymbol(in.Symbol); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Add inserts or replaces an instrument, keeping the list sorted by symbol.
func (u *Universe) Add(in Instrument) {
	in.Symbol = normalizeSymbol(in.Symbol)
	for i := range u.Instruments {
		if normalizeSymbol(u.Instruments[i].Symbol) == in.Symbol {
			u.Instruments[i] = in
			return
		}
	}
	u.Instruments = append(u.Instruments, in)
	sort.Slice(u.Instruments, func(i, j int) bool {
		return u.Instruments[i].Symbol < u.Instruments[j].Symbol
	})
}

func LoadUniverse(path string) (*Universe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var u Universe
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}
	return &u, nil
}

// SaveUniverse writes u to path, stamping UpdatedAt.
func SaveUniverse(u *Universe, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write universe file: %w", err)
	}
	return nil
}
