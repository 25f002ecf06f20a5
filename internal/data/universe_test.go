package data

import (
	"path/filepath"
	"testing"
)

func TestUniverse_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "universe.json")

	u := &Universe{}
	u.Add(Instrument{Symbol: "msft"})
	u.Add(Instrument{Symbol: "AAPL", Name: "Apple"})
	u.Add(Instrument{Symbol: "aapl", Name: "Apple Inc."})
	if err := SaveUniverse(u, path); err != nil {
		t.Fatalf("SaveUniverse: %v", err)
	}

	got, err := LoadUniverse(path)
	if err != nil {
		t.Fatalf("LoadUniverse: %v", err)
	}
	syms := got.Symbols()
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Fatalf("Symbols = %v", syms)
	}
	if got.Instruments[0].Name != "Apple Inc." || got.UpdatedAt == "" {
		t.Fatalf("unexpected universe %+v", got)
	}
}
