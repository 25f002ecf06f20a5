package analysis

import (
	"sort"

	"sentiment-backtest/internal/backtest"
)

type Ranked struct {
	Rank int `json:"rank"`
	Summary
}

// RankByFinalEquity summarizes every run and sorts descending by final
// equity, breaking ties by instrument id.
func RankByFinalEquity(runs []*backtest.Result) []Ranked {
	out := make([]Ranked, 0, len(runs))
	for _, r := range runs {
		out = append(out, Ranked{Summary: Summarize(r)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].FinalEquity.Cmp(out[j].FinalEquity); c != 0 {
			return c > 0
		}
		return out[i].Instrument < out[j].Instrument
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
