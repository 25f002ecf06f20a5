package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/sentiment"
	"sentiment-backtest/internal/strategy"
)

// SeriesSource loads an instrument's daily prices for [start, end).
type SeriesSource interface {
	PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error)
}

// PortfolioSummary maps instrument id to terminal balance. Instruments whose
// run failed have no entry.
type PortfolioSummary map[string]decimal.Decimal

// Instruments returns the ids in the summary, sorted.
func (s PortfolioSummary) Instruments() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InstrumentFailure records why an instrument is missing from the summary.
type InstrumentFailure struct {
	Instrument string
	Err        error
}

func (f InstrumentFailure) Error() string { return f.Instrument + ": " + f.Err.Error() }

func (f InstrumentFailure) Unwrap() error { return f.Err }

type BatchResult struct {
	Summary PortfolioSummary

	// Runs holds successful results in input order.
	Runs []*Result

	// Failures holds failed instruments in input order.
	Failures []InstrumentFailure
}

// Batch runs one policy over many instruments.
type Batch struct {
	Engine    *Engine
	Source    SeriesSource
	Sentiment sentiment.Provider
	Policy    strategy.Policy

	Start, End time.Time

	// Workers caps concurrent instrument runs. Values below 1 mean 1.
	Workers int

	// FetchTimeout bounds each price series load. Zero disables the bound.
	FetchTimeout time.Duration

	Log *slog.Logger
}

type slot struct {
	res *Result
	err error
}

// Run simulates every instrument and never fails as a whole: each failure is
// confined to its instrument and reported in BatchResult.Failures. Once ctx
// is done no further instruments are started; those are reported as failed
// with the context error.
func (b *Batch) Run(ctx context.Context, instruments []string) *BatchResult {
	ids := dedupe(instruments)
	log := logger.Component(b.Log, "batch")
	b.Engine.metrics.SetBatchSize(len(ids))

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	slots := make([]slot, len(ids))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			slots[i].err = fmt.Errorf("not started: %w", err)
			continue
		}
		g.Go(func() error {
			// Go may have blocked on a free worker past cancellation.
			if err := ctx.Err(); err != nil {
				slots[i].err = fmt.Errorf("not started: %w", err)
				return nil
			}
			slots[i].res, slots[i].err = b.runOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchResult{Summary: PortfolioSummary{}}
	for i, s := range slots {
		if s.err != nil {
			log.Warn("instrument failed", slog.String("instrument", ids[i]), slog.Any("error", s.err))
			out.Failures = append(out.Failures, InstrumentFailure{Instrument: ids[i], Err: s.err})
			continue
		}
		out.Summary[ids[i]] = s.res.FinalBalance
		out.Runs = append(out.Runs, s.res)
	}

	log.Info("batch finished",
		slog.Int("instruments", len(ids)),
		slog.Int("succeeded", len(out.Runs)),
		slog.Int("failed", len(out.Failures)))
	return out
}

func (b *Batch) runOne(ctx context.Context, id string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if b.Source == nil {
		return nil, errors.New("no price source configured")
	}

	fetchCtx := ctx
	if b.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, b.FetchTimeout)
		defer cancel()
	}
	points, err := b.Source.PriceSeries(fetchCtx, id, b.Start, b.End)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	return b.Engine.Run(ctx, id, points, b.Sentiment, b.Policy)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
