// Package backtest runs decision policies over historical price series.
//
// A run is strictly sequential: the decision of period i sees the account
// produced by period i-1. Independent instruments may run concurrently
// through a Batch.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/metrics"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/sentiment"
	"sentiment-backtest/internal/strategy"
)

const DefaultStartingBalance = 10000

type Config struct {
	StartingBalance decimal.Decimal
	Indicators      indicator.Params

	// SentimentTimeout bounds each sentiment lookup. Zero disables the bound.
	SentimentTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		StartingBalance:  decimal.NewFromInt(DefaultStartingBalance),
		Indicators:       indicator.DefaultParams(),
		SentimentTimeout: 5 * time.Second,
	}
}

type Engine struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.StartingBalance.IsNegative() {
		return nil, fmt.Errorf("starting balance must be >= 0, got %s", cfg.StartingBalance)
	}
	cfg.Indicators = cfg.Indicators.WithDefaults()
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	e.log = logger.Component(e.log, "engine")
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run simulates policy over one instrument's series and returns its ledger.
//
// The series must already be clean: an empty series fails with
// model.ErrDataUnavailable, an unordered or invalid one with
// model.ErrMalformedSeries. A failure inside a single period is recorded in
// Result.PeriodErrors and the period is skipped. A sentiment timeout or a
// cancelled ctx aborts the run.
func (e *Engine) Run(ctx context.Context, instrument string, points []model.PricePoint, src sentiment.Provider, policy strategy.Policy) (res *Result, err error) {
	if src == nil {
		return nil, errors.New("sentiment provider is nil")
	}
	if policy == nil {
		return nil, errors.New("policy is nil")
	}

	started := time.Now()
	defer func() {
		e.metrics.ObserveRun(err == nil, time.Since(started).Seconds())
	}()

	if err := model.ValidateSeries(points); err != nil {
		return nil, fmt.Errorf("%s: %w", instrument, err)
	}
	frame, err := indicator.Compute(points, e.cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("%s: indicators: %w", instrument, err)
	}

	state, err := model.NewPortfolioState(e.cfg.StartingBalance)
	if err != nil {
		return nil, err
	}

	log := e.log.With(slog.String("instrument", instrument), slog.String("policy", policy.Name()))
	log = log.With(logger.Attrs(ctx)...)

	res = &Result{
		Instrument:      instrument,
		Policy:          policy.Name(),
		StartingBalance: e.cfg.StartingBalance,
		Ledger:          make([]LedgerRecord, 0, frame.Len()),
	}

	for i := 0; i < frame.Len(); i++ {
		rec, err := e.step(ctx, instrument, frame.Prefix(i), src, policy, state)
		if err != nil {
			if errors.Is(err, ErrSentimentTimeout) || ctx.Err() != nil {
				log.Error("run aborted", slog.Int("period", i), slog.Any("error", err))
				return nil, fmt.Errorf("%s: period %d: %w", instrument, i, err)
			}
			pe := PeriodError{Index: i, Date: frame.Row(i).Date, Err: err}
			res.PeriodErrors = append(res.PeriodErrors, pe)
			e.metrics.PeriodError()
			log.Warn("period skipped",
				slog.Int("period", i),
				slog.String("date", pe.Date.Format(model.DateLayout)),
				slog.Any("error", err))
			continue
		}
		res.Ledger = append(res.Ledger, rec)
	}

	res.FinalBalance = state.Balance
	res.FinalPosition = state.Position

	log.Info("run finished",
		slog.Int("periods", frame.Len()),
		slog.Int("records", len(res.Ledger)),
		slog.Int("period_errors", len(res.PeriodErrors)),
		slog.String("final_balance", res.FinalBalance.String()),
		slog.Int("final_position", res.FinalPosition))
	return res, nil
}

// step evaluates one period. State is only touched by the final Apply, so a
// failed step leaves the account as the previous period left it.
func (e *Engine) step(ctx context.Context, instrument string, h indicator.History, src sentiment.Provider, policy strategy.Policy, state *model.PortfolioState) (rec LedgerRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	today := h.Today()
	decision := model.DecisionHold

	if policy.Ready(h) {
		score, err := e.score(ctx, src, instrument, today.Date)
		if err != nil {
			return LedgerRecord{}, err
		}
		decision = policy.Decide(h, score, *state)
		if !decision.Valid() {
			return LedgerRecord{}, fmt.Errorf("policy %s returned invalid decision %q", policy.Name(), decision)
		}
	}

	filled := state.Apply(decision, decimal.NewFromFloat(today.Close))

	return LedgerRecord{
		Date:     today.Date,
		Close:    today.Close,
		Decision: decision,
		Balance:  state.Balance,
		Position: state.Position,
		Filled:   filled,
	}, nil
}

type scoreResult struct {
	score float64
	err   error
}

// score asks src for a sentiment score, bounded by SentimentTimeout even when
// src ignores its context.
func (e *Engine) score(ctx context.Context, src sentiment.Provider, instrument string, date time.Time) (float64, error) {
	if e.cfg.SentimentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SentimentTimeout)
		defer cancel()
	}

	ch := make(chan scoreResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- scoreResult{err: fmt.Errorf("sentiment source panic: %v", r)}
			}
		}()
		s, err := src.Score(ctx, instrument, date)
		ch <- scoreResult{score: s, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
				return 0, fmt.Errorf("%w after %s", ErrSentimentTimeout, e.cfg.SentimentTimeout)
			}
			return 0, fmt.Errorf("sentiment: %w", r.err)
		}
		if err := sentiment.CheckScore(r.score); err != nil {
			return 0, err
		}
		return r.score, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w after %s", ErrSentimentTimeout, e.cfg.SentimentTimeout)
		}
		return 0, ctx.Err()
	}
}
