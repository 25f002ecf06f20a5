package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"sentiment-backtest/internal/analysis"
	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/config"
	"sentiment-backtest/internal/metrics"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/strategy"
)

func cmdBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	symbol := fs.String("symbol", "", "Instrument to backtest")
	start := fs.String("start", "", "First date, YYYY-MM-DD (default batch.start_date)")
	end := fs.String("end", "", "End date, exclusive, YYYY-MM-DD (default batch.end_date)")
	outDir := fs.String("out", "", "Output directory (default output.dir)")
	policyName := fs.String("strategy", "", "Policy override: baseline or enhanced")
	_ = fs.Parse(args)

	if strings.TrimSpace(*symbol) == "" {
		return usageError{"--symbol is required"}
	}

	cfg, l, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if *start != "" {
		cfg.Batch.StartDate = *start
	}
	if *end != "" {
		cfg.Batch.EndDate = *end
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *policyName != "" {
		cfg.Strategy = config.MergeStrategy(cfg.Strategy, config.StrategyConfig{Name: *policyName})
	}

	b, closeFn, err := newBatch(cfg, l)
	if err != nil {
		return err
	}
	defer closeFn()

	id := strings.ToUpper(strings.TrimSpace(*symbol))
	out := b.Run(ctx, []string{id})
	if len(out.Failures) > 0 {
		return out.Failures[0]
	}
	res := out.Runs[0]

	path := filepath.Join(cfg.Output.Dir, backtest.LedgerFileName(id))
	if err := backtest.WriteLedgerCSV(path, res.Ledger); err != nil {
		return err
	}

	s := analysis.Summarize(res)
	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), path)
	fmt.Printf("Final balance=%s position=%d equity=%s return=%.2f%% max drawdown=%.2f%%\n",
		s.FinalBalance.StringFixed(2), s.FinalPosition, s.FinalEquity.StringFixed(2), s.TotalReturnPct, s.MaxDrawdownPct)
	if s.PeriodErrors > 0 {
		fmt.Printf("%d period(s) skipped, see log\n", s.PeriodErrors)
	}
	return nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outDir := fs.String("out", "", "Output directory (default output.dir)")
	workers := fs.Int("workers", 0, "Concurrent instruments (default batch.workers)")
	var extra stringList
	fs.Var(&extra, "instruments", "Instruments in addition to the config, comma-separated")
	_ = fs.Parse(args)

	cfg, l, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	ids, err := cfg.Instruments()
	if err != nil {
		return err
	}
	ids = append(ids, extra...)
	if len(ids) == 0 {
		return usageError{"no instruments: set batch.instruments, batch.universe_file or --instruments"}
	}

	b, closeFn, err := newBatch(cfg, l)
	if err != nil {
		return err
	}
	defer closeFn()

	out := b.Run(ctx, ids)

	// A failed ledger write is reported but does not discard the other files.
	var writeErrs []error
	for _, res := range out.Runs {
		path := filepath.Join(cfg.Output.Dir, backtest.LedgerFileName(res.Instrument))
		if err := backtest.WriteLedgerCSV(path, res.Ledger); err != nil {
			l.Error("ledger not written", slog.String("instrument", res.Instrument), slog.Any("error", err))
			writeErrs = append(writeErrs, err)
		}
	}
	summaryPath := filepath.Join(cfg.Output.Dir, backtest.SummaryFileName)
	if err := backtest.WriteSummaryCSV(summaryPath, out.Summary); err != nil {
		return err
	}

	printRanking(analysis.RankByFinalEquity(out.Runs))
	for _, f := range out.Failures {
		fmt.Printf("FAILED %s: %v\n", f.Instrument, f.Err)
	}
	fmt.Printf("Wrote %s (%d instruments, %d failed)\n", summaryPath, len(out.Summary), len(out.Failures))

	if len(writeErrs) > 0 {
		return fmt.Errorf("%d ledger file(s) not written: %w", len(writeErrs), writeErrs[0])
	}
	return nil
}

func cmdStrategies() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, info := range strategy.Catalog() {
		fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Description)
		for _, p := range info.Parameters {
			fmt.Fprintf(w, "  %s\t%s (%s, default %v)\n", p.Name, p.Description, p.Type, p.Default)
		}
	}
	return w.Flush()
}

// newBatch wires the configured price source, sentiment source and policy.
// The returned close function is never nil.
func newBatch(cfg *config.Config, l *slog.Logger) (*backtest.Batch, func() error, error) {
	noop := func() error { return nil }

	policy, err := cfg.Policy()
	if err != nil {
		return nil, noop, err
	}
	engine, err := backtest.New(cfg.EngineConfig(),
		backtest.WithLogger(l),
		backtest.WithMetrics(metrics.NewMetrics(nil)))
	if err != nil {
		return nil, noop, err
	}
	sent, err := cfg.SentimentProvider()
	if err != nil {
		return nil, noop, err
	}
	start, end, err := cfg.DateRange()
	if err != nil {
		return nil, noop, err
	}
	src, closeFn, err := cfg.PriceSource(l)
	if err != nil {
		return nil, noop, err
	}

	return &backtest.Batch{
		Engine:       engine,
		Source:       src,
		Sentiment:    sent,
		Policy:       policy,
		Start:        start,
		End:          end,
		Workers:      cfg.Batch.Workers,
		FetchTimeout: cfg.Data.FetchTimeout,
		Log:          l,
	}, closeFn, nil
}

func printRanking(ranked []analysis.Ranked) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tinstrument\tfinal balance\tposition\tequity\treturn%\tmax dd%\tbuy&hold%\tfills\tfirst\tlast")
	for _, r := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%.2f\t%.2f\t%.2f\t%d/%d\t%s\t%s\n",
			r.Rank,
			r.Instrument,
			r.FinalBalance.StringFixed(2),
			r.FinalPosition,
			r.FinalEquity.StringFixed(2),
			r.TotalReturnPct,
			r.MaxDrawdownPct,
			r.BuyAndHoldReturnPct,
			r.BuyFills, r.SellFills,
			r.Start.Format(model.DateLayout),
			r.End.Format(model.DateLayout),
		)
	}
	_ = w.Flush()
}
