package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sentiment-backtest/internal/config"
	"sentiment-backtest/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = cmdBacktest(ctx, os.Args[2:])
	case "batch":
		err = cmdBatch(ctx, os.Args[2:])
	case "import":
		err = cmdImport(ctx, os.Args[2:])
	case "universe":
		err = cmdUniverse(ctx, os.Args[2:])
	case "strategies":
		err = cmdStrategies()
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.msg)
			os.Exit(2)
		}
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest --config config.yaml --symbol AAPL --start 2023-01-01 --end 2024-01-01 --out results")
	fmt.Println("  cli batch    --config config.yaml --out results")
	fmt.Println("  cli import   --db data/prices.db --symbol AAPL --csv data/AAPL_historical_data.csv")
	fmt.Println("  cli import   --db data/prices.db --json prices.json")
	fmt.Println("  cli universe --file data/universe.json --add AAPL,MSFT [--db data/prices.db]")
	fmt.Println("  cli strategies")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - backtest writes {SYMBOL}_backtest_results.csv with columns date,close,decision,balance,position")
	fmt.Println("  - batch also writes portfolio_summary.csv and prints instruments ranked by final equity")
	fmt.Println("  - BACKTEST_* environment variables (and .env) override the config file")
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// setup loads .env and the config file, then installs the process logger.
func setup(cfgPath string) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	l := logger.Init("backtest-cli", level, cfg.Log.Format)
	return cfg, l, nil
}

// stringList is a repeatable, comma-separated flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*s = append(*s, p)
		}
	}
	return nil
}

var _ flag.Value = (*stringList)(nil)
