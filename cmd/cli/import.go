package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"sentiment-backtest/internal/data"
	"sentiment-backtest/internal/model"
)

func cmdImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	dbPath := fs.String("db", "", "SQLite database (default data.db_path)")
	symbol := fs.String("symbol", "", "Instrument id (required with --csv; overrides the symbol in --json)")
	csvPath := fs.String("csv", "", "Daily price CSV (yfinance layout)")
	jsonPath := fs.String("json", "", "Price API JSON response")
	universePath := fs.String("universe", "", "Optional universe file to add the symbol to")
	_ = fs.Parse(args)

	if (*csvPath == "") == (*jsonPath == "") {
		return usageError{"exactly one of --csv or --json is required"}
	}

	cfg, l, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.Data.DBPath
	}
	if *dbPath == "" {
		return usageError{"--db is required (or set data.db_path)"}
	}

	id := strings.ToUpper(strings.TrimSpace(*symbol))
	var points []model.PricePoint
	if *csvPath != "" {
		if id == "" {
			return usageError{"--symbol is required with --csv"}
		}
		if points, err = data.LoadPriceCSV(*csvPath); err != nil {
			return err
		}
	} else {
		resp, err := data.LoadPricesJSON(*jsonPath)
		if err != nil {
			return err
		}
		if id == "" {
			id = strings.ToUpper(strings.TrimSpace(resp.Symbol))
		}
		if id == "" {
			return usageError{"--symbol is required: the JSON file names no symbol"}
		}
		if points, err = resp.Points(); err != nil {
			return err
		}
	}
	if err := model.ValidateSeries(points); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	store, err := data.OpenSQLite(*dbPath, l)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Upsert(ctx, id, points); err != nil {
		return err
	}
	fmt.Printf("Imported %d rows for %s into %s (%s to %s)\n", len(points), id, *dbPath,
		points[0].Date.Format(model.DateLayout), points[len(points)-1].Date.Format(model.DateLayout))

	if *universePath != "" {
		return addToUniverse(*universePath, []data.Instrument{{Symbol: id}})
	}
	return nil
}

// cmdUniverse maintains the universe file that batch.universe_file points at.
func cmdUniverse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("universe", flag.ExitOnError)
	file := fs.String("file", "data/universe.json", "Universe file to update")
	dbPath := fs.String("db", "", "Optional SQLite database whose stored instruments are added")
	var add stringList
	fs.Var(&add, "add", "Symbols to add, comma-separated (SYMBOL or SYMBOL:Name:Exchange)")
	_ = fs.Parse(args)

	var instruments []data.Instrument
	for _, entry := range add {
		parts := strings.SplitN(entry, ":", 3)
		in := data.Instrument{Symbol: parts[0]}
		if len(parts) > 1 {
			in.Name = parts[1]
		}
		if len(parts) > 2 {
			in.Exchange = parts[2]
		}
		instruments = append(instruments, in)
	}

	if *dbPath != "" {
		store, err := data.OpenSQLite(*dbPath, nil)
		if err != nil {
			return err
		}
		stored, err := store.Instruments(ctx)
		_ = store.Close()
		if err != nil {
			return err
		}
		for _, s := range stored {
			instruments = append(instruments, data.Instrument{Symbol: s})
		}
	}

	return addToUniverse(*file, instruments)
}

// addToUniverse merges instruments into the universe at path, creating it if
// missing. Entries already present keep their name and exchange unless the new
// entry sets them.
func addToUniverse(path string, instruments []data.Instrument) error {
	u := &data.Universe{}
	if _, err := os.Stat(path); err == nil {
		if u, err = data.LoadUniverse(path); err != nil {
			return err
		}
	}

	existing := map[string]data.Instrument{}
	for _, in := range u.Instruments {
		existing[strings.ToUpper(in.Symbol)] = in
	}
	for _, in := range instruments {
		if prev, ok := existing[strings.ToUpper(strings.TrimSpace(in.Symbol))]; ok {
			if in.Name == "" {
				in.Name = prev.Name
			}
			if in.Exchange == "" {
				in.Exchange = prev.Exchange
			}
		}
		u.Add(in)
	}
	u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := data.SaveUniverse(u, path); err != nil {
		return err
	}
	fmt.Printf("Saved %d instruments to %s\n", len(u.Instruments), path)
	return nil
}
