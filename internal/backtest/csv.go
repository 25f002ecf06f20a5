package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"sentiment-backtest/internal/model"
)

// Column order of both artifacts is relied on by downstream charting.
var (
	LedgerHeader  = []string{"date", "close", "decision", "balance", "position"}
	SummaryHeader = []string{"instrument_id", "final_balance"}
)

// WriteLedger writes one row per ledger record.
func WriteLedger(w io.Writer, ledger []LedgerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, r := range ledger {
		row := []string{
			r.Date.Format(model.DateLayout),
			fmtFloat(r.Close),
			string(r.Decision),
			r.Balance.String(),
			strconv.Itoa(r.Position),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes one row per instrument in the summary, sorted by id.
func WriteSummary(w io.Writer, s PortfolioSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, id := range s.Instruments() {
		if err := cw.Write([]string{id, s[id].String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLedgerCSV writes the ledger to path, creating parent directories.
// Failures are returned as *PersistenceError.
func WriteLedgerCSV(path string, ledger []LedgerRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteLedger(w, ledger) })
}

// WriteSummaryCSV writes the portfolio summary to path.
// Failures are returned as *PersistenceError.
func WriteSummaryCSV(path string, s PortfolioSummary) error {
	return writeFile(path, func(w io.Writer) error { return WriteSummary(w, s) })
}

// LedgerFileName is the per-instrument ledger file name.
func LedgerFileName(instrument string) string {
	return instrument + "_backtest_results.csv"
}

const SummaryFileName = "portfolio_summary.csv"

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Path: path, Err: err}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := write(f); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
