package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/model"
)

const sqliteDSNOptions = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// SQLiteStore keeps daily prices in a SQLite database. Dates are stored as
// YYYY-MM-DD text so that lexical and chronological order agree.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, l *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+sqliteDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.Component(l, "sqlite")}
	s.log.Info("opened price store", slog.String("path", path))
	return s, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			instrument TEXT    NOT NULL,
			date       TEXT    NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     INTEGER NOT NULL,
			PRIMARY KEY (instrument, date)
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Upsert writes points for instrument in a single transaction, replacing
// rows with the same date.
func (s *SQLiteStore) Upsert(ctx context.Context, instrument string, points []model.PricePoint) error {
	instrument = normalizeSymbol(instrument)
	if instrument == "" {
		return fmt.Errorf("instrument is required")
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_prices (instrument, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, instrument, p.Date.Format(model.DateLayout),
			p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return fmt.Errorf("sqlite insert %s %s: %w", instrument, p.Date.Format(model.DateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	s.log.Info("stored prices",
		slog.String("instrument", instrument),
		slog.Int("rows", len(points)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *SQLiteStore) PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	lo, hi := "", "9999-12-31"
	if !start.IsZero() {
		lo = start.Format(model.DateLayout)
	}
	if !end.IsZero() {
		hi = end.Format(model.DateLayout)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE instrument = ? AND date >= ? AND date < ?
		ORDER BY date ASC
	`, normalizeSymbol(instrument), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("sqlite query daily_prices: %w", err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var day string
		if err := rows.Scan(&day, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan daily_prices: %w", err)
		}
		if p.Date, err = model.ParseDay(day); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, unavailable(instrument, start, end)
	}
	return points, nil
}

// Instruments lists stored instruments in sorted order.
func (s *SQLiteStore) Instruments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT instrument FROM daily_prices ORDER BY instrument`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query instruments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
