package backtest

import (
	"errors"
	"fmt"
	"time"

	"sentiment-backtest/internal/model"
)

// ErrSentimentTimeout means the sentiment source did not answer within the
// configured bound. It aborts the instrument's run.
var ErrSentimentTimeout = errors.New("sentiment source timed out")

// PeriodError is a failure confined to one period. The period is left out of
// the ledger and the run continues with the next one.
type PeriodError struct {
	Index int
	Date  time.Time
	Err   error
}

func (e PeriodError) Error() string {
	return fmt.Sprintf("period %d (%s): %v", e.Index, e.Date.Format(model.DateLayout), e.Err)
}

func (e PeriodError) Unwrap() error { return e.Err }

// PersistenceError is a failure to write an output artifact. In-memory results
// are unaffected.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
