// Package sentiment supplies the per-period sentiment score consulted by the
// decision policies. Scores are conventionally in [-1, 1]; how they are
// produced from text is outside this module.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Provider returns the sentiment score of an instrument on a date.
// Implementations must be safe for concurrent use; the batch runner shares
// one provider across workers.
type Provider interface {
	Score(ctx context.Context, instrument string, date time.Time) (float64, error)
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context, instrument string, date time.Time) (float64, error)

func (f Func) Score(ctx context.Context, instrument string, date time.Time) (float64, error) {
	return f(ctx, instrument, date)
}

// Constant scores every period the same.
type Constant float64

func (c Constant) Score(ctx context.Context, _ string, _ time.Time) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return float64(c), nil
}

// CheckScore rejects scores a policy cannot compare against.
func CheckScore(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("sentiment score %v is not finite", s)
	}
	return nil
}
