package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_Exposition(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveRun(true, 0.02)
	m.ObserveRun(false, 0.01)
	m.PeriodError()
	m.SetBatchSize(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`backtest_runs_total{status="ok"} 1`,
		`backtest_runs_total{status="failed"} 1`,
		`backtest_period_errors_total 1`,
		`backtest_batch_instruments 3`,
		`backtest_run_duration_seconds_count 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in exposition:\n%s", want, out)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun(true, 1)
	m.PeriodError()
	m.SetBatchSize(1)
}
