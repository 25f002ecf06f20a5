package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sentiment-backtest/internal/analysis"
	"sentiment-backtest/internal/api/models"
	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/logger"
)

// BatchHandler runs one policy over many instruments
type BatchHandler struct {
	Deps
	log *slog.Logger
}

func NewBatchHandler(d Deps) *BatchHandler {
	return &BatchHandler{Deps: d, log: logger.Component(d.Log, "api.batch")}
}

// RunBatch handles POST /api/v1/batch. Per-instrument failures are part of a
// successful response; only request and configuration errors fail the call.
func (h *BatchHandler) RunBatch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	setup, err := h.setup(overrides{
		startDate: req.StartDate,
		endDate:   req.EndDate,
		strategy:  req.Strategy,
		balance:   req.StartingBalance,
		sentiment: req.Sentiment,
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}

	workers := req.Workers
	if workers <= 0 {
		workers = h.Config.Batch.Workers
	}

	batchID := uuid.NewString()
	ctx := logger.WithRunID(c.Request.Context(), batchID)

	b := &backtest.Batch{
		Engine:       setup.engine,
		Source:       h.Source,
		Sentiment:    setup.sentiment,
		Policy:       setup.policy,
		Start:        setup.start,
		End:          setup.end,
		Workers:      workers,
		FetchTimeout: h.Config.Data.FetchTimeout,
		Log:          h.log,
	}
	out := b.Run(ctx, req.Instruments)

	resp := models.BatchResponse{
		Status:  "completed",
		Summary: out.Summary,
		RunIDs:  make(map[string]string, len(out.Runs)),
		Ranking: analysis.RankByFinalEquity(out.Runs),
	}
	for _, res := range out.Runs {
		id := uuid.NewString()
		if h.Results != nil {
			h.Results.Set(id, res)
		}
		resp.RunIDs[res.Instrument] = id
	}
	for _, f := range out.Failures {
		resp.Failures = append(resp.Failures, models.FailureInfo{Instrument: f.Instrument, Error: f.Err.Error()})
	}

	h.log.Info("batch completed", append(logger.Attrs(ctx),
		slog.Int("succeeded", len(out.Runs)),
		slog.Int("failed", len(out.Failures)))...)
	c.JSON(http.StatusOK, resp)
}
