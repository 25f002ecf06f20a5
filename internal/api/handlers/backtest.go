package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sentiment-backtest/internal/analysis"
	"sentiment-backtest/internal/api/models"
	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/logger"
)

// BacktestHandler handles single-instrument backtest requests
type BacktestHandler struct {
	Deps
	log *slog.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(d Deps) *BacktestHandler {
	return &BacktestHandler{Deps: d, log: logger.Component(d.Log, "api.backtest")}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	setup, err := h.setup(overrides{
		startDate:  req.StartDate,
		endDate:    req.EndDate,
		strategy:   req.Strategy,
		balance:    req.StartingBalance,
		indicators: req.Indicators,
		sentiment:  req.Sentiment,
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}

	id := uuid.NewString()
	ctx := logger.WithRunID(c.Request.Context(), id)
	log := h.log.With(logger.Attrs(ctx)...).With(slog.String("symbol", symbol))

	points, err := h.fetch(ctx, symbol, setup.start, setup.end)
	if err != nil {
		log.Warn("price fetch failed", slog.Any("error", err))
		respondError(c, fmt.Errorf("failed to fetch prices: %w", err), symbolDetails(symbol, setup.start, setup.end))
		return
	}

	res, err := setup.engine.Run(ctx, symbol, points, setup.sentiment, setup.policy)
	if err != nil {
		log.Error("backtest failed", slog.Any("error", err))
		respondError(c, err, symbolDetails(symbol, setup.start, setup.end))
		return
	}

	if h.Results != nil {
		h.Results.Set(id, res)
	}

	resp := models.BacktestResponse{
		ID:           id,
		Status:       "completed",
		Summary:      analysis.Summarize(res),
		PeriodErrors: periodErrors(res.PeriodErrors),
	}
	if req.Options != nil && req.Options.IncludeLedger {
		resp.Ledger = res.Ledger
	}

	log.Info("backtest completed",
		slog.Int("periods", len(res.Ledger)),
		slog.String("final_balance", res.FinalBalance.String()))
	c.JSON(http.StatusOK, resp)
}

// GetLedger handles GET /api/v1/backtest/:id/ledger.
// ?format=csv returns the ledger in the same layout the CLI writes to disk.
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	if h.Results == nil {
		notFound(c, "backtest "+id)
		return
	}
	res, ok := h.Results.Get(id)
	if !ok {
		notFound(c, "backtest "+id)
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, models.LedgerResponse{
			ID:         id,
			Instrument: res.Instrument,
			Policy:     res.Policy,
			Ledger:     res.Ledger,
		})
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backtest.LedgerFileName(res.Instrument)))
		c.Status(http.StatusOK)
		if err := backtest.WriteLedger(c.Writer, res.Ledger); err != nil {
			h.log.Error("ledger write failed", slog.String("run_id", id), slog.Any("error", err))
		}
	default:
		invalidRequest(c, errors.New("format must be json or csv"))
	}
}
