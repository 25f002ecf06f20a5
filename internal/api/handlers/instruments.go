package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentiment-backtest/internal/api/models"
	"sentiment-backtest/internal/data"
)

// InstrumentLister is implemented by price stores that can enumerate what
// they hold, such as data.SQLiteStore.
type InstrumentLister interface {
	Instruments(ctx context.Context) ([]string, error)
}

// ListInstruments handles GET /api/v1/instruments. It returns the configured
// batch universe and, when the price source is a store, the symbols stored.
func (h *BatchHandler) ListInstruments(c *gin.Context) {
	u := data.Universe{Instruments: []data.Instrument{}}
	for _, s := range h.Config.Batch.Instruments {
		u.Add(data.Instrument{Symbol: s})
	}
	if path := h.Config.Batch.UniverseFile; path != "" {
		loaded, err := data.LoadUniverse(path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "UNIVERSE_LOAD_ERROR",
					Message: fmt.Sprintf("Failed to load universe: %v", err),
				},
			})
			return
		}
		for _, in := range loaded.Instruments {
			u.Add(in)
		}
	}

	resp := gin.H{"instruments": u.Instruments}
	if l, ok := listerOf(h.Source); ok {
		stored, err := l.Instruments(c.Request.Context())
		if err != nil {
			respondError(c, err, nil)
			return
		}
		resp["stored"] = stored
	}
	c.JSON(http.StatusOK, resp)
}

// listerOf looks through cache wrappers for a source that can list symbols.
func listerOf(src any) (InstrumentLister, bool) {
	for src != nil {
		if l, ok := src.(InstrumentLister); ok {
			return l, true
		}
		u, ok := src.(interface{ Unwrap() data.Source })
		if !ok {
			return nil, false
		}
		src = u.Unwrap()
	}
	return nil, false
}
