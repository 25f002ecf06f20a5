package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sentiment-backtest/internal/api/models"
	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/config"
	"sentiment-backtest/internal/data"
	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/metrics"
	"sentiment-backtest/internal/model"
	"sentiment-backtest/internal/sentiment"
	"sentiment-backtest/internal/strategy"
)

// Deps are shared by the backtest and batch handlers.
type Deps struct {
	// Config supplies defaults for every request. It is never mutated.
	Config    *config.Config
	Source    backtest.SeriesSource
	Sentiment sentiment.Provider
	Metrics   *metrics.Metrics

	// Results keeps finished runs so their ledgers can be fetched by id.
	Results *data.TTLCache[*backtest.Result]

	Log *slog.Logger
}

// runSetup is everything needed to simulate one request.
type runSetup struct {
	engine    *backtest.Engine
	policy    strategy.Policy
	sentiment sentiment.Provider
	start     time.Time
	end       time.Time
}

type overrides struct {
	startDate, endDate string
	strategy           *models.StrategyConfig
	balance            *decimal.Decimal
	indicators         *indicator.Params
	sentiment          *float64
}

// requestError carries the HTTP status and code for a rejected request.
type requestError struct {
	status int
	code   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(code string, err error) error {
	return &requestError{status: http.StatusBadRequest, code: code, err: err}
}

// setup applies request overrides on top of the server configuration.
func (d Deps) setup(o overrides) (*runSetup, error) {
	start, err := model.ParseDay(o.startDate)
	if err != nil {
		return nil, badRequest("INVALID_DATE", errors.New("start_date must be in YYYY-MM-DD format"))
	}
	end, err := model.ParseDay(o.endDate)
	if err != nil {
		return nil, badRequest("INVALID_DATE", errors.New("end_date must be in YYYY-MM-DD format"))
	}
	if !end.After(start) {
		return nil, badRequest("INVALID_DATE", errors.New("end_date must be after start_date"))
	}

	sc := d.Config.Strategy
	if o.strategy != nil {
		sc = config.MergeStrategy(sc, config.StrategyConfig{Name: o.strategy.Name, Params: o.strategy.Params})
	}
	policy, err := strategy.New(sc.Name, sc.Params)
	if err != nil {
		return nil, badRequest("INVALID_CONFIG", err)
	}

	ec := d.Config.EngineConfig()
	if o.balance != nil {
		ec.StartingBalance = *o.balance
	}
	if o.indicators != nil {
		ec.Indicators = o.indicators.WithDefaults()
	}
	engine, err := backtest.New(ec, backtest.WithLogger(d.Log), backtest.WithMetrics(d.Metrics))
	if err != nil {
		return nil, badRequest("INVALID_CONFIG", err)
	}

	src := d.Sentiment
	if o.sentiment != nil {
		if err := sentiment.CheckScore(*o.sentiment); err != nil {
			return nil, badRequest("INVALID_REQUEST", err)
		}
		src = sentiment.Constant(*o.sentiment)
	}
	if src == nil {
		return nil, &requestError{status: http.StatusInternalServerError, code: "INVALID_CONFIG", err: errors.New("no sentiment source configured")}
	}

	return &runSetup{engine: engine, policy: policy, sentiment: src, start: start, end: end}, nil
}

// fetch loads a price series bounded by data.fetch_timeout.
func (d Deps) fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error) {
	if t := d.Config.Data.FetchTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return d.Source.PriceSeries(ctx, symbol, start, end)
}

// classify maps a data or simulation error onto an HTTP status and code.
func classify(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.code
	}

	var apiErr *data.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return http.StatusNotFound, "DATA_UNAVAILABLE"
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusUnauthorized, "DATA_FETCH_ERROR"
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "DATA_FETCH_ERROR"
		default:
			return http.StatusBadGateway, "DATA_FETCH_ERROR"
		}
	}

	switch {
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusNotFound, "DATA_UNAVAILABLE"
	case errors.Is(err, model.ErrMalformedSeries):
		return http.StatusUnprocessableEntity, "MALFORMED_SERIES"
	case errors.Is(err, backtest.ErrSentimentTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "BACKTEST_ERROR"
	}
}

func respondError(c *gin.Context, err error, details map[string]interface{}) {
	status, code := classify(err)
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: details,
		},
	})
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

func periodErrors(errs []backtest.PeriodError) []models.PeriodErrorInfo {
	if len(errs) == 0 {
		return nil
	}
	out := make([]models.PeriodErrorInfo, 0, len(errs))
	for _, pe := range errs {
		out = append(out, models.PeriodErrorInfo{
			Index: pe.Index,
			Date:  pe.Date.Format(model.DateLayout),
			Error: pe.Err.Error(),
		})
	}
	return out
}

func symbolDetails(symbol string, start, end time.Time) map[string]interface{} {
	return map[string]interface{}{
		"symbol":     symbol,
		"start_date": start.Format(model.DateLayout),
		"end_date":   end.Format(model.DateLayout),
	}
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("%s not found or expired", what),
		},
	})
}
