package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/model"
)

// PriceAPIClient fetches daily prices from an HTTP JSON API:
//
//	GET {BaseURL}/v1/prices/{symbol}?start=YYYY-MM-DD&end=YYYY-MM-DD
//
// answered with a PriceResponse. Requests are rate limited client side so
// concurrent batch workers stay inside the provider's quota.
type PriceAPIClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client

	limiter *rate.Limiter
	log     *slog.Logger
}

type PriceAPIOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	Logger        *slog.Logger
}

// NewPriceAPIClient creates a client. A zero Timeout means 30s; a
// non-positive RatePerSecond disables the limiter.
func NewPriceAPIClient(apiKey, baseURL string, opts PriceAPIOptions) *PriceAPIClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &PriceAPIClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		log:     logger.Component(opts.Logger, "price-api"),
	}
}

// APIError is a non-success answer from the price API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string { return e.Message }

// Unwrap maps "not found" to model.ErrDataUnavailable.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return model.ErrDataUnavailable
	}
	return nil
}

func (c *PriceAPIClient) PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error) {
	if c.BaseURL == "" {
		return nil, &APIError{Code: "MISSING_BASE_URL", Message: "price API base URL is required"}
	}
	if instrument == "" {
		return nil, errors.New("instrument is required")
	}
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.BaseURL + "/v1/prices/" + url.PathEscape(normalizeSymbol(instrument)))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	if !start.IsZero() {
		q.Set("start", start.Format(model.DateLayout))
	}
	if !end.IsZero() {
		q.Set("end", end.Format(model.DateLayout))
	}
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	log := c.log.With(slog.String("instrument", instrument), slog.String("path", u.Path))
	began := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(began)
	if err != nil {
		log.Warn("request failed", slog.Any("error", err), slog.Duration("duration", duration))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("response", slog.Int("status", resp.StatusCode), slog.Duration("duration", duration))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("no prices for %s", instrument),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Invalid API key or insufficient permissions",
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		log.Warn("rate limited by provider", slog.String("retry_after", retryAfter))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var body PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	points, err := body.Points()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", instrument, err)
	}

	points = InRange(points, start, end)
	if len(points) == 0 {
		return nil, unavailable(instrument, start, end)
	}
	log.Info("fetched prices", slog.Int("points", len(points)))
	return points, nil
}
