package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"sentiment-backtest/internal/api"
	"sentiment-backtest/internal/api/handlers"
	"sentiment-backtest/internal/backtest"
	"sentiment-backtest/internal/config"
	"sentiment-backtest/internal/data"
	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("BACKTEST_CONFIG"), "Path to YAML config (optional)")
	resultTTL := flag.Duration("result-ttl", time.Hour, "How long finished runs stay retrievable by id")
	flag.Parse()

	if err := run(*cfgPath, *resultTTL); err != nil {
		slog.Error("api server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfgPath string, resultTTL time.Duration) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	l := logger.Init("backtest-api", level, cfg.Log.Format)

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	var origins []string
	if v := os.Getenv("API_CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	src, closeSource, err := cfg.PriceSource(l)
	if err != nil {
		return err
	}
	defer closeSource()

	sent, err := cfg.SentimentProvider()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := data.NewTTLCache[*backtest.Result](resultTTL)
	go results.RunJanitor(ctx, time.Minute)
	if cached, ok := src.(*data.CachedSource); ok {
		go cached.Cache().RunJanitor(ctx, time.Minute)
	}

	router := api.NewRouter(handlers.Deps{
		Config:    cfg,
		Source:    src,
		Sentiment: sent,
		Metrics:   metrics.NewMetrics(nil),
		Results:   results,
		Log:       l,
	}, origins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("starting API server",
			slog.String("addr", srv.Addr),
			slog.String("data_source", cfg.Data.Source),
			slog.String("strategy", cfg.Strategy.Name))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
