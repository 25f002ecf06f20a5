// Package api exposes the simulator over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentiment-backtest/internal/api/handlers"
	"sentiment-backtest/internal/api/middleware"
	"sentiment-backtest/internal/logger"
)

// NewRouter wires every route. allowedOrigins is passed to the CORS
// middleware; empty allows any origin.
func NewRouter(d handlers.Deps, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	httpLog := logger.Component(d.Log, "http")
	router.Use(middleware.CORS(allowedOrigins...))
	router.Use(middleware.Logger(httpLog))
	router.Use(middleware.ErrorHandler(httpLog))

	backtestHandler := handlers.NewBacktestHandler(d)
	batchHandler := handlers.NewBatchHandler(d)
	strategyHandler := handlers.NewStrategyHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.GET("/backtest/:id/ledger", backtestHandler.GetLedger)
		v1.POST("/batch", batchHandler.RunBatch)

		v1.GET("/strategies", strategyHandler.ListStrategies)
		v1.GET("/instruments", batchHandler.ListInstruments)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
