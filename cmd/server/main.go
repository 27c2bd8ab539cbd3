package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-baseline-go/internal/api"
	"github.com/irfndi/forecast-baseline-go/internal/cache"
	"github.com/irfndi/forecast-baseline-go/internal/config"
	"github.com/irfndi/forecast-baseline-go/internal/database"
	"github.com/irfndi/forecast-baseline-go/internal/evaluation"
	"github.com/irfndi/forecast-baseline-go/internal/handlers"
	"github.com/irfndi/forecast-baseline-go/internal/logging"
	"github.com/irfndi/forecast-baseline-go/internal/monitor"
)

func main() {
	// Load .env if present; real environments configure via the process env
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Wire services
	repo := database.NewSeriesRepository(db.Pool)
	evaluator := evaluation.NewEvaluator(logger)
	results := cache.NewRedisResultCache(redis, cfg.ResultTTL())
	sysMonitor := monitor.NewSystemMonitor(logger, cfg.Monitor.HistorySize)

	forecast := handlers.NewForecastHandler(repo, evaluator, results, sysMonitor, cfg.Evaluation.MaxObservations, logger)

	// Background system metrics sampling
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go sysMonitor.Run(monitorCtx, cfg.SampleInterval())

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Setup routes
	api.SetupRoutes(router, db, redis, forecast)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	results.LogStats()
	logger.Info("Server exited")
}
