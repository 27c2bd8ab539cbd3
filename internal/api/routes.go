package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-baseline-go/internal/database"
	"github.com/irfndi/forecast-baseline-go/internal/handlers"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, forecast *handlers.ForecastHandler) {
	// Health check endpoint
	router.GET("/health", healthCheck(db, redis))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/baselines", forecast.ListBaselines)
		v1.POST("/predictions", forecast.CreatePredictions)

		splits := v1.Group("/splits")
		{
			splits.POST("/preview", forecast.PreviewSplits)
		}

		evaluations := v1.Group("/evaluations")
		{
			evaluations.POST("", forecast.CreateEvaluation)
			evaluations.GET("/:id", forecast.GetEvaluation)
		}

		series := v1.Group("/series")
		{
			series.GET("", forecast.ListSeries)
			series.POST("/:id/observations", forecast.StoreSeries)
			series.DELETE("/:id", forecast.DeleteSeries)
		}

		system := v1.Group("/system")
		{
			system.GET("/stats", forecast.GetSystemStats)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		// Check database health
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		// Check Redis health
		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
