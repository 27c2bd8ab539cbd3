package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/forecast-baseline-go/internal/baseline"
	"github.com/irfndi/forecast-baseline-go/internal/cache"
	"github.com/irfndi/forecast-baseline-go/internal/database"
	"github.com/irfndi/forecast-baseline-go/internal/evaluation"
	"github.com/irfndi/forecast-baseline-go/internal/models"
	"github.com/irfndi/forecast-baseline-go/internal/monitor"
	"github.com/irfndi/forecast-baseline-go/internal/split"
	"github.com/irfndi/forecast-baseline-go/internal/timeseries"
)

// ForecastHandler handles baseline forecasting endpoints
type ForecastHandler struct {
	repo            *database.SeriesRepository
	evaluator       *evaluation.Evaluator
	results         *cache.RedisResultCache
	monitor         *monitor.SystemMonitor
	maxObservations int
	logger          *logrus.Logger
}

// NewForecastHandler creates a new forecast handler. maxObservations bounds the
// table size a single request may operate on; zero means unbounded.
func NewForecastHandler(repo *database.SeriesRepository, evaluator *evaluation.Evaluator, results *cache.RedisResultCache, sysMonitor *monitor.SystemMonitor, maxObservations int, logger *logrus.Logger) *ForecastHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ForecastHandler{
		repo:            repo,
		evaluator:       evaluator,
		results:         results,
		monitor:         sysMonitor,
		maxObservations: maxObservations,
		logger:          logger,
	}
}

// ListBaselines handles GET /api/v1/baselines
func (h *ForecastHandler) ListBaselines(c *gin.Context) {
	caser := cases.Title(language.English)
	describe := func(name, parameter, description string) models.BaselineInfo {
		return models.BaselineInfo{
			Name:        name,
			DisplayName: caser.String(strings.ReplaceAll(name, "_", " ")),
			Parameter:   parameter,
			Description: description,
		}
	}

	baselines := []models.BaselineInfo{
		describe("latest_value", "", "Repeats the most recent observed value at or before the target time"),
		describe("lagged_value", "lag", "Repeats the value observed one lag before the target time"),
		describe("sliding_window", "window", "Averages the observations inside a trailing window ending at the target time"),
	}

	c.JSON(http.StatusOK, gin.H{
		"baselines": baselines,
		"count":     len(baselines),
	})
}

// CreatePredictions handles POST /api/v1/predictions
func (h *ForecastHandler) CreatePredictions(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(req.Targets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": "at least one target time is required"})
		return
	}

	table, err := h.resolveTable(c.Request.Context(), req.Series)
	if err != nil {
		h.respondError(c, "Failed to resolve series", err)
		return
	}

	model, err := buildModel(req.Model)
	if err != nil {
		h.respondError(c, "Invalid model", err)
		return
	}

	hist, err := table.Series("value")
	if err != nil {
		h.respondError(c, "Failed to resolve series", err)
		return
	}

	predictions := baseline.PredictBatch(model, hist, req.Targets)

	results := make([]models.PredictionResult, 0, len(predictions))
	failed := 0
	for _, p := range predictions {
		r := models.PredictionResult{At: p.At}
		if p.Err != nil {
			r.Error = p.Err.Error()
			failed++
		} else {
			v := p.Value
			r.Value = &v
		}
		results = append(results, r)
	}

	c.JSON(http.StatusOK, models.PredictionResponse{
		Model:     model.Name(),
		Results:   results,
		Succeeded: len(results) - failed,
		Failed:    failed,
		Timestamp: time.Now(),
	})
}

// PreviewSplits handles POST /api/v1/splits/preview
func (h *ForecastHandler) PreviewSplits(c *gin.Context) {
	var req models.SplitPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	table, err := h.resolveTable(c.Request.Context(), req.Series)
	if err != nil {
		h.respondError(c, "Failed to resolve series", err)
		return
	}

	policy, err := req.Policy.ToPolicy()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid split policy", "details": err.Error()})
		return
	}

	splitter, err := split.New(table, policy)
	if err != nil {
		h.respondError(c, "Invalid split policy", err)
		return
	}

	folds, err := splitter.All()
	if err != nil {
		h.respondError(c, "Failed to compute folds", err)
		return
	}

	previews := make([]models.FoldPreview, 0, len(folds))
	for i, fold := range folds {
		previews = append(previews, models.FoldPreview{
			Fold:  i + 1,
			Train: previewWindow(fold.Train),
			Test:  previewWindow(fold.Test),
		})
	}

	c.JSON(http.StatusOK, models.SplitPreviewResponse{
		Mode:      string(splitter.Policy().Mode),
		Folds:     previews,
		Count:     len(previews),
		Timestamp: time.Now(),
	})
}

// CreateEvaluation handles POST /api/v1/evaluations
func (h *ForecastHandler) CreateEvaluation(c *gin.Context) {
	var req models.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	table, err := h.resolveTable(c.Request.Context(), req.Series)
	if err != nil {
		h.respondError(c, "Failed to resolve series", err)
		return
	}

	model, err := buildModel(req.Model)
	if err != nil {
		h.respondError(c, "Invalid model", err)
		return
	}

	policy, err := req.Policy.ToPolicy()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid split policy", "details": err.Error()})
		return
	}

	result, err := h.evaluator.Evaluate(table, "value", model, policy)
	if err != nil {
		h.respondError(c, "Evaluation failed", err)
		return
	}

	if h.results != nil {
		if err := h.results.Set(c.Request.Context(), result); err != nil {
			h.logger.WithError(err).Warn("Failed to cache evaluation result")
		}
	}

	c.JSON(http.StatusCreated, result)
}

// GetEvaluation handles GET /api/v1/evaluations/:id
func (h *ForecastHandler) GetEvaluation(c *gin.Context) {
	id := c.Param("id")

	if h.results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}

	result, found := h.results.Get(c.Request.Context(), id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSeries handles GET /api/v1/series
func (h *ForecastHandler) ListSeries(c *gin.Context) {
	infos, err := h.repo.ListSeries(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list series", err)
		return
	}

	c.JSON(http.StatusOK, models.SeriesListResponse{
		Series:    infos,
		Count:     len(infos),
		Timestamp: time.Now(),
	})
}

// StoreSeries handles POST /api/v1/series/:id/observations
func (h *ForecastHandler) StoreSeries(c *gin.Context) {
	seriesID := c.Param("id")

	var payload []models.ObservationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": "at least one observation is required"})
		return
	}

	observations := make([]models.Observation, 0, len(payload))
	for _, p := range payload {
		observations = append(observations, models.Observation{
			SeriesID:  seriesID,
			Timestamp: p.Timestamp,
			Value:     decimal.NewFromFloat(p.Value),
		})
	}

	stored, err := h.repo.UpsertObservations(c.Request.Context(), observations)
	if err != nil {
		h.respondError(c, "Failed to store observations", err)
		return
	}

	c.JSON(http.StatusCreated, models.StoreSeriesResponse{
		SeriesID: seriesID,
		Stored:   stored,
	})
}

// DeleteSeries handles DELETE /api/v1/series/:id
func (h *ForecastHandler) DeleteSeries(c *gin.Context) {
	seriesID := c.Param("id")

	if err := h.repo.DeleteSeries(c.Request.Context(), seriesID); err != nil {
		h.respondError(c, "Failed to delete series", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSystemStats handles GET /api/v1/system/stats
func (h *ForecastHandler) GetSystemStats(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "System monitor not available"})
		return
	}

	snapshot, ok := h.monitor.Latest()
	if !ok {
		var err error
		snapshot, err = h.monitor.Sample(c.Request.Context())
		if err != nil {
			h.respondError(c, "Failed to sample system metrics", err)
			return
		}
	}

	response := gin.H{"system": snapshot}
	if h.results != nil {
		response["result_cache"] = h.results.GetStats()
	}

	c.JSON(http.StatusOK, response)
}

// resolveTable loads the requested series, either from storage by ID or from
// inline observations. Inline observations must already be in ascending
// timestamp order.
func (h *ForecastHandler) resolveTable(ctx context.Context, src models.SeriesSource) (*timeseries.Table, error) {
	if src.SeriesID != "" && len(src.Observations) > 0 {
		return nil, fmt.Errorf("%w: series_id and observations are mutually exclusive", split.ErrInvalidParameter)
	}

	if src.SeriesID != "" {
		table, err := h.repo.LoadTable(ctx, src.SeriesID)
		if err != nil {
			return nil, err
		}
		if h.maxObservations > 0 && table.Len() > h.maxObservations {
			return nil, fmt.Errorf("%w: series has %d observations, limit is %d",
				split.ErrInvalidParameter, table.Len(), h.maxObservations)
		}
		return table, nil
	}

	if len(src.Observations) == 0 {
		return nil, fmt.Errorf("%w: series_id or observations required", split.ErrInvalidParameter)
	}
	if h.maxObservations > 0 && len(src.Observations) > h.maxObservations {
		return nil, fmt.Errorf("%w: request has %d observations, limit is %d",
			split.ErrInvalidParameter, len(src.Observations), h.maxObservations)
	}

	timestamps := make([]time.Time, 0, len(src.Observations))
	values := make([]float64, 0, len(src.Observations))
	for i, obs := range src.Observations {
		if i > 0 && obs.Timestamp.Before(timestamps[i-1]) {
			return nil, fmt.Errorf("%w: observation %d is out of order", split.ErrUnsortedInput, i)
		}
		timestamps = append(timestamps, obs.Timestamp)
		values = append(values, obs.Value)
	}

	return timeseries.New(timestamps, timeseries.Column{Name: "value", Values: values})
}

// respondError maps domain errors onto HTTP status codes.
func (h *ForecastHandler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, baseline.ErrInvalidParameter),
		errors.Is(err, split.ErrInvalidParameter),
		errors.Is(err, split.ErrUnsortedInput),
		errors.Is(err, timeseries.ErrLengthMismatch),
		errors.Is(err, timeseries.ErrUnknownColumn):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrSeriesNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func buildModel(spec models.ModelSpec) (baseline.Model, error) {
	switch spec.Name {
	case "latest_value":
		return baseline.LatestValue{}, nil
	case "lagged_value":
		lag, err := time.ParseDuration(spec.Lag)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid lag %q", baseline.ErrInvalidParameter, spec.Lag)
		}
		return baseline.NewLaggedValue(lag)
	case "sliding_window":
		window, err := time.ParseDuration(spec.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid window %q", baseline.ErrInvalidParameter, spec.Window)
		}
		return baseline.NewSlidingWindow(window)
	default:
		return nil, fmt.Errorf("%w: unknown model %q", baseline.ErrInvalidParameter, spec.Name)
	}
}

func previewWindow(w timeseries.Window) models.WindowPreview {
	start, end := w.Bounds()
	first, last := w.TimeBounds()
	return models.WindowPreview{
		StartIndex: start,
		EndIndex:   end,
		First:      first,
		Last:       last,
		Size:       w.Len(),
	}
}
