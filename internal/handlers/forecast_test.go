package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-baseline-go/internal/cache"
	"github.com/irfndi/forecast-baseline-go/internal/database"
	"github.com/irfndi/forecast-baseline-go/internal/evaluation"
	"github.com/irfndi/forecast-baseline-go/internal/models"
	"github.com/irfndi/forecast-baseline-go/internal/monitor"
)

const testMaxObservations = 100

type mockPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func (m *mockPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return m.mock.QueryRow(ctx, sql, args...)
}

func (m *mockPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := m.mock.Exec(ctx, sql, args...)
	if err == nil {
		return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", result.RowsAffected())), nil
	}
	return pgconn.CommandTag{}, err
}

func (m *mockPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return m.mock.Query(ctx, sql, args...)
}

type handlerFixture struct {
	handler  *ForecastHandler
	router   *gin.Engine
	mockPool pgxmock.PgxPoolIface
	cleanup  func()
}

func setupHandler(t *testing.T) *handlerFixture {
	gin.SetMode(gin.TestMode)

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	repo := database.NewSeriesRepository(&mockPoolAdapter{mock: mockPool})
	evaluator := evaluation.NewEvaluator(logger)
	results := cache.NewRedisResultCache(&database.RedisClient{Client: client}, time.Hour)
	sysMonitor := monitor.NewSystemMonitor(logger, 10)

	handler := NewForecastHandler(repo, evaluator, results, sysMonitor, testMaxObservations, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.GET("/baselines", handler.ListBaselines)
		v1.POST("/predictions", handler.CreatePredictions)
		v1.POST("/splits/preview", handler.PreviewSplits)
		v1.POST("/evaluations", handler.CreateEvaluation)
		v1.GET("/evaluations/:id", handler.GetEvaluation)
		v1.GET("/series", handler.ListSeries)
		v1.POST("/series/:id/observations", handler.StoreSeries)
		v1.DELETE("/series/:id", handler.DeleteSeries)
		v1.GET("/system/stats", handler.GetSystemStats)
	}

	return &handlerFixture{
		handler:  handler,
		router:   router,
		mockPool: mockPool,
		cleanup: func() {
			client.Close()
			s.Close()
			mockPool.Close()
		},
	}
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func inlineObservations(base time.Time, values ...float64) []models.ObservationPayload {
	payload := make([]models.ObservationPayload, 0, len(values))
	for i, v := range values {
		payload = append(payload, models.ObservationPayload{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Value:     v,
		})
	}
	return payload
}

func TestListBaselines(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	w := performJSON(t, f.router, http.MethodGet, "/api/v1/baselines", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Baselines []models.BaselineInfo `json:"baselines"`
		Count     int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "latest_value", resp.Baselines[0].Name)
	assert.Equal(t, "Latest Value", resp.Baselines[0].DisplayName)
	assert.Equal(t, "lagged_value", resp.Baselines[1].Name)
	assert.Equal(t, "lag", resp.Baselines[1].Parameter)
	assert.Equal(t, "Sliding Window", resp.Baselines[2].DisplayName)
}

func TestCreatePredictions_Inline(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.PredictionRequest{
		Series: models.SeriesSource{
			Observations: inlineObservations(base, 10, 20, 30),
		},
		Model: models.ModelSpec{Name: "latest_value"},
		Targets: []time.Time{
			base.Add(90 * time.Minute), // between second and third point
			base.Add(-time.Hour),       // before any history
		},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/predictions", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.PredictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "latest_value", resp.Model)
	require.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Results[0].Value)
	assert.InDelta(t, 20.0, *resp.Results[0].Value, 1e-9)
	assert.Nil(t, resp.Results[1].Value)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
}

func TestCreatePredictions_UnknownModel(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.PredictionRequest{
		Series:  models.SeriesSource{Observations: inlineObservations(base, 1, 2)},
		Model:   models.ModelSpec{Name: "drift"},
		Targets: []time.Time{base.Add(3 * time.Hour)},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/predictions", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown model")
}

func TestCreatePredictions_UnsortedInline(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.PredictionRequest{
		Series: models.SeriesSource{
			Observations: []models.ObservationPayload{
				{Timestamp: base.Add(time.Hour), Value: 1},
				{Timestamp: base, Value: 2},
			},
		},
		Model:   models.ModelSpec{Name: "latest_value"},
		Targets: []time.Time{base.Add(2 * time.Hour)},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/predictions", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "out of order")
}

func TestCreatePredictions_ObservationLimit(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, testMaxObservations+1)
	for i := range values {
		values[i] = float64(i)
	}

	req := models.PredictionRequest{
		Series:  models.SeriesSource{Observations: inlineObservations(base, values...)},
		Model:   models.ModelSpec{Name: "latest_value"},
		Targets: []time.Time{base.Add(time.Hour)},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/predictions", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "limit is 100")
}

func TestCreatePredictions_StoredSeriesNotFound(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	f.mockPool.ExpectQuery("SELECT ts, value").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"ts", "value"}))

	req := models.PredictionRequest{
		Series:  models.SeriesSource{SeriesID: "missing"},
		Model:   models.ModelSpec{Name: "latest_value"},
		Targets: []time.Time{time.Now()},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/predictions", req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewSplits_WalkForward(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.SplitPreviewRequest{
		Series: models.SeriesSource{
			Observations: inlineObservations(base, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		},
		Policy: models.SplitPolicyRequest{
			Mode:     "expanding",
			TestSize: &models.ExtentSpec{Count: 2},
		},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/splits/preview", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SplitPreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "expanding", resp.Mode)
	require.Equal(t, 4, resp.Count)

	first := resp.Folds[0]
	assert.Equal(t, 0, first.Train.StartIndex)
	assert.Equal(t, 2, first.Train.EndIndex)
	assert.Equal(t, 2, first.Test.StartIndex)
	assert.Equal(t, 4, first.Test.EndIndex)

	last := resp.Folds[3]
	assert.Equal(t, 8, last.Train.EndIndex)
	assert.Equal(t, 10, last.Test.EndIndex)
}

func TestPreviewSplits_TooShortYieldsEmpty(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.SplitPreviewRequest{
		Series: models.SeriesSource{
			Observations: inlineObservations(base, 1, 2, 3),
		},
		Policy: models.SplitPolicyRequest{
			Mode:     "expanding",
			TestSize: &models.ExtentSpec{Count: 5},
		},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/splits/preview", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SplitPreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestPreviewSplits_InvalidPolicy(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.SplitPreviewRequest{
		Series: models.SeriesSource{
			Observations: inlineObservations(base, 1, 2, 3),
		},
		Policy: models.SplitPolicyRequest{
			Mode:     "expanding",
			TestSize: &models.ExtentSpec{Count: -1},
		},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/splits/preview", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEvaluation_AndFetch(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.EvaluationRequest{
		Series: models.SeriesSource{
			Observations: inlineObservations(base, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		},
		Model: models.ModelSpec{Name: "latest_value"},
		Policy: models.SplitPolicyRequest{
			Mode:     "expanding",
			TestSize: &models.ExtentSpec{Count: 2},
		},
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/evaluations", req)
	require.Equal(t, http.StatusCreated, w.Code)

	var result evaluation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "latest_value", result.Model)
	assert.Len(t, result.Folds, 4)
	assert.Greater(t, result.Overall.Count, 0)

	// The run should now be fetchable by ID.
	w = performJSON(t, f.router, http.MethodGet, "/api/v1/evaluations/"+result.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched evaluation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, result.ID, fetched.ID)
	assert.InDelta(t, result.Overall.MAE, fetched.Overall.MAE, 1e-9)
}

func TestGetEvaluation_NotFound(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	w := performJSON(t, f.router, http.MethodGet, "/api/v1/evaluations/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSeries(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"series_id", "count", "min", "max"}).
		AddRow("sensor-1", int64(10), base, base.Add(9*time.Hour))
	f.mockPool.ExpectQuery("SELECT series_id, COUNT").WillReturnRows(rows)

	w := performJSON(t, f.router, http.MethodGet, "/api/v1/series", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SeriesListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "sensor-1", resp.Series[0].SeriesID)
	assert.Equal(t, int64(10), resp.Series[0].Observations)
}

func TestStoreSeries(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := []models.ObservationPayload{
		{Timestamp: base, Value: 10.5},
		{Timestamp: base.Add(time.Hour), Value: 11.25},
	}

	for _, p := range payload {
		f.mockPool.ExpectExec("INSERT INTO series_observations").
			WithArgs("sensor-1", p.Timestamp, decimal.NewFromFloat(p.Value)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/series/sensor-1/observations", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.StoreSeriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sensor-1", resp.SeriesID)
	assert.Equal(t, int64(2), resp.Stored)
}

func TestDeleteSeries_NotFound(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	f.mockPool.ExpectExec("DELETE FROM series_observations").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	w := performJSON(t, f.router, http.MethodDelete, "/api/v1/series/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSystemStats(t *testing.T) {
	f := setupHandler(t)
	defer f.cleanup()

	w := performJSON(t, f.router, http.MethodGet, "/api/v1/system/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		System      monitor.Snapshot       `json:"system"`
		ResultCache cache.ResultCacheStats `json:"result_cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.System.Goroutines, 0)
}
