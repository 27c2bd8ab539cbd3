// Package evaluation runs a persistence baseline across the folds of a
// time-series cross-validation split and aggregates forecast error metrics.
package evaluation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-baseline-go/internal/baseline"
	"github.com/irfndi/forecast-baseline-go/internal/split"
	"github.com/irfndi/forecast-baseline-go/internal/timeseries"
)

// WindowSummary describes one train or test window of an emitted fold, in
// both position and timestamp terms.
type WindowSummary struct {
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	First      time.Time `json:"first"`
	Last       time.Time `json:"last"`
	Size       int       `json:"size"`
}

// FoldResult holds the outcome of scoring one fold.
type FoldResult struct {
	Fold        int           `json:"fold"`
	Train       WindowSummary `json:"train"`
	Test        WindowSummary `json:"test"`
	Metrics     Metrics       `json:"metrics"`
	FailedCount int           `json:"failed_count"`
}

// Result is a completed cross-validated evaluation run.
type Result struct {
	ID          string       `json:"id"`
	Model       string       `json:"model"`
	Column      string       `json:"column"`
	Folds       []FoldResult `json:"folds"`
	Overall     Metrics      `json:"overall"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	DurationMS  int64        `json:"duration_ms"`
}

// Evaluator scores persistence baselines with walk-forward cross-validation.
type Evaluator struct {
	logger *logrus.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(logger *logrus.Logger) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{logger: logger}
}

// Evaluate splits the table with the given policy and, fold by fold, predicts
// every test observation of the named column from the fold's train window.
// Predictions that fail (for example with insufficient history near the table
// start) are counted per fold and excluded from the metrics; they do not abort
// the run. A policy that fits no folds yields a result with zero folds.
func (e *Evaluator) Evaluate(table *timeseries.Table, column string, model baseline.Model, policy split.Policy) (*Result, error) {
	started := time.Now()

	splitter, err := split.New(table, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to build splitter: %w", err)
	}

	result := &Result{
		ID:        uuid.NewString(),
		Model:     model.Name(),
		Column:    column,
		Folds:     make([]FoldResult, 0),
		StartedAt: started,
	}

	var allActual, allPredicted []float64

	it := splitter.Folds()
	for it.Next() {
		fold := it.Fold()

		trainSeries, err := fold.Train.Series(column)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column: %w", err)
		}
		testSeries, err := fold.Test.Series(column)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column: %w", err)
		}

		predictions := baseline.PredictBatch(model, trainSeries, testSeries.Timestamps)

		var actual, predicted []float64
		failed := 0
		for i, p := range predictions {
			if p.Err != nil {
				failed++
				continue
			}
			actual = append(actual, testSeries.Values[i])
			predicted = append(predicted, p.Value)
		}

		fr := FoldResult{
			Fold:        len(result.Folds) + 1,
			Train:       summarizeWindow(fold.Train),
			Test:        summarizeWindow(fold.Test),
			Metrics:     computeMetrics(actual, predicted),
			FailedCount: failed,
		}
		result.Folds = append(result.Folds, fr)

		allActual = append(allActual, actual...)
		allPredicted = append(allPredicted, predicted...)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("fold iteration failed: %w", err)
	}

	result.Overall = computeMetrics(allActual, allPredicted)
	result.CompletedAt = time.Now()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()

	e.logger.WithFields(logrus.Fields{
		"run_id":      result.ID,
		"model":       result.Model,
		"folds":       len(result.Folds),
		"scored":      result.Overall.Count,
		"mae":         result.Overall.MAE,
		"rmse":        result.Overall.RMSE,
		"duration_ms": result.DurationMS,
	}).Info("Evaluation completed")

	return result, nil
}

func summarizeWindow(w timeseries.Window) WindowSummary {
	start, end := w.Bounds()
	first, last := w.TimeBounds()
	return WindowSummary{
		StartIndex: start,
		EndIndex:   end,
		First:      first,
		Last:       last,
		Size:       w.Len(),
	}
}
