package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/forecast-baseline-go/internal/split"
)

// ExtentSpec is the wire form of a split extent: exactly one of Count or
// Duration must be set. Duration uses Go duration syntax ("24h", "30m").
type ExtentSpec struct {
	Count    int    `json:"count,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ToExtent converts the wire form into a tagged split extent. A nil spec
// yields the unset extent.
func (e *ExtentSpec) ToExtent() (split.Extent, error) {
	if e == nil {
		return split.Extent{}, nil
	}
	if e.Count != 0 && e.Duration != "" {
		return split.Extent{}, errors.New("count and duration are mutually exclusive")
	}
	if e.Duration != "" {
		d, err := time.ParseDuration(e.Duration)
		if err != nil {
			return split.Extent{}, fmt.Errorf("invalid duration %q: %w", e.Duration, err)
		}
		return split.Span(d), nil
	}
	return split.Count(e.Count), nil
}

// SplitPolicyRequest is the wire form of a split policy.
type SplitPolicyRequest struct {
	Mode      string      `json:"mode"`
	TestSize  *ExtentSpec `json:"test_size,omitempty"`
	TrainSize *ExtentSpec `json:"train_size,omitempty"`
	Gap       *ExtentSpec `json:"gap,omitempty"`
	Step      *ExtentSpec `json:"step,omitempty"`
	MaxSplits int         `json:"max_splits,omitempty"`
}

// ToPolicy converts the wire form into a split policy. Field constraints are
// enforced by the splitter itself.
func (r SplitPolicyRequest) ToPolicy() (split.Policy, error) {
	testSize, err := r.TestSize.ToExtent()
	if err != nil {
		return split.Policy{}, fmt.Errorf("test_size: %w", err)
	}
	trainSize, err := r.TrainSize.ToExtent()
	if err != nil {
		return split.Policy{}, fmt.Errorf("train_size: %w", err)
	}
	gap, err := r.Gap.ToExtent()
	if err != nil {
		return split.Policy{}, fmt.Errorf("gap: %w", err)
	}
	step, err := r.Step.ToExtent()
	if err != nil {
		return split.Policy{}, fmt.Errorf("step: %w", err)
	}
	return split.Policy{
		Mode:      split.Mode(r.Mode),
		TestSize:  testSize,
		TrainSize: trainSize,
		Gap:       gap,
		Step:      step,
		MaxSplits: r.MaxSplits,
	}, nil
}

// ObservationPayload is one inline observation in a request body.
type ObservationPayload struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Value     float64   `json:"value"`
}

// SeriesSource selects the data a request operates on: either a stored series
// by ID or inline observations, never both.
type SeriesSource struct {
	SeriesID     string               `json:"series_id,omitempty"`
	Observations []ObservationPayload `json:"observations,omitempty"`
}

// ModelSpec selects a persistence baseline and its parameter.
type ModelSpec struct {
	// Name is one of latest_value, lagged_value, sliding_window.
	Name string `json:"name" binding:"required"`
	// Lag applies to lagged_value, in Go duration syntax.
	Lag string `json:"lag,omitempty"`
	// Window applies to sliding_window, in Go duration syntax.
	Window string `json:"window,omitempty"`
}

// PredictionRequest asks for batch predictions at the given target times.
type PredictionRequest struct {
	Series  SeriesSource `json:"series"`
	Model   ModelSpec    `json:"model"`
	Targets []time.Time  `json:"targets" binding:"required"`
}

// PredictionResult is one element of a batch prediction response. A failed
// target reports its error and leaves Value null.
type PredictionResult struct {
	At    time.Time `json:"at"`
	Value *float64  `json:"value,omitempty"`
	Error string    `json:"error,omitempty"`
}

// SplitPreviewRequest asks for the fold bounds a policy produces over a series.
type SplitPreviewRequest struct {
	Series SeriesSource       `json:"series"`
	Policy SplitPolicyRequest `json:"policy"`
}

// EvaluationRequest asks for a cross-validated evaluation run.
type EvaluationRequest struct {
	Series SeriesSource       `json:"series"`
	Model  ModelSpec          `json:"model"`
	Policy SplitPolicyRequest `json:"policy"`
}

// BaselineInfo describes one available persistence model.
type BaselineInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Parameter   string `json:"parameter,omitempty"`
	Description string `json:"description"`
}
