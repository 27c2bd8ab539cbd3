// Package baseline implements naive persistence forecasters. These models are
// stateless: each prediction is a pure function of the historical series, the
// target time and the model parameters, and they are typically used as the
// floor that a real forecasting model has to beat.
package baseline

import (
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/forecast-baseline-go/internal/timeseries"
)

var (
	// ErrInvalidParameter indicates a model parameter violating its constraint,
	// such as a non-positive lag or window size.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInsufficientHistory indicates a prediction at or before the point
	// where the model has usable historical data. No fallback value is ever
	// substituted.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// Model produces a prediction for a target time from a historical series. The
// series must be sorted ascending by timestamp.
type Model interface {
	Name() string
	Predict(hist timeseries.Series, at time.Time) (float64, error)
}

// Prediction is one element of a batch prediction. A failed target carries its
// error and does not abort the rest of the batch.
type Prediction struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
	Err   error     `json:"-"`
}

// PredictBatch predicts every target independently, one result per target in
// order. Per-element failures are reported on the element.
func PredictBatch(m Model, hist timeseries.Series, targets []time.Time) []Prediction {
	out := make([]Prediction, len(targets))
	for i, at := range targets {
		v, err := m.Predict(hist, at)
		out[i] = Prediction{At: at, Value: v, Err: err}
	}
	return out
}

// LatestValue predicts the value of the observation with the latest timestamp
// at or before the reference time.
type LatestValue struct{}

// Name returns the model identifier.
func (LatestValue) Name() string { return "latest_value" }

// Predict returns the most recent observed value at or before at.
func (LatestValue) Predict(hist timeseries.Series, at time.Time) (float64, error) {
	if hist.Len() == 0 {
		return 0, fmt.Errorf("history is empty: %w", ErrInsufficientHistory)
	}
	if !at.After(hist.Timestamps[0]) {
		return 0, fmt.Errorf("reference time %s is at or before the first observation %s: %w",
			at.Format(time.RFC3339), hist.Timestamps[0].Format(time.RFC3339), ErrInsufficientHistory)
	}
	i, ok := hist.IndexAtOrBefore(at)
	if !ok {
		return 0, fmt.Errorf("no observation at or before %s: %w",
			at.Format(time.RFC3339), ErrInsufficientHistory)
	}
	return hist.Values[i], nil
}

// LaggedValue predicts the historical value observed one fixed lag before the
// target time. With a lag of 24h, tomorrow's value is predicted by the latest
// value known at this time today.
type LaggedValue struct {
	Lag time.Duration
}

// NewLaggedValue creates a lagged-value model. The lag must be positive.
func NewLaggedValue(lag time.Duration) (*LaggedValue, error) {
	if lag <= 0 {
		return nil, fmt.Errorf("lag must be positive, got %s: %w", lag, ErrInvalidParameter)
	}
	return &LaggedValue{Lag: lag}, nil
}

// Name returns the model identifier.
func (*LaggedValue) Name() string { return "lagged_value" }

// Predict reduces to a latest-value lookup at the shifted reference time
// at-lag, so the two models agree exactly on overlapping inputs.
func (m *LaggedValue) Predict(hist timeseries.Series, at time.Time) (float64, error) {
	if m.Lag <= 0 {
		return 0, fmt.Errorf("lag must be positive, got %s: %w", m.Lag, ErrInvalidParameter)
	}
	return LatestValue{}.Predict(hist, at.Add(-m.Lag))
}

// SlidingWindow predicts the arithmetic mean of the observations in the
// half-open time range (at-window, at]. Plain float64 summation, matching
// simple-average baseline semantics.
type SlidingWindow struct {
	Window time.Duration
}

// NewSlidingWindow creates a windowed-mean model. The window must be positive.
func NewSlidingWindow(window time.Duration) (*SlidingWindow, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s: %w", window, ErrInvalidParameter)
	}
	return &SlidingWindow{Window: window}, nil
}

// Name returns the model identifier.
func (*SlidingWindow) Name() string { return "sliding_window" }

// Predict returns the mean of the observations inside the trailing window.
func (m *SlidingWindow) Predict(hist timeseries.Series, at time.Time) (float64, error) {
	if m.Window <= 0 {
		return 0, fmt.Errorf("window must be positive, got %s: %w", m.Window, ErrInvalidParameter)
	}
	if hist.Len() == 0 {
		return 0, fmt.Errorf("history is empty: %w", ErrInsufficientHistory)
	}
	if !at.After(hist.Timestamps[0]) {
		return 0, fmt.Errorf("reference time %s is at or before the first observation %s: %w",
			at.Format(time.RFC3339), hist.Timestamps[0].Format(time.RFC3339), ErrInsufficientHistory)
	}

	lo := hist.IndexAfter(at.Add(-m.Window))
	hi, ok := hist.IndexAtOrBefore(at)
	if !ok || lo > hi {
		return 0, fmt.Errorf("no observations in (%s, %s]: %w",
			at.Add(-m.Window).Format(time.RFC3339), at.Format(time.RFC3339), ErrInsufficientHistory)
	}

	sum := 0.0
	for _, v := range hist.Values[lo : hi+1] {
		sum += v
	}
	return sum / float64(hi-lo+1), nil
}
