// Package split partitions a time-indexed table into (train, test) window
// pairs for time-series cross-validation. Folds are produced lazily by a
// restartable iterator; the table is never sorted or copied.
package split

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidParameter indicates a policy field violating its constraint.
	// The error message names the offending field and value.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnsortedInput indicates a timestamp decrease detected while scanning
	// the table. Iteration stops on first detection.
	ErrUnsortedInput = errors.New("unsorted input")
)

// Mode selects the splitting algorithm.
type Mode string

const (
	// ModeExpanding grows the train window from the table start on every fold.
	ModeExpanding Mode = "expanding"
	// ModeSliding clips the train window to its most recent TrainSize extent.
	ModeSliding Mode = "sliding"
	// ModeLeaveOneOut makes every eligible observation, in turn, the sole
	// test point.
	ModeLeaveOneOut Mode = "leave_one_out"
)

// Extent is a tagged window size: either a number of observations or a span of
// time. The zero value means "not set".
type Extent struct {
	count  int
	span   time.Duration
	byTime bool
	set    bool
}

// Count returns an extent of n observations.
func Count(n int) Extent {
	return Extent{count: n, set: true}
}

// Span returns an extent of duration d.
func Span(d time.Duration) Extent {
	return Extent{span: d, byTime: true, set: true}
}

// IsSet reports whether the extent was specified.
func (e Extent) IsSet() bool { return e.set }

// ByTime reports whether the extent is a duration rather than a count.
func (e Extent) ByTime() bool { return e.byTime }

// Observations returns the observation count of a count extent.
func (e Extent) Observations() int { return e.count }

// Duration returns the time span of a duration extent.
func (e Extent) Duration() time.Duration { return e.span }

func (e Extent) positive() bool {
	if e.byTime {
		return e.span > 0
	}
	return e.count > 0
}

func (e Extent) negative() bool {
	if e.byTime {
		return e.span < 0
	}
	return e.count < 0
}

// String renders the extent for error messages.
func (e Extent) String() string {
	if !e.set {
		return "<unset>"
	}
	if e.byTime {
		return e.span.String()
	}
	return fmt.Sprintf("%d obs", e.count)
}

// Policy describes how to carve a table into (train, test) folds. TestSize is
// required; everything else is optional. All set extents must share one
// interpretation, either counts or durations.
type Policy struct {
	// Mode selects the algorithm. Empty defaults to ModeExpanding.
	Mode Mode
	// TestSize is the extent of every test window.
	TestSize Extent
	// TrainSize bounds the train window in sliding mode and seeds the initial
	// train window in leave-one-out mode. Unset means unbounded (expanding
	// from the table start).
	TrainSize Extent
	// Gap separates the end of a train window from the start of its paired
	// test window. Unset means no gap.
	Gap Extent
	// Step is how far the split point advances between folds. Unset defaults
	// to TestSize.
	Step Extent
	// MaxSplits bounds the number of folds produced. Zero means as many as fit.
	MaxSplits int
}

// withDefaults returns the policy with unset optional fields resolved. In
// leave-one-out mode the test size is forced to exactly one observation.
func (p Policy) withDefaults() Policy {
	if p.Mode == "" {
		p.Mode = ModeExpanding
	}
	if p.Mode == ModeLeaveOneOut {
		p.TestSize = Count(1)
		p.Step = Count(1)
		if !p.Gap.IsSet() {
			if p.TrainSize.ByTime() {
				p.Gap = Span(0)
			} else {
				p.Gap = Count(0)
			}
		}
		return p
	}
	if !p.Step.IsSet() {
		p.Step = p.TestSize
	}
	if !p.Gap.IsSet() {
		if p.TestSize.ByTime() {
			p.Gap = Span(0)
		} else {
			p.Gap = Count(0)
		}
	}
	return p
}

// validate checks every field eagerly, before any folds are computed.
func (p Policy) validate() error {
	switch p.Mode {
	case ModeExpanding, ModeSliding, ModeLeaveOneOut:
	default:
		return fmt.Errorf("mode: unknown value %q: %w", p.Mode, ErrInvalidParameter)
	}
	if !p.TestSize.IsSet() || !p.TestSize.positive() {
		return fmt.Errorf("test_size: must be positive, got %s: %w", p.TestSize, ErrInvalidParameter)
	}
	if p.Gap.negative() {
		return fmt.Errorf("gap: must be non-negative, got %s: %w", p.Gap, ErrInvalidParameter)
	}
	if p.Step.IsSet() && !p.Step.positive() {
		return fmt.Errorf("step: must be positive, got %s: %w", p.Step, ErrInvalidParameter)
	}
	if p.TrainSize.IsSet() && !p.TrainSize.positive() {
		return fmt.Errorf("train_size: must be positive, got %s: %w", p.TrainSize, ErrInvalidParameter)
	}
	if p.MaxSplits < 0 {
		return fmt.Errorf("max_splits: must be non-negative, got %d: %w", p.MaxSplits, ErrInvalidParameter)
	}

	if p.Mode == ModeLeaveOneOut {
		// Test size is a single observation here, so only gap and train_size
		// have to agree on one interpretation.
		if p.TrainSize.IsSet() && p.Gap.IsSet() && p.TrainSize.ByTime() != p.Gap.ByTime() {
			return fmt.Errorf("gap: mixes counts and durations with train_size: %w", ErrInvalidParameter)
		}
		return nil
	}

	byTime := p.TestSize.ByTime()
	for _, f := range []struct {
		name string
		e    Extent
	}{
		{"train_size", p.TrainSize},
		{"gap", p.Gap},
		{"step", p.Step},
	} {
		if f.e.IsSet() && f.e.ByTime() != byTime {
			return fmt.Errorf("%s: mixes counts and durations with test_size: %w", f.name, ErrInvalidParameter)
		}
	}
	return nil
}
