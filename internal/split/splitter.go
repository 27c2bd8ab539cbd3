package split

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-baseline-go/internal/timeseries"
)

// Fold is one emitted (train, test) window pair. The train window strictly
// precedes the test window in time, with the policy's gap separating them.
type Fold struct {
	Train timeseries.Window
	Test  timeseries.Window
}

// Splitter produces a lazy, finite, restartable sequence of folds over a table
// sorted ascending by timestamp. The splitter never sorts; a timestamp
// decrease found while scanning surfaces as ErrUnsortedInput on the iterator.
type Splitter struct {
	table  *timeseries.Table
	policy Policy
}

// New creates a splitter. The policy is validated eagerly; no folds are
// computed until iteration starts.
func New(table *timeseries.Table, policy Policy) (*Splitter, error) {
	if table == nil {
		return nil, fmt.Errorf("table: must not be nil: %w", ErrInvalidParameter)
	}
	p := policy.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Splitter{table: table, policy: p}, nil
}

// Policy returns the resolved policy, with defaults applied.
func (s *Splitter) Policy() Policy {
	return s.policy
}

// Folds starts a fresh iteration pass. Passes are independent: two iterators
// over the same splitter yield identical fold sequences.
func (s *Splitter) Folds() *FoldIter {
	return &FoldIter{s: s, k: 1, nextTest: s.looSeed(), checked: 1}
}

// All collects every fold of one pass. A table too short for the policy yields
// an empty slice and no error.
func (s *Splitter) All() ([]Fold, error) {
	var folds []Fold
	it := s.Folds()
	for it.Next() {
		folds = append(folds, it.Fold())
	}
	return folds, it.Err()
}

// looSeed returns the position of the first test candidate in leave-one-out
// mode. At least one training observation always precedes it.
func (s *Splitter) looSeed() int {
	if s.policy.Mode != ModeLeaveOneOut || !s.policy.TrainSize.IsSet() {
		return 1
	}
	if s.policy.TrainSize.ByTime() {
		if s.table.Len() == 0 {
			return 1
		}
		seed := s.indexCeil(s.table.First().Add(s.policy.TrainSize.Duration()))
		if seed < 1 {
			seed = 1
		}
		return seed
	}
	return s.policy.TrainSize.Observations()
}

// indexCeil returns the first position whose timestamp is at or after t.
func (s *Splitter) indexCeil(at time.Time) int {
	ts := s.table.Timestamps()
	return sort.Search(len(ts), func(i int) bool {
		return !ts[i].Before(at)
	})
}

// indexAfter returns the first position whose timestamp is strictly after t.
func (s *Splitter) indexAfter(at time.Time) int {
	ts := s.table.Timestamps()
	return sort.Search(len(ts), func(i int) bool {
		return ts[i].After(at)
	})
}

// FoldIter is a pull-based cursor over the fold sequence. Each fold is
// computed on demand; nothing is buffered. The iterator is not safe for
// concurrent use, but independent iterators are.
type FoldIter struct {
	s *Splitter

	k        int // next split ordinal (expanding/sliding)
	nextTest int // next test candidate position (leave-one-out)
	emitted  int
	checked  int // timestamps verified non-decreasing up to this position

	fold Fold
	err  error
	done bool
}

// Next advances to the next fold. It returns false when the sequence is
// exhausted or an error occurred; check Err afterwards.
func (it *FoldIter) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	p := it.s.policy
	if it.s.table.Len() == 0 || (p.MaxSplits > 0 && it.emitted >= p.MaxSplits) {
		it.done = true
		return false
	}

	for {
		var fold Fold
		var upTo int
		var found, skip bool

		switch {
		case p.Mode == ModeLeaveOneOut:
			fold, upTo, found, skip = it.candidateLeaveOneOut()
		case p.TestSize.ByTime():
			fold, upTo, found, skip = it.candidateWalkForwardTime()
		default:
			fold, upTo, found, skip = it.candidateWalkForward()
		}

		if !found {
			it.done = true
			return false
		}
		if !it.verifySorted(upTo) {
			return false
		}
		if skip {
			continue
		}

		it.fold = fold
		it.emitted++
		return true
	}
}

// Fold returns the current fold. Valid only after a true Next.
func (it *FoldIter) Fold() Fold {
	return it.fold
}

// Err returns the error that stopped iteration, if any.
func (it *FoldIter) Err() error {
	return it.err
}

// candidateWalkForward computes fold k for count-based expanding/sliding
// policies. Fold k's train window is [start, k*step) and its test window is
// [k*step+gap, k*step+gap+testSize).
func (it *FoldIter) candidateWalkForward() (Fold, int, bool, bool) {
	p := it.s.policy
	n := it.s.table.Len()

	boundary := it.k * p.Step.Observations()
	testStart := boundary + p.Gap.Observations()
	testEnd := testStart + p.TestSize.Observations()
	if testEnd > n {
		return Fold{}, 0, false, false
	}
	it.k++

	trainStart := 0
	if p.Mode == ModeSliding && p.TrainSize.IsSet() {
		trainStart = boundary - p.TrainSize.Observations()
		if trainStart < 0 {
			trainStart = 0
		}
	}

	fold := Fold{
		Train: it.s.table.Window(trainStart, boundary),
		Test:  it.s.table.Window(testStart, testEnd),
	}
	return fold, testEnd, true, false
}

// candidateWalkForwardTime computes fold k for duration-based policies. Window
// boundaries compare timestamps directly, inclusive lower and exclusive upper,
// so unevenly spaced data yields windows with variable observation counts.
// Folds with an empty train or test range are skipped, not emitted.
func (it *FoldIter) candidateWalkForwardTime() (Fold, int, bool, bool) {
	p := it.s.policy
	first := it.s.table.First()
	last := it.s.table.Last()

	boundaryAt := first.Add(time.Duration(it.k) * p.Step.Duration())
	testStartAt := boundaryAt.Add(p.Gap.Duration())
	testEndAt := testStartAt.Add(p.TestSize.Duration())
	if testEndAt.After(last) {
		return Fold{}, 0, false, false
	}
	fold := it.k
	it.k++

	trainStartAt := first
	if p.Mode == ModeSliding && p.TrainSize.IsSet() {
		trainStartAt = boundaryAt.Add(-p.TrainSize.Duration())
		if trainStartAt.Before(first) {
			trainStartAt = first
		}
	}

	trainStart := it.s.indexCeil(trainStartAt)
	trainEnd := it.s.indexCeil(boundaryAt)
	testStart := it.s.indexCeil(testStartAt)
	testEnd := it.s.indexCeil(testEndAt)
	upTo := testEnd
	if trainEnd > upTo {
		upTo = trainEnd
	}

	if trainEnd <= trainStart || testEnd <= testStart {
		logrus.WithFields(logrus.Fields{
			"fold":       fold,
			"boundary":   boundaryAt,
			"test_start": testStartAt,
			"test_end":   testEndAt,
		}).Warn("Empty train or test window, skipping fold")
		return Fold{}, upTo, true, true
	}

	out := Fold{
		Train: it.s.table.Window(trainStart, trainEnd),
		Test:  it.s.table.Window(testStart, testEnd),
	}
	return out, upTo, true, false
}

// candidateLeaveOneOut makes the observation at nextTest the sole test point,
// with all strictly-prior observations minus the gap as train.
func (it *FoldIter) candidateLeaveOneOut() (Fold, int, bool, bool) {
	p := it.s.policy
	n := it.s.table.Len()

	i := it.nextTest
	if i >= n {
		return Fold{}, 0, false, false
	}
	it.nextTest++

	var trainEnd int
	if p.Gap.ByTime() {
		cutoff := it.s.table.Timestamp(i).Add(-p.Gap.Duration())
		trainEnd = it.s.indexAfter(cutoff)
	} else {
		trainEnd = i - p.Gap.Observations()
	}
	if trainEnd > i {
		trainEnd = i
	}
	if trainEnd < 0 {
		trainEnd = 0
	}

	if trainEnd == 0 {
		logrus.WithFields(logrus.Fields{"position": i}).
			Warn("Empty train window, skipping leave-one-out fold")
		return Fold{}, i + 1, true, true
	}

	fold := Fold{
		Train: it.s.table.Window(0, trainEnd),
		Test:  it.s.table.Window(i, i+1),
	}
	return fold, i + 1, true, false
}

// verifySorted extends the monotonicity check over [checked, upTo). On the
// first decrease the iterator stops with ErrUnsortedInput and no fold is
// returned.
func (it *FoldIter) verifySorted(upTo int) bool {
	ts := it.s.table.Timestamps()
	if upTo > len(ts) {
		upTo = len(ts)
	}
	for i := it.checked; i < upTo; i++ {
		if ts[i].Before(ts[i-1]) {
			it.err = fmt.Errorf("timestamp decrease at position %d (%s after %s): %w",
				i, ts[i].Format(time.RFC3339), ts[i-1].Format(time.RFC3339), ErrUnsortedInput)
			return false
		}
	}
	if upTo > it.checked {
		it.checked = upTo
	}
	return true
}
