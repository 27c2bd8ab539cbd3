package timeseries

import (
	"sort"
	"time"
)

// Series is a non-copying view over a single value column and its timestamps.
// Both slices share storage with the originating table.
type Series struct {
	Timestamps []time.Time
	Values     []float64
}

// Len returns the number of observations in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// IndexAtOrBefore returns the position of the last observation whose timestamp
// is at or before the given time. ok is false when no such observation exists.
// The series must be sorted ascending by timestamp.
func (s Series) IndexAtOrBefore(at time.Time) (int, bool) {
	// First position strictly after at.
	i := sort.Search(len(s.Timestamps), func(j int) bool {
		return s.Timestamps[j].After(at)
	})
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// IndexAfter returns the position of the first observation whose timestamp is
// strictly after the given time, or Len() when none is.
func (s Series) IndexAfter(at time.Time) int {
	return sort.Search(len(s.Timestamps), func(j int) bool {
		return s.Timestamps[j].After(at)
	})
}

// Slice returns a view over the half-open position range [start, end). The
// bounds are clamped.
func (s Series) Slice(start, end int) Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start > end {
		start = end
	}
	return Series{Timestamps: s.Timestamps[start:end], Values: s.Values[start:end]}
}
