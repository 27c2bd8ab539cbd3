package timeseries

import "time"

// Window is an immutable, contiguous sub-range of a table identified by
// half-open position bounds. It references the table's storage and never
// copies data. Callers that think in positions use Bounds; callers that think
// in timestamps use TimeBounds.
type Window struct {
	table *Table
	start int
	end   int
}

// Bounds returns the half-open position range [start, end) covered by the window.
func (w Window) Bounds() (start, end int) {
	return w.start, w.end
}

// Len returns the number of observations in the window.
func (w Window) Len() int {
	return w.end - w.start
}

// Empty reports whether the window covers no observations.
func (w Window) Empty() bool {
	return w.end <= w.start
}

// TimeBounds returns the timestamps of the first and last records covered by
// the window. Both are the zero time when the window is empty.
func (w Window) TimeBounds() (first, last time.Time) {
	if w.Empty() {
		return time.Time{}, time.Time{}
	}
	return w.table.timestamps[w.start], w.table.timestamps[w.end-1]
}

// Timestamps returns the timestamp sub-slice covered by the window.
func (w Window) Timestamps() []time.Time {
	return w.table.timestamps[w.start:w.end]
}

// Series returns a view over the named value column restricted to the window.
func (w Window) Series(name string) (Series, error) {
	s, err := w.table.Series(name)
	if err != nil {
		return Series{}, err
	}
	return s.Slice(w.start, w.end), nil
}

// Table returns the table the window views.
func (w Window) Table() *Table {
	return w.table
}
