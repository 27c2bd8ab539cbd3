// Package timeseries provides the time-indexed table abstraction shared by the
// persistence baselines and the cross-validation splitter. A Table does not own
// or sort its data; it is a read-only view over records supplied by the caller,
// ordered ascending by timestamp.
package timeseries

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLengthMismatch indicates a value column whose length differs from the
	// timestamp column.
	ErrLengthMismatch = errors.New("column length does not match timestamps")
	// ErrNoColumns indicates a table constructed without any value column.
	ErrNoColumns = errors.New("table requires at least one value column")
	// ErrUnknownColumn indicates a lookup for a column name the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

// Column is a named sequence of scalar values aligned with a table's timestamps.
type Column struct {
	Name   string
	Values []float64
}

// Table is an ordered sequence of records, each with a timestamp and one or
// more scalar value fields. Callers are responsible for supplying timestamps in
// non-decreasing order; the table itself never sorts or copies. Mutating the
// backing slices while iterating windows over the table is unspecified
// behavior and is the caller's responsibility to avoid.
type Table struct {
	timestamps []time.Time
	columns    []Column
}

// New creates a table over the given timestamps and value columns. The slices
// are referenced, not copied.
func New(timestamps []time.Time, columns ...Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	for _, col := range columns {
		if len(col.Values) != len(timestamps) {
			return nil, fmt.Errorf("column %q has %d values for %d timestamps: %w",
				col.Name, len(col.Values), len(timestamps), ErrLengthMismatch)
		}
	}
	return &Table{timestamps: timestamps, columns: columns}, nil
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return len(t.timestamps)
}

// Timestamp returns the timestamp at position i.
func (t *Table) Timestamp(i int) time.Time {
	return t.timestamps[i]
}

// Timestamps returns the table's timestamp column. The returned slice is the
// backing storage and must not be modified.
func (t *Table) Timestamps() []time.Time {
	return t.timestamps
}

// First returns the earliest timestamp, or the zero time for an empty table.
func (t *Table) First() time.Time {
	if len(t.timestamps) == 0 {
		return time.Time{}
	}
	return t.timestamps[0]
}

// Last returns the latest timestamp, or the zero time for an empty table.
func (t *Table) Last() time.Time {
	if len(t.timestamps) == 0 {
		return time.Time{}
	}
	return t.timestamps[len(t.timestamps)-1]
}

// ColumnNames returns the value column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Series returns a view over the named value column.
func (t *Table) Series(name string) (Series, error) {
	for _, col := range t.columns {
		if col.Name == name {
			return Series{Timestamps: t.timestamps, Values: col.Values}, nil
		}
	}
	return Series{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Window returns a view over the half-open position range [start, end). The
// bounds are clamped to the table.
func (t *Table) Window(start, end int) Window {
	if start < 0 {
		start = 0
	}
	if end > len(t.timestamps) {
		end = len(t.timestamps)
	}
	if start > end {
		start = end
	}
	return Window{table: t, start: start, end: end}
}
