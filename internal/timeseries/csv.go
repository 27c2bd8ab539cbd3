package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	TimeColumn string // Header name of the timestamp column (default: first column)
	TimeFormat string // Timestamp layout (default: RFC 3339)
	Delimiter  rune   // Field delimiter (default: ',')
}

// DefaultCSVOptions returns the default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		TimeFormat: time.RFC3339,
		Delimiter:  ',',
	}
}

// FromCSV reads a table from CSV data with a header row. One column holds
// timestamps and every other column is parsed as a float64 value column.
// Rows are kept in file order; the loader does not sort.
func FromCSV(r io.Reader, opts *CSVOptions) (*Table, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	timeIdx := 0
	if opts.TimeColumn != "" {
		timeIdx = -1
		for i, h := range header {
			if strings.TrimSpace(h) == opts.TimeColumn {
				timeIdx = i
				break
			}
		}
		if timeIdx == -1 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, opts.TimeColumn)
		}
	}

	var timestamps []time.Time
	columns := make([]Column, 0, len(header)-1)
	colIdx := make([]int, 0, len(header)-1)
	for i, h := range header {
		if i == timeIdx {
			continue
		}
		columns = append(columns, Column{Name: strings.TrimSpace(h)})
		colIdx = append(colIdx, i)
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		ts, err := time.Parse(opts.TimeFormat, strings.TrimSpace(record[timeIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", line, err)
		}
		timestamps = append(timestamps, ts)

		for c, idx := range colIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, columns[c].Name, err)
			}
			columns[c].Values = append(columns[c].Values, v)
		}
	}

	if len(timestamps) == 0 {
		return nil, errors.New("no data rows found in CSV")
	}

	return New(timestamps, columns...)
}
