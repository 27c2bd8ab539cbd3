package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/irfndi/forecast-baseline-go/internal/models"
	"github.com/irfndi/forecast-baseline-go/internal/timeseries"
)

// ErrSeriesNotFound is returned when a series ID has no stored observations.
var ErrSeriesNotFound = errors.New("series not found")

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// SeriesRepository handles database operations for stored observation series.
type SeriesRepository struct {
	pool DatabasePool
}

// NewSeriesRepository creates a new series repository.
func NewSeriesRepository(pool DatabasePool) *SeriesRepository {
	return &SeriesRepository{
		pool: pool,
	}
}

// LoadTable reads every observation of a series in ascending timestamp order
// and builds a single-column table from them.
func (r *SeriesRepository) LoadTable(ctx context.Context, seriesID string) (*timeseries.Table, error) {
	query := `
		SELECT ts, value
		FROM series_observations
		WHERE series_id = $1
		ORDER BY ts ASC
	`

	rows, err := r.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series %s: %w", seriesID, err)
	}
	defer rows.Close()

	var (
		timestamps []time.Time
		values     []float64
	)
	for rows.Next() {
		var ts time.Time
		var value decimal.Decimal
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		timestamps = append(timestamps, ts)
		v, _ := value.Float64()
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	if len(timestamps) == 0 {
		return nil, ErrSeriesNotFound
	}

	return timeseries.New(timestamps, timeseries.Column{Name: "value", Values: values})
}

// UpsertObservations writes a batch of observations, replacing any existing
// value at the same (series_id, ts).
func (r *SeriesRepository) UpsertObservations(ctx context.Context, observations []models.Observation) (int64, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO series_observations (series_id, ts, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (series_id, ts)
		DO UPDATE SET value = EXCLUDED.value
	`

	var stored int64
	for _, obs := range observations {
		tag, err := r.pool.Exec(ctx, query, obs.SeriesID, obs.Timestamp, obs.Value)
		if err != nil {
			return stored, fmt.Errorf("failed to store observation for %s: %w", obs.SeriesID, err)
		}
		stored += tag.RowsAffected()
	}
	return stored, nil
}

// ListSeries summarizes every stored series.
func (r *SeriesRepository) ListSeries(ctx context.Context) ([]models.SeriesInfo, error) {
	query := `
		SELECT series_id, COUNT(*), MIN(ts), MAX(ts)
		FROM series_observations
		GROUP BY series_id
		ORDER BY series_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var infos []models.SeriesInfo
	for rows.Next() {
		var info models.SeriesInfo
		if err := rows.Scan(&info.SeriesID, &info.Observations, &info.First, &info.Last); err != nil {
			return nil, fmt.Errorf("failed to scan series summary: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series summaries: %w", err)
	}
	return infos, nil
}

// DeleteSeries removes every observation of a series. It reports
// ErrSeriesNotFound when nothing was stored under the ID.
func (r *SeriesRepository) DeleteSeries(ctx context.Context, seriesID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM series_observations WHERE series_id = $1`, seriesID)
	if err != nil {
		return fmt.Errorf("failed to delete series %s: %w", seriesID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSeriesNotFound
	}
	return nil
}
