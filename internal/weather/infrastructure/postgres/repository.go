package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
)

const (
	defaultWeatherTable = "weather_data"
	defaultBatchSize    = 1000
)

// ObservationRepository is a Postgres store for weather observations keyed
// on (station, timestamp).
type ObservationRepository struct {
	db        *sql.DB
	table     string
	batchSize int
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ObservationRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ObservationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithBatchSize overrides the upsert batch size.
func WithBatchSize(size int) RepositoryOption {
	return func(repo *ObservationRepository) {
		if size > 0 {
			repo.batchSize = size
		}
	}
}

// NewObservationRepository constructs a repository with defaults.
func NewObservationRepository(db *sql.DB, opts ...RepositoryOption) *ObservationRepository {
	repo := &ObservationRepository{
		db:        db,
		table:     defaultWeatherTable,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Upsert writes observations with insert-or-update semantics on
// (station, timestamp). Rows beyond the batch size are written in sequential
// batches; a failed batch is reported but does not roll back or stop the
// remaining batches, since re-running the whole upsert is safe.
func (r *ObservationRepository) Upsert(ctx context.Context, observations []weather.Observation) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("weather repo: nil db")
	}
	if len(observations) == 0 {
		return 0, nil
	}

	var written int
	var batchErrs []error
	for offset := 0; offset < len(observations); offset += r.batchSize {
		limit := offset + r.batchSize
		if limit > len(observations) {
			limit = len(observations)
		}
		batch := observations[offset:limit]
		if err := r.upsertBatch(ctx, batch); err != nil {
			batchErrs = append(batchErrs, fmt.Errorf("weather repo: batch at %d: %w", offset, err))
			continue
		}
		written += len(batch)
	}
	return written, errors.Join(batchErrs...)
}

func (r *ObservationRepository) upsertBatch(ctx context.Context, batch []weather.Observation) error {
	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*4)
	for i, obs := range batch {
		base := i * 4
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, obs.Station, obs.Timestamp.UTC(), nullFloat(obs.TemperatureF), nullFloat(obs.HumidityPercent))
	}

	query := fmt.Sprintf(`
INSERT INTO %s (station, timestamp, temperature_f, humidity_percent)
VALUES %s
ON CONFLICT (station, timestamp) DO UPDATE SET
	temperature_f = EXCLUDED.temperature_f,
	humidity_percent = EXCLUDED.humidity_percent`, r.table, strings.Join(placeholders, ", "))

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Find loads one observation by its key. It returns (nil, nil) when the row
// does not exist.
func (r *ObservationRepository) Find(ctx context.Context, key weather.Key) (*weather.Observation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("weather repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT station, timestamp, temperature_f, humidity_percent
FROM %s
WHERE station = $1 AND timestamp = $2
LIMIT 1`, r.table)

	row := r.db.QueryRowContext(ctx, query, key.Station, key.Timestamp.UTC())
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// QueryRange returns observations for a station within [from, to],
// ordered by timestamp.
func (r *ObservationRepository) QueryRange(ctx context.Context, station string, from, to time.Time) ([]weather.Observation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("weather repo: nil db")
	}
	if station == "" {
		return nil, weather.ErrEmptyStation
	}
	query := fmt.Sprintf(`
SELECT station, timestamp, temperature_f, humidity_percent
FROM %s
WHERE station = $1 AND timestamp >= $2 AND timestamp <= $3
ORDER BY timestamp ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, station, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []weather.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, *obs)
	}
	return observations, rows.Err()
}

// HourlyTemperatures returns the mean temperature per hour-of-day for the
// given calendar day, covering the first hourCount hours. Hours with no data
// are absent from the map.
func (r *ObservationRepository) HourlyTemperatures(ctx context.Context, dayStart time.Time, hourCount int) (map[int]float64, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("weather repo: nil db")
	}
	if hourCount <= 0 {
		hourCount = 24
	}
	dayStart = dayStart.UTC().Truncate(24 * time.Hour)
	end := dayStart.Add(time.Duration(hourCount) * time.Hour)

	query := fmt.Sprintf(`
SELECT EXTRACT(HOUR FROM timestamp AT TIME ZONE 'UTC')::int AS hour, AVG(temperature_f)
FROM %s
WHERE timestamp >= $1 AND timestamp < $2 AND temperature_f IS NOT NULL
GROUP BY hour
ORDER BY hour`, r.table)

	rows, err := r.db.QueryContext(ctx, query, dayStart, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	temps := make(map[int]float64)
	for rows.Next() {
		var hour int
		var mean float64
		if err := rows.Scan(&hour, &mean); err != nil {
			return nil, err
		}
		temps[hour] = mean
	}
	return temps, rows.Err()
}

// LatestTimestamp returns the most recent stored timestamp for a station,
// or the zero time when the table is empty.
func (r *ObservationRepository) LatestTimestamp(ctx context.Context, station string) (time.Time, error) {
	if r == nil || r.db == nil {
		return time.Time{}, errors.New("weather repo: nil db")
	}
	query := fmt.Sprintf(`SELECT MAX(timestamp) FROM %s WHERE station = $1`, r.table)

	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, station).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time.UTC(), nil
}

// Count returns the number of stored rows for a station.
func (r *ObservationRepository) Count(ctx context.Context, station string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("weather repo: nil db")
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE station = $1`, r.table)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, station).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DataSummary describes the stored range for a station.
type DataSummary struct {
	Station       string
	TotalRecords  int64
	FirstObserved time.Time
	LastObserved  time.Time
	RecentSamples []weather.Observation
}

// Summary returns record counts, the stored date range, and a handful of
// recent samples for a station.
func (r *ObservationRepository) Summary(ctx context.Context, station string) (DataSummary, error) {
	summary := DataSummary{Station: station}
	if r == nil || r.db == nil {
		return summary, errors.New("weather repo: nil db")
	}

	count, err := r.Count(ctx, station)
	if err != nil {
		return summary, err
	}
	summary.TotalRecords = count
	if count == 0 {
		return summary, nil
	}

	rangeQuery := fmt.Sprintf(`SELECT MIN(timestamp), MAX(timestamp) FROM %s WHERE station = $1`, r.table)
	var first, last sql.NullTime
	if err := r.db.QueryRowContext(ctx, rangeQuery, station).Scan(&first, &last); err != nil {
		return summary, err
	}
	if first.Valid {
		summary.FirstObserved = first.Time.UTC()
	}
	if last.Valid {
		summary.LastObserved = last.Time.UTC()
	}

	sampleQuery := fmt.Sprintf(`
SELECT station, timestamp, temperature_f, humidity_percent
FROM %s
WHERE station = $1
ORDER BY timestamp DESC
LIMIT 10`, r.table)

	rows, err := r.db.QueryContext(ctx, sampleQuery, station)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return summary, err
		}
		summary.RecentSamples = append(summary.RecentSamples, *obs)
	}
	return summary, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner) (*weather.Observation, error) {
	var obs weather.Observation
	var ts time.Time
	var temp, humidity sql.NullFloat64
	if err := row.Scan(&obs.Station, &ts, &temp, &humidity); err != nil {
		return nil, err
	}
	obs.Timestamp = ts.UTC()
	if temp.Valid {
		obs.TemperatureF = &temp.Float64
	}
	if humidity.Valid {
		obs.HumidityPercent = &humidity.Float64
	}
	return &obs, nil
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}
