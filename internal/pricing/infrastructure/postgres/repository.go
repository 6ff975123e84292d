package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
)

const (
	defaultElectricityTable = "electricity_prices"
	defaultWaterTable       = "water_prices"
)

// PriceRepository stores hourly electricity prices and daily water prices.
type PriceRepository struct {
	db               *sql.DB
	electricityTable string
	waterTable       string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*PriceRepository)

// WithElectricityTable overrides the electricity price table name.
func WithElectricityTable(table string) RepositoryOption {
	return func(repo *PriceRepository) {
		if table != "" {
			repo.electricityTable = table
		}
	}
}

// WithWaterTable overrides the water price table name.
func WithWaterTable(table string) RepositoryOption {
	return func(repo *PriceRepository) {
		if table != "" {
			repo.waterTable = table
		}
	}
}

// NewPriceRepository constructs a repository with defaults.
func NewPriceRepository(db *sql.DB, opts ...RepositoryOption) *PriceRepository {
	repo := &PriceRepository{
		db:               db,
		electricityTable: defaultElectricityTable,
		waterTable:       defaultWaterTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// PricesForDay returns stored hourly prices for the first hourCount hours of
// a calendar day, ordered by timestamp. Callers decide whether a partial set
// is usable.
func (r *PriceRepository) PricesForDay(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("price repo: nil db")
	}
	if hourCount <= 0 {
		hourCount = 24
	}
	dayStart := day.UTC().Truncate(24 * time.Hour)
	end := dayStart.Add(time.Duration(hourCount) * time.Hour)

	query := fmt.Sprintf(`
SELECT timestamp, hour, price_per_mwh, rate_type, source
FROM %s
WHERE timestamp >= $1 AND timestamp < $2
ORDER BY timestamp ASC`, r.electricityTable)

	rows, err := r.db.QueryContext(ctx, query, dayStart, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []pricing.PriceRecord
	for rows.Next() {
		var rec pricing.PriceRecord
		var rateType, source sql.NullString
		var ts time.Time
		if err := rows.Scan(&ts, &rec.Hour, &rec.PriceMWh, &rateType, &source); err != nil {
			return nil, err
		}
		rec.Timestamp = ts.UTC()
		rec.Type = pricing.RateType(rateType.String)
		rec.Source = source.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// StorePrices writes hourly prices with insert-or-update semantics keyed on
// the timestamp.
func (r *PriceRepository) StorePrices(ctx context.Context, records []pricing.PriceRecord) error {
	if r == nil || r.db == nil {
		return errors.New("price repo: nil db")
	}
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*5)
	for i, rec := range records {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, rec.Timestamp.UTC(), rec.Hour, rec.PriceMWh, string(rec.Type), rec.Source)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, hour, price_per_mwh, rate_type, source)
VALUES %s
ON CONFLICT (timestamp) DO UPDATE SET
	hour = EXCLUDED.hour,
	price_per_mwh = EXCLUDED.price_per_mwh,
	rate_type = EXCLUDED.rate_type,
	source = EXCLUDED.source`, r.electricityTable, strings.Join(placeholders, ", "))

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// StoreWaterPrice records one daily water price, replacing any prior value
// for the same date.
func (r *PriceRepository) StoreWaterPrice(ctx context.Context, rec pricing.WaterPriceRecord) error {
	if r == nil || r.db == nil {
		return errors.New("price repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (date, price_per_1000gal, cumulative_gallons)
VALUES ($1, $2, $3)
ON CONFLICT (date) DO UPDATE SET
	price_per_1000gal = EXCLUDED.price_per_1000gal,
	cumulative_gallons = EXCLUDED.cumulative_gallons`, r.waterTable)

	_, err := r.db.ExecContext(ctx, query, rec.Date.UTC().Truncate(24*time.Hour), rec.PricePer1000Gal, rec.CumulativeGallons)
	return err
}

// WaterPriceForDay loads the stored water price for a date. It returns
// (nil, nil) when no price is stored.
func (r *PriceRepository) WaterPriceForDay(ctx context.Context, day time.Time) (*pricing.WaterPriceRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("price repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT date, price_per_1000gal, cumulative_gallons
FROM %s
WHERE date = $1
LIMIT 1`, r.waterTable)

	var rec pricing.WaterPriceRecord
	var date time.Time
	err := r.db.QueryRowContext(ctx, query, day.UTC().Truncate(24*time.Hour)).
		Scan(&date, &rec.PricePer1000Gal, &rec.CumulativeGallons)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Date = date.UTC()
	return &rec, nil
}
