package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// schema contains the DDL for every table the pipeline and dashboard read
// path touch. All statements are idempotent.
const schema = `
-- Normalized weather observations, one row per station reading
CREATE TABLE IF NOT EXISTS weather_data (
    id BIGSERIAL PRIMARY KEY,
    station TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL,
    temperature_f DOUBLE PRECISION,
    humidity_percent DOUBLE PRECISION,
    created_at TIMESTAMPTZ DEFAULT now(),
    UNIQUE (station, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_weather_data_timestamp ON weather_data (timestamp);
CREATE INDEX IF NOT EXISTS idx_weather_data_station_timestamp ON weather_data (station, timestamp);

-- Resolved hourly electricity prices with their origin
CREATE TABLE IF NOT EXISTS electricity_prices (
    id BIGSERIAL PRIMARY KEY,
    timestamp TIMESTAMPTZ NOT NULL UNIQUE,
    hour INTEGER NOT NULL DEFAULT 0 CHECK (hour >= 0 AND hour < 24),
    price_per_mwh DOUBLE PRECISION NOT NULL,
    rate_type TEXT,
    source TEXT,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_electricity_prices_timestamp ON electricity_prices (timestamp);

-- Daily water prices from the seasonal and tier model
CREATE TABLE IF NOT EXISTS water_prices (
    id BIGSERIAL PRIMARY KEY,
    date DATE NOT NULL UNIQUE,
    price_per_1000gal DOUBLE PRECISION NOT NULL,
    cumulative_gallons DOUBLE PRECISION DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT now()
);

-- One row per optimization run
CREATE TABLE IF NOT EXISTS optimization_summary (
    id BIGSERIAL PRIMARY KEY,
    run_id UUID NOT NULL UNIQUE,
    run_timestamp TIMESTAMPTZ NOT NULL,
    run_name TEXT,
    total_cost DOUBLE PRECISION DEFAULT 0,
    electricity_cost DOUBLE PRECISION DEFAULT 0,
    water_cost DOUBLE PRECISION DEFAULT 0,
    baseline_cost DOUBLE PRECISION DEFAULT 0,
    cost_savings DOUBLE PRECISION DEFAULT 0,
    cost_savings_percent DOUBLE PRECISION DEFAULT 0,
    total_water_usage_gallons DOUBLE PRECISION DEFAULT 0,
    peak_demand_mw DOUBLE PRECISION DEFAULT 0,
    average_load_mw DOUBLE PRECISION DEFAULT 0,
    water_saved_gallons DOUBLE PRECISION DEFAULT 0,
    carbon_avoided_tons DOUBLE PRECISION DEFAULT 0,
    configuration JSONB,
    max_temperature_f DOUBLE PRECISION DEFAULT 0,
    min_temperature_f DOUBLE PRECISION DEFAULT 0,
    avg_temperature_f DOUBLE PRECISION DEFAULT 0,
    solver_time_seconds DOUBLE PRECISION DEFAULT 0,
    optimization_status TEXT DEFAULT 'completed',
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_optimization_summary_run_timestamp ON optimization_summary (run_timestamp);

-- 24 hourly rows per optimization run
CREATE TABLE IF NOT EXISTS optimization_results (
    id BIGSERIAL PRIMARY KEY,
    run_id UUID NOT NULL REFERENCES optimization_summary (run_id) ON DELETE CASCADE,
    run_timestamp TIMESTAMPTZ NOT NULL,
    hour INTEGER NOT NULL CHECK (hour >= 0 AND hour < 24),
    batch_load_mw DOUBLE PRECISION DEFAULT 0,
    total_load_mw DOUBLE PRECISION DEFAULT 0,
    cooling_mode TEXT,
    water_cooling_active BOOLEAN DEFAULT FALSE,
    hourly_cost DOUBLE PRECISION DEFAULT 0,
    water_usage_gallons DOUBLE PRECISION DEFAULT 0,
    temperature_f DOUBLE PRECISION DEFAULT 0,
    electricity_price DOUBLE PRECISION DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT now(),
    UNIQUE (run_id, hour)
);
CREATE INDEX IF NOT EXISTS idx_optimization_results_run_id ON optimization_results (run_id);
`

// EnsureSchema creates every table and index the application uses. Safe to
// run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("schema: nil db")
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}
