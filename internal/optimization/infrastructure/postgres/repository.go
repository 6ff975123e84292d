package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	optimization "github.com/Automynx/Cooling-The-Cloud/internal/optimization/domain"
)

const (
	defaultSummaryTable = "optimization_summary"
	defaultResultsTable = "optimization_results"
)

// RunRepository persists optimization runs: one summary row plus exactly 24
// hourly rows, written together and never mutated afterwards.
type RunRepository struct {
	db           *sql.DB
	summaryTable string
	resultsTable string
}

// NewRunRepository constructs a repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{
		db:           db,
		summaryTable: defaultSummaryTable,
		resultsTable: defaultResultsTable,
	}
}

// SaveRun validates the hourly set, assigns a run id, and writes the summary
// and hourly rows in one transaction. It returns the assigned run id.
func (r *RunRepository) SaveRun(ctx context.Context, summary optimization.RunSummary, hourly []optimization.HourlyResult) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("run repo: nil db")
	}
	if err := optimization.ValidateHourly(hourly); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if summary.RunTimestamp.IsZero() {
		summary.RunTimestamp = time.Now().UTC()
	}
	if summary.RunName == "" {
		summary.RunName = "Optimization Run " + summary.RunTimestamp.Format("2006-01-02 15:04")
	}
	if summary.Status == "" {
		summary.Status = "completed"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	insertSummary := fmt.Sprintf(`
INSERT INTO %s (
	run_id, run_timestamp, run_name,
	total_cost, electricity_cost, water_cost, baseline_cost,
	cost_savings, cost_savings_percent,
	total_water_usage_gallons, peak_demand_mw, average_load_mw,
	water_saved_gallons, carbon_avoided_tons, configuration,
	max_temperature_f, min_temperature_f, avg_temperature_f,
	solver_time_seconds, optimization_status
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)`, r.summaryTable)

	_, err = tx.ExecContext(ctx, insertSummary,
		runID, summary.RunTimestamp.UTC(), summary.RunName,
		summary.TotalCost, summary.ElectricityCost, summary.WaterCost, summary.BaselineCost,
		summary.CostSavings, summary.CostSavingsPercent,
		summary.TotalWaterGallons, summary.PeakDemandMW, summary.AverageLoadMW,
		summary.WaterSavedGallons, summary.CarbonAvoidedTons, summary.Configuration,
		summary.MaxTemperatureF, summary.MinTemperatureF, summary.AvgTemperatureF,
		summary.SolverTimeSeconds, summary.Status,
	)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	if err := insertHourly(ctx, tx, r.resultsTable, runID, summary.RunTimestamp, hourly); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

func insertHourly(ctx context.Context, tx *sql.Tx, table, runID string, runTimestamp time.Time, hourly []optimization.HourlyResult) error {
	const columnsPerRow = 11
	placeholders := make([]string, 0, len(hourly))
	args := make([]any, 0, len(hourly)*columnsPerRow)
	for i, res := range hourly {
		base := i * columnsPerRow
		marks := make([]string, columnsPerRow)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ",")+")")
		args = append(args,
			runID, runTimestamp.UTC(), res.Hour,
			res.BatchLoadMW, res.TotalLoadMW,
			res.CoolingMode, res.WaterCoolingActive,
			res.HourlyCost, res.WaterUsageGallons,
			res.TemperatureF, res.ElectricityPrice,
		)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id, run_timestamp, hour,
	batch_load_mw, total_load_mw,
	cooling_mode, water_cooling_active,
	hourly_cost, water_usage_gallons,
	temperature_f, electricity_price
) VALUES %s`, table, strings.Join(placeholders, ", "))

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// SummariesSince returns run summaries with run_timestamp within
// [since, until], newest first.
func (r *RunRepository) SummariesSince(ctx context.Context, since, until time.Time) ([]optimization.RunSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("run repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT run_id, run_timestamp, run_name,
	total_cost, electricity_cost, water_cost, baseline_cost,
	cost_savings, cost_savings_percent,
	total_water_usage_gallons, peak_demand_mw, average_load_mw,
	water_saved_gallons, carbon_avoided_tons, configuration,
	max_temperature_f, min_temperature_f, avg_temperature_f,
	solver_time_seconds, optimization_status
FROM %s
WHERE run_timestamp >= $1 AND run_timestamp <= $2
ORDER BY run_timestamp DESC`, r.summaryTable)

	rows, err := r.db.QueryContext(ctx, query, since.UTC(), until.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSummaries(rows)
}

// RecentSummaries returns the latest limit run summaries, newest first.
func (r *RunRepository) RecentSummaries(ctx context.Context, limit int) ([]optimization.RunSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("run repo: nil db")
	}
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`
SELECT run_id, run_timestamp, run_name,
	total_cost, electricity_cost, water_cost, baseline_cost,
	cost_savings, cost_savings_percent,
	total_water_usage_gallons, peak_demand_mw, average_load_mw,
	water_saved_gallons, carbon_avoided_tons, configuration,
	max_temperature_f, min_temperature_f, avg_temperature_f,
	solver_time_seconds, optimization_status
FROM %s
ORDER BY run_timestamp DESC
LIMIT $1`, r.summaryTable)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSummaries(rows)
}

// FindRun loads one run summary with its hourly rows ordered by hour. It
// returns (nil, nil, nil) when the run does not exist.
func (r *RunRepository) FindRun(ctx context.Context, runID string) (*optimization.RunSummary, []optimization.HourlyResult, error) {
	if r == nil || r.db == nil {
		return nil, nil, errors.New("run repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT run_id, run_timestamp, run_name,
	total_cost, electricity_cost, water_cost, baseline_cost,
	cost_savings, cost_savings_percent,
	total_water_usage_gallons, peak_demand_mw, average_load_mw,
	water_saved_gallons, carbon_avoided_tons, configuration,
	max_temperature_f, min_temperature_f, avg_temperature_f,
	solver_time_seconds, optimization_status
FROM %s
WHERE run_id = $1
LIMIT 1`, r.summaryTable)

	summary, err := scanSummary(r.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	hourlyQuery := fmt.Sprintf(`
SELECT run_id, run_timestamp, hour,
	batch_load_mw, total_load_mw,
	cooling_mode, water_cooling_active,
	hourly_cost, water_usage_gallons,
	temperature_f, electricity_price
FROM %s
WHERE run_id = $1
ORDER BY hour ASC`, r.resultsTable)

	rows, err := r.db.QueryContext(ctx, hourlyQuery, runID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var hourly []optimization.HourlyResult
	for rows.Next() {
		var res optimization.HourlyResult
		var ts time.Time
		if err := rows.Scan(
			&res.RunID, &ts, &res.Hour,
			&res.BatchLoadMW, &res.TotalLoadMW,
			&res.CoolingMode, &res.WaterCoolingActive,
			&res.HourlyCost, &res.WaterUsageGallons,
			&res.TemperatureF, &res.ElectricityPrice,
		); err != nil {
			return nil, nil, err
		}
		res.RunTimestamp = ts.UTC()
		hourly = append(hourly, res)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return summary, hourly, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*optimization.RunSummary, error) {
	var summary optimization.RunSummary
	var ts time.Time
	var configuration sql.NullString
	err := row.Scan(
		&summary.RunID, &ts, &summary.RunName,
		&summary.TotalCost, &summary.ElectricityCost, &summary.WaterCost, &summary.BaselineCost,
		&summary.CostSavings, &summary.CostSavingsPercent,
		&summary.TotalWaterGallons, &summary.PeakDemandMW, &summary.AverageLoadMW,
		&summary.WaterSavedGallons, &summary.CarbonAvoidedTons, &configuration,
		&summary.MaxTemperatureF, &summary.MinTemperatureF, &summary.AvgTemperatureF,
		&summary.SolverTimeSeconds, &summary.Status,
	)
	if err != nil {
		return nil, err
	}
	summary.RunTimestamp = ts.UTC()
	summary.Configuration = configuration.String
	return &summary, nil
}

func collectSummaries(rows *sql.Rows) ([]optimization.RunSummary, error) {
	var summaries []optimization.RunSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}
