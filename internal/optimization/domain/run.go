package optimization

import (
	"errors"
	"fmt"
	"time"
)

// HoursPerRun is the hourly resolution of one optimization run. A saved run
// always carries exactly this many hourly rows, hours 0 through 23.
const HoursPerRun = 24

// CarbonTonsPerDollarSaved converts cost savings into avoided carbon tons.
const CarbonTonsPerDollarSaved = 0.0004

var (
	ErrWrongHourCount = errors.New("optimization: run requires exactly 24 hourly rows")
	ErrDuplicateHour  = errors.New("optimization: duplicate hour in run")
)

// RunSummary is one optimization run's aggregate result.
type RunSummary struct {
	RunID        string
	RunTimestamp time.Time
	RunName      string

	TotalCost          float64
	ElectricityCost    float64
	WaterCost          float64
	BaselineCost       float64
	CostSavings        float64
	CostSavingsPercent float64

	TotalWaterGallons float64
	PeakDemandMW      float64
	AverageLoadMW     float64

	WaterSavedGallons float64
	CarbonAvoidedTons float64

	Configuration string

	MaxTemperatureF float64
	MinTemperatureF float64
	AvgTemperatureF float64

	SolverTimeSeconds float64
	Status            string
}

// HourlyResult is one hour of an optimization run.
type HourlyResult struct {
	RunID        string
	RunTimestamp time.Time
	Hour         int

	BatchLoadMW float64
	TotalLoadMW float64

	CoolingMode        string
	WaterCoolingActive bool

	HourlyCost        float64
	WaterUsageGallons float64

	TemperatureF     float64
	ElectricityPrice float64
}

// ValidateHourly checks that results cover hours 0..23 exactly once.
func ValidateHourly(results []HourlyResult) error {
	if len(results) != HoursPerRun {
		return fmt.Errorf("%w: got %d", ErrWrongHourCount, len(results))
	}
	var seen [HoursPerRun]bool
	for _, res := range results {
		if res.Hour < 0 || res.Hour >= HoursPerRun {
			return fmt.Errorf("optimization: hour %d out of range", res.Hour)
		}
		if seen[res.Hour] {
			return fmt.Errorf("%w: hour %d", ErrDuplicateHour, res.Hour)
		}
		seen[res.Hour] = true
	}
	return nil
}
