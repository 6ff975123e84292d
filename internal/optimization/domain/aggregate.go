package optimization

import (
	"fmt"
	"sort"
	"time"
)

// PeriodSummary aggregates run summaries over a trailing window. One run is
// treated as one day of data; when the requested window exceeds the days
// actually present, totals are projected from the true daily averages and
// the summary is flagged.
type PeriodSummary struct {
	PeriodDays   int
	DaysAnalyzed int
	ActualDays   int
	TotalRuns    int
	IsProjection bool

	TotalCost         float64
	TotalSavings      float64
	TotalWaterGallons float64

	AvgDailyCost         float64
	AvgDailySavings      float64
	AvgDailyWaterGallons float64
	AvgSavingsPercent    float64

	MaxPeakDemandMW float64
	AvgPeakDemandMW float64

	CarbonAvoidedTons float64

	Start   time.Time
	End     time.Time
	Message string
}

// AggregatePeriod computes the period summary for runs within [start, end]
// over a requested window of days. Peak-demand statistics always come from
// the actual rows, never from the projection.
func AggregatePeriod(rows []RunSummary, days int, start, end time.Time) PeriodSummary {
	summary := PeriodSummary{
		PeriodDays: days,
		Start:      start,
		End:        end,
	}
	if len(rows) == 0 {
		summary.Message = fmt.Sprintf("No data available for the last %d days", days)
		return summary
	}

	actualDays := len(rows)
	var actualCost, actualSavings, actualWater float64
	var peakMax, peakSum float64
	for _, row := range rows {
		actualCost += row.TotalCost
		actualSavings += row.CostSavings
		actualWater += row.TotalWaterGallons
		if row.PeakDemandMW > peakMax {
			peakMax = row.PeakDemandMW
		}
		peakSum += row.PeakDemandMW
	}

	avgDailyCost := actualCost / float64(actualDays)
	avgDailySavings := actualSavings / float64(actualDays)
	avgDailyWater := actualWater / float64(actualDays)

	summary.ActualDays = actualDays
	summary.TotalRuns = actualDays
	summary.IsProjection = days > actualDays
	summary.AvgDailyCost = avgDailyCost
	summary.AvgDailySavings = avgDailySavings
	summary.AvgDailyWaterGallons = avgDailyWater
	summary.MaxPeakDemandMW = peakMax
	summary.AvgPeakDemandMW = peakSum / float64(actualDays)

	if actualCost+actualSavings > 0 {
		summary.AvgSavingsPercent = actualSavings / (actualCost + actualSavings) * 100
	}

	if summary.IsProjection {
		summary.DaysAnalyzed = days
		summary.TotalCost = avgDailyCost * float64(days)
		summary.TotalSavings = avgDailySavings * float64(days)
		summary.TotalWaterGallons = avgDailyWater * float64(days)
	} else {
		summary.DaysAnalyzed = actualDays
		summary.TotalCost = actualCost
		summary.TotalSavings = actualSavings
		summary.TotalWaterGallons = actualWater
	}
	summary.CarbonAvoidedTons = summary.TotalSavings * CarbonTonsPerDollarSaved
	return summary
}

// TrendPoint is one day's savings and water usage.
type TrendPoint struct {
	Date         time.Time
	Savings      float64
	WaterGallons float64
}

// DailyTrends groups run summaries by calendar day in ascending date order.
// A day with several runs reports their mean savings and summed water usage.
func DailyTrends(rows []RunSummary) []TrendPoint {
	type dayTotals struct {
		savings float64
		water   float64
		runs    int
	}
	byDay := map[time.Time]*dayTotals{}
	for _, row := range rows {
		day := row.RunTimestamp.UTC().Truncate(24 * time.Hour)
		entry, ok := byDay[day]
		if !ok {
			entry = &dayTotals{}
			byDay[day] = entry
		}
		entry.runs++
		entry.savings += row.CostSavings
		entry.water += row.TotalWaterGallons
	}

	points := make([]TrendPoint, 0, len(byDay))
	for day, entry := range byDay {
		points = append(points, TrendPoint{
			Date:         day,
			Savings:      entry.savings / float64(entry.runs),
			WaterGallons: entry.water,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// MonthlySummary aggregates runs within one calendar month.
type MonthlySummary struct {
	Month           string
	Runs            int
	TotalCost       float64
	TotalSavings    float64
	MaxPeakDemandMW float64
}

// MonthlyBreakdown groups run summaries by calendar month (YYYY-MM),
// ascending.
func MonthlyBreakdown(rows []RunSummary) []MonthlySummary {
	byMonth := map[string]*MonthlySummary{}
	for _, row := range rows {
		month := row.RunTimestamp.UTC().Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			entry = &MonthlySummary{Month: month}
			byMonth[month] = entry
		}
		entry.Runs++
		entry.TotalCost += row.TotalCost
		entry.TotalSavings += row.CostSavings
		if row.PeakDemandMW > entry.MaxPeakDemandMW {
			entry.MaxPeakDemandMW = row.PeakDemandMW
		}
	}

	months := make([]MonthlySummary, 0, len(byMonth))
	for _, entry := range byMonth {
		months = append(months, *entry)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}
