package pricing

import (
	"errors"
	"math"
	"time"
)

// Water pricing model: a base rate per 1000 gallons adjusted by a summer
// demand multiplier and a cumulative monthly usage tier.
const (
	WaterBaseRatePer1000Gal = 3.24

	WaterSummerMultiplier   = 1.25
	WaterShoulderMultiplier = 1.15

	WaterTier1LimitGal = 100000.0
	WaterTier2LimitGal = 500000.0

	WaterTier2Multiplier = 1.2
	WaterTier3Multiplier = 1.5
)

var ErrNegativeUsage = errors.New("pricing: negative water usage")

// SeasonalWaterMultiplier returns the demand multiplier for a month.
// June through August carry the summer multiplier, May and September the
// shoulder multiplier, and all other months are unadjusted.
func SeasonalWaterMultiplier(month time.Month) float64 {
	switch month {
	case time.June, time.July, time.August:
		return WaterSummerMultiplier
	case time.May, time.September:
		return WaterShoulderMultiplier
	default:
		return 1.0
	}
}

// UsageTierMultiplier returns the tier multiplier for cumulative usage in
// gallons.
func UsageTierMultiplier(cumulativeGallons float64) float64 {
	switch {
	case cumulativeGallons < WaterTier1LimitGal:
		return 1.0
	case cumulativeGallons < WaterTier2LimitGal:
		return WaterTier2Multiplier
	default:
		return WaterTier3Multiplier
	}
}

// HourlyWaterPrices computes 24 hourly $/1000 gal rates for a day given the
// expected usage per hour. The tier is recomputed each hour from cumulative
// gallons including that hour's usage, so it can only rise within a day.
// Each price is rounded to four decimal places.
func HourlyWaterPrices(date time.Time, gallonsPerHour []float64) ([]float64, error) {
	seasonal := SeasonalWaterMultiplier(date.Month())
	prices := make([]float64, 0, 24)
	var cumulative float64
	for hour := 0; hour < 24; hour++ {
		if hour < len(gallonsPerHour) {
			if gallonsPerHour[hour] < 0 {
				return nil, ErrNegativeUsage
			}
			cumulative += gallonsPerHour[hour]
		}
		price := WaterBaseRatePer1000Gal * seasonal * UsageTierMultiplier(cumulative)
		prices = append(prices, math.Round(price*10000)/10000)
	}
	return prices, nil
}

// WaterPrice computes the effective $/1000 gal rate for a delivery on the
// given date with the given cumulative monthly usage. The result is rounded
// to four decimal places.
func WaterPrice(date time.Time, cumulativeGallons float64) (float64, error) {
	if cumulativeGallons < 0 {
		return 0, ErrNegativeUsage
	}
	price := WaterBaseRatePer1000Gal *
		SeasonalWaterMultiplier(date.Month()) *
		UsageTierMultiplier(cumulativeGallons)
	return math.Round(price*10000) / 10000, nil
}
