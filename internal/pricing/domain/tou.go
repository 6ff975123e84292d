package pricing

import (
	"errors"
	"fmt"
)

// RateType classifies an hourly electricity rate.
type RateType string

const (
	RatePeak         RateType = "peak"
	RateOffPeak      RateType = "off-peak"
	RateSuperOffPeak RateType = "super-off-peak"
)

// Default time-of-use rates in $/MWh.
const (
	DefaultPeakRate         = 150.0
	DefaultOffPeakRate      = 35.0
	DefaultSuperOffPeakRate = 25.0
)

// Default TOU window boundaries, hours in [0, 24). The peak window is
// configurable per schedule; the super-off-peak window is fixed.
const (
	DefaultPeakStartHour  = 15
	DefaultPeakEndHour    = 20
	SuperOffPeakStartHour = 22
	SuperOffPeakEndHour   = 6
)

var ErrInvalidHour = errors.New("pricing: hour out of range")

// TOUSchedule maps an hour of day to a flat $/MWh rate. Peak covers
// [PeakStart, PeakEnd), super-off-peak wraps midnight covering [22, 24) and
// [0, 6), and every remaining hour is off-peak. Peak wins where the windows
// would overlap.
type TOUSchedule struct {
	PeakRate         float64
	OffPeakRate      float64
	SuperOffPeakRate float64
	PeakStart        int
	PeakEnd          int
}

// DefaultTOUSchedule returns the schedule with the default rates and peak
// window.
func DefaultTOUSchedule() TOUSchedule {
	return TOUSchedule{
		PeakRate:         DefaultPeakRate,
		OffPeakRate:      DefaultOffPeakRate,
		SuperOffPeakRate: DefaultSuperOffPeakRate,
		PeakStart:        DefaultPeakStartHour,
		PeakEnd:          DefaultPeakEndHour,
	}
}

// Validate reports whether every rate is non-negative and the peak window is
// a non-empty range of day hours.
func (s TOUSchedule) Validate() error {
	if s.PeakRate < 0 || s.OffPeakRate < 0 || s.SuperOffPeakRate < 0 {
		return errors.New("pricing: negative rate")
	}
	if s.PeakStart < 0 || s.PeakEnd > 24 || s.PeakStart >= s.PeakEnd {
		return errors.New("pricing: invalid peak window")
	}
	return nil
}

// RateFor returns the rate and its classification for an hour of day.
func (s TOUSchedule) RateFor(hour int) (float64, RateType, error) {
	if hour < 0 || hour > 23 {
		return 0, "", fmt.Errorf("%w: %d", ErrInvalidHour, hour)
	}
	switch {
	case hour >= s.PeakStart && hour < s.PeakEnd:
		return s.PeakRate, RatePeak, nil
	case hour >= SuperOffPeakStartHour || hour < SuperOffPeakEndHour:
		return s.SuperOffPeakRate, RateSuperOffPeak, nil
	default:
		return s.OffPeakRate, RateOffPeak, nil
	}
}

// HourlyRates returns rates for the first hourCount hours of the day.
func (s TOUSchedule) HourlyRates(hourCount int) ([]HourlyRate, error) {
	if hourCount < 1 || hourCount > 24 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidHour, hourCount)
	}
	rates := make([]HourlyRate, 0, hourCount)
	for hour := 0; hour < hourCount; hour++ {
		rate, rateType, err := s.RateFor(hour)
		if err != nil {
			return nil, err
		}
		rates = append(rates, HourlyRate{Hour: hour, PriceMWh: rate, Type: rateType})
	}
	return rates, nil
}

// HourlyRate is one hour's electricity price.
type HourlyRate struct {
	Hour     int
	PriceMWh float64
	Type     RateType
}
