package weather

import (
	"errors"
	"time"
)

// Canonical field names stored per observation.
const (
	FieldTemperatureF    = "tmpf"
	FieldHumidityPercent = "relh"
)

// ErrEmptyStation indicates a missing station code.
var ErrEmptyStation = errors.New("weather: empty station code")

// Observation is one normalized hourly weather report for a station.
// Temperature and humidity are nil when the upstream service reported
// no value for that hour.
type Observation struct {
	Station         string
	Timestamp       time.Time
	TemperatureF    *float64
	HumidityPercent *float64
}

// Key identifies an observation by its uniqueness constraint.
type Key struct {
	Station   string
	Timestamp time.Time
}

// Key returns the (station, timestamp) identity of the observation.
func (o Observation) Key() Key {
	return Key{Station: o.Station, Timestamp: o.Timestamp.UTC()}
}

// Empty reports whether every measured field is absent. Empty observations
// carry no information and are dropped during normalization.
func (o Observation) Empty() bool {
	return o.TemperatureF == nil && o.HumidityPercent == nil
}

// Dedupe removes observations sharing a (station, timestamp) key, keeping
// the first occurrence. Duplicates are expected only at chunk boundaries
// where one chunk's end date equals the next chunk's start date.
func Dedupe(observations []Observation) []Observation {
	if len(observations) == 0 {
		return observations
	}
	seen := make(map[Key]struct{}, len(observations))
	out := observations[:0]
	for _, obs := range observations {
		key := obs.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, obs)
	}
	return out
}
