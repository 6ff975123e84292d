package weather

import (
	"errors"
	"time"
)

// ErrInvalidRange indicates an inverted or malformed date range.
var ErrInvalidRange = errors.New("weather: start date after end date")

// ErrInvalidChunkSize indicates a non-positive chunk size.
var ErrInvalidChunkSize = errors.New("weather: chunk size must be at least one day")

// DateRange is an inclusive calendar interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the range spans, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// DateChunks splits the inclusive interval [start, end] into ordered,
// non-overlapping sub-intervals of at most chunkDays days each. The final
// chunk is truncated so the sequence covers the interval exactly.
func DateChunks(start, end time.Time, chunkDays int) ([]DateRange, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if chunkDays < 1 {
		return nil, ErrInvalidChunkSize
	}

	var chunks []DateRange
	current := start
	for !current.After(end) {
		chunkEnd := current.AddDate(0, 0, chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, DateRange{Start: current, End: chunkEnd})
		current = chunkEnd.AddDate(0, 0, 1)
	}
	return chunks, nil
}
