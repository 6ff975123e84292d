package weather

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateChunks_CoversRangeExactly(t *testing.T) {
	start := day(2024, time.August, 1)
	end := day(2024, time.October, 15)

	chunks, err := DateChunks(start, end, 30)
	if err != nil {
		t.Fatalf("date chunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	if !chunks[0].Start.Equal(start) {
		t.Fatalf("first chunk starts at %v, want %v", chunks[0].Start, start)
	}
	if !chunks[len(chunks)-1].End.Equal(end) {
		t.Fatalf("last chunk ends at %v, want %v", chunks[len(chunks)-1].End, end)
	}

	for i, chunk := range chunks {
		if chunk.Start.After(chunk.End) {
			t.Fatalf("chunk %d inverted: %v > %v", i, chunk.Start, chunk.End)
		}
		if chunk.Days() > 30 {
			t.Fatalf("chunk %d spans %d days, want <= 30", i, chunk.Days())
		}
		if i > 0 {
			expected := chunks[i-1].End.AddDate(0, 0, 1)
			if !chunk.Start.Equal(expected) {
				t.Fatalf("chunk %d starts at %v, want %v (gap or overlap)", i, chunk.Start, expected)
			}
		}
	}
}

func TestDateChunks_SingleDayRange(t *testing.T) {
	d := day(2024, time.August, 1)
	chunks, err := DateChunks(d, d, 30)
	if err != nil {
		t.Fatalf("date chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !chunks[0].Start.Equal(d) || !chunks[0].End.Equal(d) {
		t.Fatalf("chunk should equal whole range, got %+v", chunks[0])
	}
}

func TestDateChunks_ExactMultiple(t *testing.T) {
	start := day(2024, time.August, 1)
	end := day(2024, time.August, 14)

	chunks, err := DateChunks(start, end, 7)
	if err != nil {
		t.Fatalf("date chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Days() != 7 || chunks[1].Days() != 7 {
		t.Fatalf("expected two 7-day chunks, got %d and %d days", chunks[0].Days(), chunks[1].Days())
	}
}

func TestDateChunks_InvertedRange(t *testing.T) {
	_, err := DateChunks(day(2024, time.August, 2), day(2024, time.August, 1), 30)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDateChunks_InvalidChunkSize(t *testing.T) {
	_, err := DateChunks(day(2024, time.August, 1), day(2024, time.August, 2), 0)
	if !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected ErrInvalidChunkSize, got %v", err)
	}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	ts := day(2024, time.August, 1).Add(12 * time.Hour)
	first := 99.0
	second := 101.0

	merged := Dedupe([]Observation{
		{Station: "PHX", Timestamp: ts, TemperatureF: &first},
		{Station: "PHX", Timestamp: ts, TemperatureF: &second},
		{Station: "PHX", Timestamp: ts.Add(time.Hour), TemperatureF: &second},
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 observations after dedupe, got %d", len(merged))
	}
	if *merged[0].TemperatureF != first {
		t.Fatalf("dedupe should keep first occurrence, got %v", *merged[0].TemperatureF)
	}
}
