package iem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Automynx/Cooling-The-Cloud/internal/retry"
)

const sampleCSV = `station,valid,tmpf,relh
PHX,2024-08-01 00:00,95.0,18.2
PHX,2024-08-01 01:00,null,null
PHX,2024-08-01 02:00,91.4,null
PHX,2024-08-01 03:00,null,22.5
`

func testPolicy(t *testing.T, attempts int) *retry.Policy {
	t.Helper()
	policy, err := retry.NewPolicy(attempts, time.Millisecond)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return policy
}

func newTestClient(t *testing.T, serverURL string, attempts int) *Client {
	t.Helper()
	client, err := NewClient("PHX", []string{"tmpf", "relh"}, testPolicy(t, attempts), WithBaseURL(serverURL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_FetchNormalizesRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("station"); got != "PHX" {
			t.Errorf("station = %q, want PHX", got)
		}
		if got := r.URL.Query()["data"]; len(got) != 2 {
			t.Errorf("data params = %v, want two fields", got)
		}
		if got := r.URL.Query().Get("tz"); got != "UTC" {
			t.Errorf("tz = %q, want UTC", got)
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	start := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	observations, err := client.Fetch(context.Background(), start, start)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The all-null 01:00 row is dropped.
	if len(observations) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(observations))
	}

	first := observations[0]
	if first.Station != "PHX" {
		t.Fatalf("station = %q", first.Station)
	}
	if !first.Timestamp.Equal(start) {
		t.Fatalf("timestamp = %v, want %v", first.Timestamp, start)
	}
	if first.TemperatureF == nil || *first.TemperatureF != 95.0 {
		t.Fatalf("temperature = %v, want 95.0", first.TemperatureF)
	}
	if first.HumidityPercent == nil || *first.HumidityPercent != 18.2 {
		t.Fatalf("humidity = %v, want 18.2", first.HumidityPercent)
	}

	partial := observations[1]
	if partial.HumidityPercent != nil {
		t.Fatalf("null humidity should be absent, got %v", *partial.HumidityPercent)
	}
	if partial.TemperatureF == nil || *partial.TemperatureF != 91.4 {
		t.Fatalf("temperature = %v, want 91.4", partial.TemperatureF)
	}
}

func TestClient_EmptyResponseIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	start := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	observations, err := client.Fetch(context.Background(), start, start)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if observations != nil {
		t.Fatalf("expected no data, got %d rows", len(observations))
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	start := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	observations, err := client.Fetch(context.Background(), start, start)
	if err != nil {
		t.Fatalf("fetch after retries: %v", err)
	}
	if len(observations) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(observations))
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestClient_ReportsFailureAfterExhaustedAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	start := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.Fetch(context.Background(), start, start)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestNewClient_Validation(t *testing.T) {
	policy := testPolicy(t, 1)
	if _, err := NewClient("", []string{"tmpf"}, policy); err == nil {
		t.Fatal("expected error for empty station")
	}
	if _, err := NewClient("PHX", nil, policy); err == nil {
		t.Fatal("expected error for empty field list")
	}
	if _, err := NewClient("PHX", []string{"tmpf"}, nil); err == nil {
		t.Fatal("expected error for nil policy")
	}
}
