package eia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
	"github.com/Automynx/Cooling-The-Cloud/internal/retry"
)

func testPolicy(t *testing.T) *retry.Policy {
	t.Helper()
	policy, err := retry.NewPolicy(3, time.Millisecond)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return policy
}

func writePage(t *testing.T, w http.ResponseWriter, rows int, startIndex int) {
	t.Helper()
	data := make([]map[string]any, 0, rows)
	for i := 0; i < rows; i++ {
		data = append(data, map[string]any{
			"period":   fmt.Sprintf("2024-%02d", (startIndex+i)%12+1),
			"stateid":  "AZ",
			"sectorid": "COM",
			"price":    12.5,
		})
	}
	payload := map[string]any{"response": map[string]any{"data": data}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode page: %v", err)
	}
}

func TestClient_PaginatesUntilShortPage(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		query := r.URL.Query()
		if got := query.Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		if got := query.Get("frequency"); got != "monthly" {
			t.Errorf("frequency = %q", got)
		}
		if got := query.Get("facets[stateid][]"); got != "AZ" {
			t.Errorf("stateid = %q", got)
		}
		if got := query.Get("length"); got != strconv.Itoa(PageSize) {
			t.Errorf("length = %q", got)
		}

		offset, _ := strconv.Atoi(query.Get("offset"))
		if offset == 0 {
			writePage(t, w, PageSize, 0)
			return
		}
		writePage(t, w, 3, PageSize)
	}))
	defer server.Close()

	client, err := NewClient("test-key", "AZ", "COM", testPolicy(t), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	prices, err := client.MonthlyRetailPrices(context.Background(), "2024-01")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(prices) != PageSize+3 {
		t.Fatalf("prices = %d, want %d", len(prices), PageSize+3)
	}
	if requests.Load() != 2 {
		t.Fatalf("requests = %d, want 2", requests.Load())
	}
	if prices[0].StateID != "AZ" || prices[0].Price != 12.5 {
		t.Fatalf("first row = %+v", prices[0])
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writePage(t, w, 1, 0)
	}))
	defer server.Close()

	client, err := NewClient("test-key", "AZ", "COM", testPolicy(t), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	prices, err := client.MonthlyRetailPrices(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch after retry: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("prices = %d, want 1", len(prices))
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestNewClient_Validation(t *testing.T) {
	policy := testPolicy(t)
	if _, err := NewClient("", "AZ", "COM", policy); err == nil {
		t.Fatal("expected error for empty api key")
	}
	if _, err := NewClient("key", "", "COM", policy); err == nil {
		t.Fatal("expected error for empty state")
	}
	if _, err := NewClient("key", "AZ", "COM", nil); err == nil {
		t.Fatal("expected error for nil policy")
	}
}

func TestClient_HourlyPricesFetchesBeforeSynthesizing(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writePage(t, w, 1, 0)
	}))
	defer server.Close()

	client, err := NewClient("test-key", "AZ", "COM", testPolicy(t), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	day := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)
	records, err := client.HourlyPrices(context.Background(), day, 24)
	if err != nil {
		t.Fatalf("hourly prices: %v", err)
	}
	if requests.Load() == 0 {
		t.Fatal("hourly prices must consult the feed before synthesizing")
	}
	if len(records) != 24 {
		t.Fatalf("records = %d, want 24", len(records))
	}
	if records[0].Source != pricing.SourceEIA {
		t.Fatalf("source = %q", records[0].Source)
	}
}

func TestClient_HourlyPricesEmptySeriesIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, 0, 0)
	}))
	defer server.Close()

	client, err := NewClient("test-key", "AZ", "COM", testPolicy(t), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	day := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)
	if _, err := client.HourlyPrices(context.Background(), day, 24); !errors.Is(err, ErrNoSeriesData) {
		t.Fatalf("err = %v, want ErrNoSeriesData", err)
	}
}

func TestClient_HourlyPricesFeedFailureIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient("test-key", "AZ", "COM", testPolicy(t), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	day := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)
	if _, err := client.HourlyPrices(context.Background(), day, 24); err == nil {
		t.Fatal("expected error when every fetch attempt fails")
	}
}

func TestSynthesizeHourlyPrices(t *testing.T) {
	day := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

	records, err := SynthesizeHourlyPrices(day, 24)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(records) != 24 {
		t.Fatalf("records = %d, want 24", len(records))
	}

	for _, rec := range records {
		hour := rec.Timestamp.Hour()
		if rec.Hour != hour {
			t.Fatalf("hour field %d does not match timestamp hour %d", rec.Hour, hour)
		}
		if rec.Source != pricing.SourceEIA {
			t.Fatalf("hour %d: source = %q", hour, rec.Source)
		}
		switch rec.Type {
		case pricing.RatePeak:
			if hour < 15 || hour >= 20 {
				t.Fatalf("hour %d misclassified as peak", hour)
			}
			if rec.PriceMWh < 110 || rec.PriceMWh > 130 {
				t.Fatalf("hour %d: peak price %v out of band", hour, rec.PriceMWh)
			}
		case pricing.RateSuperOffPeak:
			if hour < 22 && hour >= 6 {
				t.Fatalf("hour %d misclassified as super-off-peak", hour)
			}
			if rec.PriceMWh < 25 || rec.PriceMWh > 35 {
				t.Fatalf("hour %d: overnight price %v out of band", hour, rec.PriceMWh)
			}
		case pricing.RateOffPeak:
			if rec.PriceMWh < 40 || rec.PriceMWh > 60 {
				t.Fatalf("hour %d: shoulder price %v out of band", hour, rec.PriceMWh)
			}
		}
	}

	// Same day, same prices.
	again, err := SynthesizeHourlyPrices(day, 24)
	if err != nil {
		t.Fatalf("synthesize again: %v", err)
	}
	for i := range records {
		if records[i].PriceMWh != again[i].PriceMWh {
			t.Fatalf("hour %d not deterministic for a given day", i)
		}
	}

	if _, err := SynthesizeHourlyPrices(day, 0); err == nil {
		t.Fatal("expected error for zero hours")
	}
}
