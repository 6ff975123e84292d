package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	optimization "github.com/Automynx/Cooling-The-Cloud/internal/optimization/domain"
	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
	weatherpg "github.com/Automynx/Cooling-The-Cloud/internal/weather/infrastructure/postgres"
)

type fakeWeatherService struct {
	summary      weatherpg.DataSummary
	observations []weather.Observation
}

func (s *fakeWeatherService) Summary(_ context.Context, station string) (weatherpg.DataSummary, error) {
	summary := s.summary
	summary.Station = station
	return summary, nil
}

func (s *fakeWeatherService) QueryRange(_ context.Context, _ string, _, _ time.Time) ([]weather.Observation, error) {
	return s.observations, nil
}

type fakeReportService struct {
	summary optimization.PeriodSummary
	trends  []optimization.TrendPoint
	runs    []optimization.RunSummary
}

func (s *fakeReportService) PeriodSummary(_ context.Context, days int) (optimization.PeriodSummary, error) {
	summary := s.summary
	summary.PeriodDays = days
	return summary, nil
}

func (s *fakeReportService) DailyTrends(_ context.Context, _ int) ([]optimization.TrendPoint, error) {
	return s.trends, nil
}

func (s *fakeReportService) MonthlyBreakdown(_ context.Context, _ int) ([]optimization.MonthlySummary, error) {
	return nil, nil
}

func (s *fakeReportService) RunHistory(_ context.Context, limit int) ([]optimization.RunSummary, error) {
	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	return s.runs[:limit], nil
}

func (s *fakeReportService) RunDetails(_ context.Context, runID string) (*optimization.RunSummary, []optimization.HourlyResult, error) {
	for _, run := range s.runs {
		if run.RunID == runID {
			return &run, []optimization.HourlyResult{{Hour: 0}, {Hour: 1}}, nil
		}
	}
	return nil, nil, nil
}

func TestWeatherSummaryHandler(t *testing.T) {
	temp := 98.5
	service := &fakeWeatherService{
		summary: weatherpg.DataSummary{
			TotalRecords:  42,
			FirstObserved: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC),
			LastObserved:  time.Date(2024, time.August, 30, 0, 0, 0, 0, time.UTC),
			RecentSamples: []weather.Observation{
				{Station: "PHX", Timestamp: time.Date(2024, time.August, 30, 0, 0, 0, 0, time.UTC), TemperatureF: &temp},
			},
		},
	}
	handler := NewWeatherSummaryHandler(service, "PHX")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/summary", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp weatherSummaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Station != "PHX" || resp.TotalRecords != 42 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.RecentSamples) != 1 || *resp.RecentSamples[0].TemperatureF != 98.5 {
		t.Fatalf("samples = %+v", resp.RecentSamples)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/weather/summary", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rec.Code)
	}
}

func TestWeatherRangeHandler_Validation(t *testing.T) {
	handler := NewWeatherRangeHandler(&fakeWeatherService{}, "PHX")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather?from=2024-08-02&to=2024-08-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather?from=2024-08-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing to status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather?from=2024-08-01&to=2024-08-02", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid range status = %d", rec.Code)
	}
}

func TestPeriodReportHandler(t *testing.T) {
	service := &fakeReportService{
		summary: optimization.PeriodSummary{
			ActualDays:   5,
			IsProjection: true,
			TotalCost:    3000,
		},
	}
	handler := NewPeriodReportHandler(service)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/period?days=30", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp periodResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PeriodDays != 30 || !resp.IsProjection || resp.TotalCost != 3000 {
		t.Fatalf("resp = %+v", resp)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/period?days=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad days status = %d", rec.Code)
	}
}

func TestRunsHandler(t *testing.T) {
	now := time.Date(2024, time.August, 30, 0, 0, 0, 0, time.UTC)
	service := &fakeReportService{
		runs: []optimization.RunSummary{
			{RunID: "run-1", RunTimestamp: now, Status: "completed"},
			{RunID: "run-2", RunTimestamp: now.AddDate(0, 0, -1), Status: "completed"},
		},
	}
	handler := NewRunsHandler(service)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var history []runRow
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].RunID != "run-1" {
		t.Fatalf("history = %+v", history)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("details status = %d", rec.Code)
	}
	var details runDetailsResponse
	if err := json.NewDecoder(rec.Body).Decode(&details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.Summary.RunID != "run-2" || len(details.Hourly) != 2 {
		t.Fatalf("details = %+v", details)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing run status = %d", rec.Code)
	}
}

func TestExportRunsCSVHandler(t *testing.T) {
	now := time.Date(2024, time.August, 30, 0, 0, 0, 0, time.UTC)
	service := &fakeReportService{
		runs: []optimization.RunSummary{
			{RunID: "run-1", RunTimestamp: now, TotalCost: 123.45, Status: "completed"},
		},
	}
	handler := NewExportRunsCSVHandler(service)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/runs.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("content type = %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "run_id") || !strings.Contains(body, "run-1") {
		t.Fatalf("csv body missing rows: %q", body)
	}
	if !strings.Contains(body, "123.45") {
		t.Fatalf("csv body missing cost: %q", body)
	}
}

func TestExportPeriodHandlers(t *testing.T) {
	service := &fakeReportService{
		summary: optimization.PeriodSummary{ActualDays: 3, TotalCost: 300},
	}

	rec := httptest.NewRecorder()
	NewExportPeriodXLSXHandler(service).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/exports/period.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatal("xlsx body is not a zip container")
	}

	rec = httptest.NewRecorder()
	NewExportPeriodPDFHandler(service).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/exports/period.pdf", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatal("pdf body is not a pdf document")
	}
}
