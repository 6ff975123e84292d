package apihttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Automynx/Cooling-The-Cloud/internal/observability/metrics"
	optimization "github.com/Automynx/Cooling-The-Cloud/internal/optimization/domain"
	"github.com/Automynx/Cooling-The-Cloud/internal/optimization/interfaces"
	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
	weatherpg "github.com/Automynx/Cooling-The-Cloud/internal/weather/infrastructure/postgres"
)

const timeLayout = time.RFC3339

// WeatherService reads stored weather observations.
type WeatherService interface {
	Summary(ctx context.Context, station string) (weatherpg.DataSummary, error)
	QueryRange(ctx context.Context, station string, from, to time.Time) ([]weather.Observation, error)
}

// ReportService answers dashboard report queries.
type ReportService interface {
	PeriodSummary(ctx context.Context, days int) (optimization.PeriodSummary, error)
	DailyTrends(ctx context.Context, days int) ([]optimization.TrendPoint, error)
	MonthlyBreakdown(ctx context.Context, months int) ([]optimization.MonthlySummary, error)
	RunHistory(ctx context.Context, limit int) ([]optimization.RunSummary, error)
	RunDetails(ctx context.Context, runID string) (*optimization.RunSummary, []optimization.HourlyResult, error)
}

// WeatherSummaryHandler serves stored-data summaries.
type WeatherSummaryHandler struct {
	service WeatherService
	station string
}

// NewWeatherSummaryHandler constructs a WeatherSummaryHandler.
func NewWeatherSummaryHandler(service WeatherService, defaultStation string) *WeatherSummaryHandler {
	return &WeatherSummaryHandler{service: service, station: defaultStation}
}

// ServeHTTP handles GET /api/v1/weather/summary.
func (h *WeatherSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	station := r.URL.Query().Get("station")
	if station == "" {
		station = h.station
	}
	if station == "" {
		http.Error(w, "station is required", http.StatusBadRequest)
		return
	}

	summary, err := h.service.Summary(r.Context(), station)
	if err != nil {
		http.Error(w, "query summary error", http.StatusInternalServerError)
		return
	}

	resp := weatherSummaryResponse{
		Station:      summary.Station,
		TotalRecords: summary.TotalRecords,
	}
	if !summary.FirstObserved.IsZero() {
		resp.FirstObserved = summary.FirstObserved.Format(timeLayout)
		resp.LastObserved = summary.LastObserved.Format(timeLayout)
	}
	for _, obs := range summary.RecentSamples {
		resp.RecentSamples = append(resp.RecentSamples, toObservationRow(obs))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// WeatherRangeHandler serves observation range queries.
type WeatherRangeHandler struct {
	service WeatherService
	station string
}

// NewWeatherRangeHandler constructs a WeatherRangeHandler.
func NewWeatherRangeHandler(service WeatherService, defaultStation string) *WeatherRangeHandler {
	return &WeatherRangeHandler{service: service, station: defaultStation}
}

// ServeHTTP handles GET /api/v1/weather.
func (h *WeatherRangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	station := r.URL.Query().Get("station")
	if station == "" {
		station = h.station
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	observations, err := h.service.QueryRange(r.Context(), station, from, to)
	if err != nil {
		http.Error(w, "query range error", http.StatusInternalServerError)
		return
	}

	rows := make([]observationRow, 0, len(observations))
	for _, obs := range observations {
		rows = append(rows, toObservationRow(obs))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// PeriodReportHandler serves trailing-window period summaries.
type PeriodReportHandler struct {
	reports ReportService
}

// NewPeriodReportHandler constructs a PeriodReportHandler.
func NewPeriodReportHandler(reports ReportService) *PeriodReportHandler {
	return &PeriodReportHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/reports/period.
func (h *PeriodReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	days, err := parseIntQuery(r, "days", 30)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.reports.PeriodSummary(r.Context(), days)
	if err != nil {
		http.Error(w, "period summary error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toPeriodResponse(summary))
}

// TrendsHandler serves per-day savings and water trends.
type TrendsHandler struct {
	reports ReportService
}

// NewTrendsHandler constructs a TrendsHandler.
func NewTrendsHandler(reports ReportService) *TrendsHandler {
	return &TrendsHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/reports/trends.
func (h *TrendsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	days, err := parseIntQuery(r, "days", 30)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.reports.DailyTrends(r.Context(), days)
	if err != nil {
		http.Error(w, "daily trends error", http.StatusInternalServerError)
		return
	}

	resp := trendsResponse{
		Dates:        make([]string, 0, len(points)),
		Savings:      make([]float64, 0, len(points)),
		WaterGallons: make([]float64, 0, len(points)),
	}
	for _, point := range points {
		resp.Dates = append(resp.Dates, point.Date.Format("2006-01-02"))
		resp.Savings = append(resp.Savings, point.Savings)
		resp.WaterGallons = append(resp.WaterGallons, point.WaterGallons)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// MonthlyReportHandler serves calendar-month breakdowns.
type MonthlyReportHandler struct {
	reports ReportService
}

// NewMonthlyReportHandler constructs a MonthlyReportHandler.
func NewMonthlyReportHandler(reports ReportService) *MonthlyReportHandler {
	return &MonthlyReportHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/reports/monthly.
func (h *MonthlyReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	months, err := parseIntQuery(r, "months", 6)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	breakdown, err := h.reports.MonthlyBreakdown(r.Context(), months)
	if err != nil {
		http.Error(w, "monthly breakdown error", http.StatusInternalServerError)
		return
	}

	rows := make([]monthlyRow, 0, len(breakdown))
	for _, month := range breakdown {
		rows = append(rows, monthlyRow{
			Month:           month.Month,
			Runs:            month.Runs,
			TotalCost:       month.TotalCost,
			TotalSavings:    month.TotalSavings,
			MaxPeakDemandMW: month.MaxPeakDemandMW,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// RunsHandler serves run history and per-run details.
type RunsHandler struct {
	reports ReportService
}

// NewRunsHandler constructs a RunsHandler.
func NewRunsHandler(reports ReportService) *RunsHandler {
	return &RunsHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/runs and GET /api/v1/runs/{id}.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs"), "/")
	if runID != "" {
		h.serveRunDetails(w, r, runID)
		return
	}

	limit, err := parseIntQuery(r, "limit", 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.reports.RunHistory(r.Context(), limit)
	if err != nil {
		http.Error(w, "run history error", http.StatusInternalServerError)
		return
	}

	rows := make([]runRow, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, toRunRow(run))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (h *RunsHandler) serveRunDetails(w http.ResponseWriter, r *http.Request, runID string) {
	summary, hourly, err := h.reports.RunDetails(r.Context(), runID)
	if err != nil {
		http.Error(w, "run details error", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	resp := runDetailsResponse{Summary: toRunRow(*summary)}
	for _, res := range hourly {
		resp.Hourly = append(resp.Hourly, hourlyRow{
			Hour:               res.Hour,
			BatchLoadMW:        res.BatchLoadMW,
			TotalLoadMW:        res.TotalLoadMW,
			CoolingMode:        res.CoolingMode,
			WaterCoolingActive: res.WaterCoolingActive,
			HourlyCost:         res.HourlyCost,
			WaterUsageGallons:  res.WaterUsageGallons,
			TemperatureF:       res.TemperatureF,
			ElectricityPrice:   res.ElectricityPrice,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ExportPeriodXLSXHandler serves the period report workbook.
type ExportPeriodXLSXHandler struct {
	reports ReportService
}

// NewExportPeriodXLSXHandler constructs a ExportPeriodXLSXHandler.
func NewExportPeriodXLSXHandler(reports ReportService) *ExportPeriodXLSXHandler {
	return &ExportPeriodXLSXHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/exports/period.xlsx.
func (h *ExportPeriodXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	servePeriodExport(w, r, h.reports, "xlsx")
}

// ExportPeriodPDFHandler serves the period report document.
type ExportPeriodPDFHandler struct {
	reports ReportService
}

// NewExportPeriodPDFHandler constructs a ExportPeriodPDFHandler.
func NewExportPeriodPDFHandler(reports ReportService) *ExportPeriodPDFHandler {
	return &ExportPeriodPDFHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/exports/period.pdf.
func (h *ExportPeriodPDFHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	servePeriodExport(w, r, h.reports, "pdf")
}

func servePeriodExport(w http.ResponseWriter, r *http.Request, reports ReportService, format string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	days, err := parseIntQuery(r, "days", 30)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	began := time.Now()
	summary, err := reports.PeriodSummary(r.Context(), days)
	if err != nil {
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(began))
		http.Error(w, "period summary error", http.StatusInternalServerError)
		return
	}
	trends, err := reports.DailyTrends(r.Context(), days)
	if err != nil {
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(began))
		http.Error(w, "daily trends error", http.StatusInternalServerError)
		return
	}

	var data []byte
	var contentType, filename string
	switch format {
	case "pdf":
		data, err = interfaces.BuildPeriodReportPDF(summary, trends)
		contentType = "application/pdf"
		filename = "period.pdf"
	default:
		data, err = interfaces.BuildPeriodReportXLSX(summary, trends)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "period.xlsx"
	}
	if err != nil {
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(began))
		http.Error(w, "build report error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport(format, metrics.ResultSuccess, time.Since(began))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(data)
}

// ExportRunsCSVHandler serves run history as CSV.
type ExportRunsCSVHandler struct {
	reports ReportService
}

// NewExportRunsCSVHandler constructs a ExportRunsCSVHandler.
func NewExportRunsCSVHandler(reports ReportService) *ExportRunsCSVHandler {
	return &ExportRunsCSVHandler{reports: reports}
}

// ServeHTTP handles GET /api/v1/exports/runs.csv.
func (h *ExportRunsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reports == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	limit, err := parseIntQuery(r, "limit", 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	began := time.Now()
	runs, err := h.reports.RunHistory(r.Context(), limit)
	if err != nil {
		metrics.ObserveReportExport("csv", metrics.ResultError, time.Since(began))
		http.Error(w, "run history error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport("csv", metrics.ResultSuccess, time.Since(began))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=runs.csv")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"run_id",
		"run_timestamp",
		"run_name",
		"total_cost",
		"cost_savings",
		"total_water_usage_gallons",
		"peak_demand_mw",
		"carbon_avoided_tons",
		"optimization_status",
	})
	for _, run := range runs {
		_ = writer.Write([]string{
			run.RunID,
			run.RunTimestamp.Format(timeLayout),
			run.RunName,
			formatFloat(run.TotalCost),
			formatFloat(run.CostSavings),
			formatFloat(run.TotalWaterGallons),
			formatFloat(run.PeakDemandMW),
			formatFloat(run.CarbonAvoidedTons),
			run.Status,
		})
	}
	writer.Flush()
}

type observationRow struct {
	Station         string   `json:"station"`
	Timestamp       string   `json:"timestamp"`
	TemperatureF    *float64 `json:"temperature_f"`
	HumidityPercent *float64 `json:"humidity_percent"`
}

type weatherSummaryResponse struct {
	Station       string           `json:"station"`
	TotalRecords  int64            `json:"total_records"`
	FirstObserved string           `json:"first_observed,omitempty"`
	LastObserved  string           `json:"last_observed,omitempty"`
	RecentSamples []observationRow `json:"recent_samples,omitempty"`
}

type periodResponse struct {
	PeriodDays        int     `json:"period_days"`
	DaysAnalyzed      int     `json:"days_analyzed"`
	ActualDays        int     `json:"actual_days_with_data"`
	TotalRuns         int     `json:"total_runs"`
	IsProjection      bool    `json:"is_projection"`
	TotalCost         float64 `json:"total_cost"`
	TotalSavings      float64 `json:"total_savings"`
	TotalWaterGallons float64 `json:"total_water_gallons"`
	AvgDailyCost      float64 `json:"avg_daily_cost"`
	AvgDailySavings   float64 `json:"avg_daily_savings"`
	AvgSavingsPercent float64 `json:"avg_savings_percent"`
	MaxPeakDemandMW   float64 `json:"max_peak_demand"`
	AvgPeakDemandMW   float64 `json:"avg_peak_demand"`
	CarbonAvoidedTons float64 `json:"carbon_avoided_tons"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	Message           string  `json:"message,omitempty"`
}

type trendsResponse struct {
	Dates        []string  `json:"dates"`
	Savings      []float64 `json:"savings"`
	WaterGallons []float64 `json:"water_gallons"`
}

type monthlyRow struct {
	Month           string  `json:"month"`
	Runs            int     `json:"runs"`
	TotalCost       float64 `json:"total_cost"`
	TotalSavings    float64 `json:"total_savings"`
	MaxPeakDemandMW float64 `json:"max_peak_demand"`
}

type runRow struct {
	RunID             string  `json:"run_id"`
	RunTimestamp      string  `json:"run_timestamp"`
	RunName           string  `json:"run_name"`
	TotalCost         float64 `json:"total_cost"`
	CostSavings       float64 `json:"cost_savings"`
	TotalWaterGallons float64 `json:"total_water_usage_gallons"`
	PeakDemandMW      float64 `json:"peak_demand_mw"`
	CarbonAvoidedTons float64 `json:"carbon_avoided_tons"`
	Status            string  `json:"optimization_status"`
}

type hourlyRow struct {
	Hour               int     `json:"hour"`
	BatchLoadMW        float64 `json:"batch_load_mw"`
	TotalLoadMW        float64 `json:"total_load_mw"`
	CoolingMode        string  `json:"cooling_mode"`
	WaterCoolingActive bool    `json:"water_cooling_active"`
	HourlyCost         float64 `json:"hourly_cost"`
	WaterUsageGallons  float64 `json:"water_usage_gallons"`
	TemperatureF       float64 `json:"temperature_f"`
	ElectricityPrice   float64 `json:"electricity_price"`
}

type runDetailsResponse struct {
	Summary runRow      `json:"summary"`
	Hourly  []hourlyRow `json:"hourly"`
}

func toObservationRow(obs weather.Observation) observationRow {
	return observationRow{
		Station:         obs.Station,
		Timestamp:       obs.Timestamp.Format(timeLayout),
		TemperatureF:    obs.TemperatureF,
		HumidityPercent: obs.HumidityPercent,
	}
}

func toPeriodResponse(summary optimization.PeriodSummary) periodResponse {
	return periodResponse{
		PeriodDays:        summary.PeriodDays,
		DaysAnalyzed:      summary.DaysAnalyzed,
		ActualDays:        summary.ActualDays,
		TotalRuns:         summary.TotalRuns,
		IsProjection:      summary.IsProjection,
		TotalCost:         summary.TotalCost,
		TotalSavings:      summary.TotalSavings,
		TotalWaterGallons: summary.TotalWaterGallons,
		AvgDailyCost:      summary.AvgDailyCost,
		AvgDailySavings:   summary.AvgDailySavings,
		AvgSavingsPercent: summary.AvgSavingsPercent,
		MaxPeakDemandMW:   summary.MaxPeakDemandMW,
		AvgPeakDemandMW:   summary.AvgPeakDemandMW,
		CarbonAvoidedTons: summary.CarbonAvoidedTons,
		StartDate:         summary.Start.Format(timeLayout),
		EndDate:           summary.End.Format(timeLayout),
		Message:           summary.Message,
	}
}

func toRunRow(run optimization.RunSummary) runRow {
	return runRow{
		RunID:             run.RunID,
		RunTimestamp:      run.RunTimestamp.Format(timeLayout),
		RunName:           run.RunName,
		TotalCost:         run.TotalCost,
		CostSavings:       run.CostSavings,
		TotalWaterGallons: run.TotalWaterGallons,
		PeakDemandMW:      run.PeakDemandMW,
		CarbonAvoidedTons: run.CarbonAvoidedTons,
		Status:            run.Status,
	}
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, &queryError{key: key, reason: "is required"}
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return time.Time{}, &queryError{key: key, reason: "must be RFC3339 or YYYY-MM-DD"}
	}
	return parsed.UTC(), nil
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, &queryError{key: key, reason: "must be a positive integer"}
	}
	return parsed, nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

type queryError struct {
	key    string
	reason string
}

func (e *queryError) Error() string {
	return e.key + " " + e.reason
}
