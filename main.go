package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	apihttp "github.com/Automynx/Cooling-The-Cloud/internal/api/http"
	"github.com/Automynx/Cooling-The-Cloud/internal/observability/metrics"
	optapp "github.com/Automynx/Cooling-The-Cloud/internal/optimization/application"
	optpg "github.com/Automynx/Cooling-The-Cloud/internal/optimization/infrastructure/postgres"
	pricingapp "github.com/Automynx/Cooling-The-Cloud/internal/pricing/application"
	"github.com/Automynx/Cooling-The-Cloud/internal/pricing/infrastructure/eia"
	pricingpg "github.com/Automynx/Cooling-The-Cloud/internal/pricing/infrastructure/postgres"
	"github.com/Automynx/Cooling-The-Cloud/internal/retry"
	storage "github.com/Automynx/Cooling-The-Cloud/internal/storage/postgres"
	weatherapp "github.com/Automynx/Cooling-The-Cloud/internal/weather/application"
	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
	"github.com/Automynx/Cooling-The-Cloud/internal/weather/infrastructure/iem"
	weatherpg "github.com/Automynx/Cooling-The-Cloud/internal/weather/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dateFlagLayout = "2006-01-02"

func main() {
	logger := log.New(os.Stdout, "coolthecloud ", log.LstdFlags|log.LUTC)
	_ = godotenv.Load()

	var (
		startDate   = flag.String("start-date", "", "fetch window start (YYYY-MM-DD)")
		endDate     = flag.String("end-date", "", "fetch window end (YYYY-MM-DD), defaults to now")
		batchDays   = flag.Int("batch-days", 30, "days per fetch chunk")
		latest      = flag.Bool("latest", false, "fetch the last 24 hours")
		summaryOnly = flag.Bool("summary", false, "print the stored-data summary and exit")
		setupSchema = flag.Bool("setup-schema", false, "create tables and indexes if missing")
		serve       = flag.Bool("serve", false, "serve the dashboard read API")
	)
	flag.Parse()

	cfg := loadConfig()

	// Validate the requested window before touching the network or database.
	now := time.Now().UTC()
	fetchRequested := *latest || *startDate != "" || *endDate != ""
	var start, end time.Time
	switch {
	case *latest:
		end = now
		start = now.Add(-24 * time.Hour)
	case fetchRequested:
		if *startDate == "" {
			logger.Fatal("-start-date is required when -end-date is set")
		}
		var err error
		start, err = time.Parse(dateFlagLayout, *startDate)
		if err != nil {
			logger.Fatalf("invalid -start-date %q: want YYYY-MM-DD", *startDate)
		}
		end = now
		if *endDate != "" {
			end, err = time.Parse(dateFlagLayout, *endDate)
			if err != nil {
				logger.Fatalf("invalid -end-date %q: want YYYY-MM-DD", *endDate)
			}
		}
		if end.After(now) {
			logger.Printf("end date %s is in the future, clamping to now", end.Format(dateFlagLayout))
			end = now
		}
		if start.After(end) {
			logger.Fatalf("start date %s is after end date %s",
				start.Format(dateFlagLayout), end.Format(dateFlagLayout))
		}
	}
	if !fetchRequested && !*summaryOnly && !*setupSchema && !*serve {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("ping database: %v", err)
	}

	metrics.Init(db, logger)

	if *setupSchema {
		if err := storage.EnsureSchema(ctx, db); err != nil {
			logger.Fatalf("setup schema: %v", err)
		}
		logger.Print("schema is up to date")
	}

	repo := weatherpg.NewObservationRepository(db)

	if fetchRequested {
		runFetch(ctx, cfg, repo, logger, start, end, *batchDays)
		printDataSummary(ctx, repo, cfg.Station, logger)
		printCoolingAnalysis(ctx, repo, cfg.Station, logger)
	}

	if *summaryOnly && !fetchRequested {
		printDataSummary(ctx, repo, cfg.Station, logger)
	}

	if *serve {
		serveAPI(ctx, cfg, db, repo, logger)
	}
}

func runFetch(ctx context.Context, cfg config, repo *weatherpg.ObservationRepository,
	logger *log.Logger, start, end time.Time, batchDays int) {
	policy, err := retry.NewPolicy(cfg.FetchMaxAttempts, cfg.FetchRetryDelay)
	if err != nil {
		logger.Fatalf("retry policy: %v", err)
	}
	client, err := iem.NewClient(cfg.Station, cfg.Fields, policy)
	if err != nil {
		logger.Fatalf("iem client: %v", err)
	}
	pipeline, err := weatherapp.NewPipeline(client, repo, logger,
		weatherapp.WithChunkDays(batchDays),
		weatherapp.WithChunkDelay(cfg.ChunkDelay))
	if err != nil {
		logger.Fatalf("pipeline: %v", err)
	}

	stats, err := pipeline.Run(ctx, start, end)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Print("interrupted, exiting; rerun to resume (upserts are idempotent)")
			os.Exit(0)
		}
		logger.Fatalf("pipeline run: %v", err)
	}
	logger.Printf("fetch complete: %d chunks (%d empty), %d rows fetched, %d duplicates removed, %d rows upserted in %s",
		stats.Chunks, stats.EmptyChunks, stats.RowsFetched, stats.DuplicatesRemoved,
		stats.RowsUpserted, stats.Duration.Round(time.Millisecond))
}

func printDataSummary(ctx context.Context, repo *weatherpg.ObservationRepository,
	station string, logger *log.Logger) {
	summary, err := repo.Summary(ctx, station)
	if err != nil {
		logger.Printf("data summary unavailable: %v", err)
		return
	}
	if summary.TotalRecords == 0 {
		logger.Printf("station %s: no stored observations", station)
		return
	}
	logger.Printf("station %s: %d observations from %s to %s",
		summary.Station, summary.TotalRecords,
		summary.FirstObserved.Format(dateFlagLayout),
		summary.LastObserved.Format(dateFlagLayout))
	for _, sample := range summary.RecentSamples {
		logger.Printf("  %s  temp=%s  humidity=%s",
			sample.Timestamp.Format(time.RFC3339),
			formatReading(sample.TemperatureF, "F"),
			formatReading(sample.HumidityPercent, "%"))
	}
}

// printCoolingAnalysis scores evaporative-cooling effectiveness against the
// mean conditions of the trailing 24 hours.
func printCoolingAnalysis(ctx context.Context, repo *weatherpg.ObservationRepository,
	station string, logger *log.Logger) {
	to := time.Now().UTC()
	observations, err := repo.QueryRange(ctx, station, to.Add(-24*time.Hour), to)
	if err != nil {
		logger.Printf("cooling analysis unavailable: %v", err)
		return
	}

	var tempSum, humSum float64
	var tempN, humN int
	for _, obs := range observations {
		if obs.TemperatureF != nil {
			tempSum += *obs.TemperatureF
			tempN++
		}
		if obs.HumidityPercent != nil {
			humSum += *obs.HumidityPercent
			humN++
		}
	}
	if tempN == 0 {
		logger.Print("cooling analysis: no temperature readings in the last 24h")
		return
	}
	avgTemp := tempSum / float64(tempN)
	avgHumidity := 0.0
	if humN > 0 {
		avgHumidity = humSum / float64(humN)
	}

	analysis := weather.AnalyzeCoolingEfficiency(avgTemp, avgHumidity)
	logger.Printf("last 24h conditions: avg %.1fF, %.1f%% RH over %d readings",
		avgTemp, avgHumidity, len(observations))
	if !analysis.CoolingNeeded {
		logger.Print("cooling analysis: below the cooling threshold, no active cooling needed")
		return
	}
	logger.Printf("cooling analysis: recommend %s (evaporative efficiency %.1f%%)",
		analysis.RecommendedSystem, analysis.EfficiencyScorePct)
}

func serveAPI(ctx context.Context, cfg config, db *sql.DB,
	repo *weatherpg.ObservationRepository, logger *log.Logger) {
	pricingCfg, err := pricingapp.LoadConfig()
	if err != nil {
		logger.Fatalf("pricing config: %v", err)
	}

	var feed pricingapp.MarketFeed
	if pricingCfg.EIAAPIKey != "" {
		policy, err := retry.NewPolicy(cfg.FetchMaxAttempts, cfg.FetchRetryDelay)
		if err != nil {
			logger.Fatalf("retry policy: %v", err)
		}
		eiaClient, err := eia.NewClient(pricingCfg.EIAAPIKey, pricingCfg.EIAStateID,
			pricingCfg.EIASectorID, policy)
		if err != nil {
			logger.Fatalf("eia client: %v", err)
		}
		feed = eiaClient
	} else {
		logger.Print("EIA_API_KEY not set, prices resolve from the database and TOU schedule only")
	}

	priceRepo := pricingpg.NewPriceRepository(db)
	priceService, err := pricingapp.NewService(priceRepo, feed, repo, pricingCfg.Schedule(), logger)
	if err != nil {
		logger.Fatalf("price service: %v", err)
	}

	reporting, err := optapp.NewReportingService(optpg.NewRunRepository(db), logger, nil)
	if err != nil {
		logger.Fatalf("reporting service: %v", err)
	}

	runsHandler := apihttp.NewRunsHandler(reporting)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/weather/summary", apihttp.NewWeatherSummaryHandler(repo, cfg.Station))
	mux.Handle("/api/v1/weather", apihttp.NewWeatherRangeHandler(repo, cfg.Station))
	mux.Handle("/api/v1/prices", apihttp.NewPricesHandler(priceService))
	mux.Handle("/api/v1/reports/period", apihttp.NewPeriodReportHandler(reporting))
	mux.Handle("/api/v1/reports/trends", apihttp.NewTrendsHandler(reporting))
	mux.Handle("/api/v1/reports/monthly", apihttp.NewMonthlyReportHandler(reporting))
	mux.Handle("/api/v1/runs", runsHandler)
	mux.Handle("/api/v1/runs/", runsHandler)
	mux.Handle("/api/v1/exports/period.xlsx", apihttp.NewExportPeriodXLSXHandler(reporting))
	mux.Handle("/api/v1/exports/period.pdf", apihttp.NewExportPeriodPDFHandler(reporting))
	mux.Handle("/api/v1/exports/runs.csv", apihttp.NewExportRunsCSVHandler(reporting))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("dashboard API listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
	logger.Print("server stopped")
}

func formatReading(value *float64, unit string) string {
	if value == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", *value, unit)
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	Station          string
	Fields           []string
	FetchMaxAttempts int
	FetchRetryDelay  time.Duration
	ChunkDelay       time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		Station:          getenvDefault("STATION", "PHX"),
		Fields:           strings.Split(getenvDefault("WEATHER_FIELDS", "tmpf,relh"), ","),
		FetchMaxAttempts: getenvIntDefault("FETCH_MAX_ATTEMPTS", 3),
		FetchRetryDelay:  getenvDuration("FETCH_RETRY_DELAY", 2*time.Second),
		ChunkDelay:       getenvDuration("CHUNK_DELAY", time.Second),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
