package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "coolthecloud_"

	resultSuccess = "success"
	resultError   = "error"

	chunkResultData  = "data"
	chunkResultEmpty = "empty"
)

var (
	registerOnce sync.Once

	fetchRequests *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec

	chunksProcessed  *prometheus.CounterVec
	duplicateRows    prometheus.Counter
	rowsUpserted     prometheus.Counter
	upsertBatches    *prometheus.CounterVec
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec

	priceResolutions *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec
)

// Init registers pipeline metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		fetchRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_requests_total",
				Help: "Total weather fetch requests by result",
			},
			[]string{"result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Weather fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		chunksProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chunks_processed_total",
				Help: "Total date chunks processed by outcome",
			},
			[]string{"outcome"},
		)
		duplicateRows = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "duplicate_rows_removed_total",
				Help: "Total duplicate observations removed at chunk boundaries",
			},
		)
		rowsUpserted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_upserted_total",
				Help: "Total observation rows written via upsert",
			},
		)
		upsertBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upsert_batches_total",
				Help: "Total upsert batches by result",
			},
			[]string{"result"},
		)
		pipelineRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Total pipeline runs by result",
			},
			[]string{"result"},
		)
		pipelineDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_duration_seconds",
				Help:    "End-to-end pipeline run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"result"},
		)

		priceResolutions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "price_resolutions_total",
				Help: "Total electricity price resolutions by source",
			},
			[]string{"source"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			fetchRequests,
			fetchLatency,
			chunksProcessed,
			duplicateRows,
			rowsUpserted,
			upsertBatches,
			pipelineRuns,
			pipelineDuration,
			priceResolutions,
			reportExportTotal,
			reportExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveFetch records one chunk fetch duration and result.
func ObserveFetch(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if fetchRequests != nil {
		fetchRequests.WithLabelValues(result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncChunk counts a processed chunk by outcome.
func IncChunk(outcome string) {
	if outcome == "" {
		outcome = chunkResultEmpty
	}
	if chunksProcessed != nil {
		chunksProcessed.WithLabelValues(outcome).Inc()
	}
}

// AddDuplicatesRemoved counts boundary duplicates dropped during a merge.
func AddDuplicatesRemoved(count int) {
	if count <= 0 {
		return
	}
	if duplicateRows != nil {
		duplicateRows.Add(float64(count))
	}
}

// AddRowsUpserted counts observation rows written.
func AddRowsUpserted(count int) {
	if count <= 0 {
		return
	}
	if rowsUpserted != nil {
		rowsUpserted.Add(float64(count))
	}
}

// IncUpsertBatch counts one upsert batch by result.
func IncUpsertBatch(result string) {
	if result == "" {
		result = resultSuccess
	}
	if upsertBatches != nil {
		upsertBatches.WithLabelValues(result).Inc()
	}
}

// ObservePipelineRun records one end-to-end pipeline run.
func ObservePipelineRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if pipelineRuns != nil {
		pipelineRuns.WithLabelValues(result).Inc()
	}
	if pipelineDuration != nil {
		pipelineDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncPriceResolution counts an electricity price resolution by source.
func IncPriceResolution(source string) {
	if source == "" {
		source = "unknown"
	}
	if priceResolutions != nil {
		priceResolutions.WithLabelValues(source).Inc()
	}
}

// ObserveReportExport records report export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ChunkData  = chunkResultData
	ChunkEmpty = chunkResultEmpty
)
