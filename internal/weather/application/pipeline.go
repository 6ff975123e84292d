package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Automynx/Cooling-The-Cloud/internal/observability/metrics"
	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
)

// Fetcher retrieves normalized observations for one inclusive date range.
type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time) ([]weather.Observation, error)
}

// Store persists normalized observations with insert-or-update semantics.
type Store interface {
	Upsert(ctx context.Context, observations []weather.Observation) (int, error)
}

// RunStats summarizes one pipeline run for logging and observability.
type RunStats struct {
	Chunks            int
	EmptyChunks       int
	RowsFetched       int
	DuplicatesRemoved int
	RowsUpserted      int
	Duration          time.Duration
}

// Pipeline drives the chunked fetch-normalize-upsert flow across a full
// requested date range. Execution is strictly sequential; the only pauses
// are network I/O, the inter-chunk delay, and database round trips.
type Pipeline struct {
	fetcher    Fetcher
	store      Store
	logger     *log.Logger
	chunkDays  int
	chunkDelay time.Duration
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithChunkDays overrides the default chunk size in days.
func WithChunkDays(days int) PipelineOption {
	return func(p *Pipeline) {
		if days > 0 {
			p.chunkDays = days
		}
	}
}

// WithChunkDelay overrides the pause between chunk requests.
func WithChunkDelay(delay time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if delay >= 0 {
			p.chunkDelay = delay
		}
	}
}

// NewPipeline constructs a Pipeline.
func NewPipeline(fetcher Fetcher, store Store, logger *log.Logger, opts ...PipelineOption) (*Pipeline, error) {
	if fetcher == nil {
		return nil, errors.New("pipeline: nil fetcher")
	}
	if store == nil {
		return nil, errors.New("pipeline: nil store")
	}
	if logger == nil {
		return nil, errors.New("pipeline: nil logger")
	}
	p := &Pipeline{
		fetcher:    fetcher,
		store:      store,
		logger:     logger,
		chunkDays:  30,
		chunkDelay: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run fetches [start, end] in chunks, merges the results, removes boundary
// duplicates, and upserts the merged rows. A chunk that fails after its
// retries or returns no rows is counted and logged, never fatal; the run
// succeeds with an empty result when no chunk produced data.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (RunStats, error) {
	began := time.Now()
	stats := RunStats{}

	chunks, err := weather.DateChunks(start, end, p.chunkDays)
	if err != nil {
		metrics.ObservePipelineRun(metrics.ResultError, time.Since(began))
		return stats, err
	}
	stats.Chunks = len(chunks)

	var merged []weather.Observation
	for i, chunk := range chunks {
		if i > 0 && p.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				metrics.ObservePipelineRun(metrics.ResultError, time.Since(began))
				return stats, ctx.Err()
			case <-time.After(p.chunkDelay):
			}
		}

		p.logger.Printf("fetching chunk %d/%d: %s to %s", i+1, len(chunks),
			chunk.Start.Format("2006-01-02"), chunk.End.Format("2006-01-02"))

		fetchStart := time.Now()
		observations, err := p.fetcher.Fetch(ctx, chunk.Start, chunk.End)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				metrics.ObservePipelineRun(metrics.ResultError, time.Since(began))
				return stats, err
			}
			metrics.ObserveFetch(metrics.ResultError, time.Since(fetchStart))
			metrics.IncChunk(metrics.ChunkEmpty)
			stats.EmptyChunks++
			p.logger.Printf("chunk %d/%d failed, continuing: %v", i+1, len(chunks), err)
			continue
		}
		metrics.ObserveFetch(metrics.ResultSuccess, time.Since(fetchStart))

		if len(observations) == 0 {
			metrics.IncChunk(metrics.ChunkEmpty)
			stats.EmptyChunks++
			p.logger.Printf("no data for chunk %d/%d", i+1, len(chunks))
			continue
		}
		metrics.IncChunk(metrics.ChunkData)
		merged = append(merged, observations...)
	}

	stats.RowsFetched = len(merged)
	if len(merged) == 0 {
		p.logger.Printf("run produced no data (%d of %d chunks empty)", stats.EmptyChunks, stats.Chunks)
		stats.Duration = time.Since(began)
		metrics.ObservePipelineRun(metrics.ResultSuccess, stats.Duration)
		return stats, nil
	}

	deduped := weather.Dedupe(merged)
	stats.DuplicatesRemoved = stats.RowsFetched - len(deduped)
	if stats.DuplicatesRemoved > 0 {
		metrics.AddDuplicatesRemoved(stats.DuplicatesRemoved)
		p.logger.Printf("removed %d duplicate rows", stats.DuplicatesRemoved)
	}

	written, err := p.store.Upsert(ctx, deduped)
	stats.RowsUpserted = written
	metrics.AddRowsUpserted(written)
	stats.Duration = time.Since(began)
	if err != nil {
		metrics.IncUpsertBatch(metrics.ResultError)
		metrics.ObservePipelineRun(metrics.ResultError, stats.Duration)
		return stats, err
	}
	metrics.IncUpsertBatch(metrics.ResultSuccess)
	metrics.ObservePipelineRun(metrics.ResultSuccess, stats.Duration)
	return stats, nil
}
