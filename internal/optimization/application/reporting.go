package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	optimization "github.com/Automynx/Cooling-The-Cloud/internal/optimization/domain"
)

// RunStore loads saved optimization runs.
type RunStore interface {
	SummariesSince(ctx context.Context, since, until time.Time) ([]optimization.RunSummary, error)
	RecentSummaries(ctx context.Context, limit int) ([]optimization.RunSummary, error)
	FindRun(ctx context.Context, runID string) (*optimization.RunSummary, []optimization.HourlyResult, error)
}

// Clock abstracts now() for deterministic window tests.
type Clock func() time.Time

// ReportingService answers dashboard queries over saved optimization runs.
type ReportingService struct {
	store  RunStore
	logger *log.Logger
	now    Clock
}

// NewReportingService constructs the service. clock may be nil for
// wall-clock time.
func NewReportingService(store RunStore, logger *log.Logger, clock Clock) (*ReportingService, error) {
	if store == nil {
		return nil, errors.New("reporting service: nil store")
	}
	if logger == nil {
		return nil, errors.New("reporting service: nil logger")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ReportingService{store: store, logger: logger, now: clock}, nil
}

// PeriodSummary aggregates the trailing days-long window.
func (s *ReportingService) PeriodSummary(ctx context.Context, days int) (optimization.PeriodSummary, error) {
	if days <= 0 {
		return optimization.PeriodSummary{}, fmt.Errorf("reporting service: invalid window %d", days)
	}
	end := s.now()
	start := end.AddDate(0, 0, -days)

	rows, err := s.store.SummariesSince(ctx, start, end)
	if err != nil {
		return optimization.PeriodSummary{}, err
	}
	return optimization.AggregatePeriod(rows, days, start, end), nil
}

// DailyTrends returns per-day savings and water usage over the trailing
// window, oldest first.
func (s *ReportingService) DailyTrends(ctx context.Context, days int) ([]optimization.TrendPoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("reporting service: invalid window %d", days)
	}
	end := s.now()
	rows, err := s.store.SummariesSince(ctx, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}
	return optimization.DailyTrends(rows), nil
}

// MonthlyBreakdown groups the trailing months months of runs by calendar
// month.
func (s *ReportingService) MonthlyBreakdown(ctx context.Context, months int) ([]optimization.MonthlySummary, error) {
	if months <= 0 {
		return nil, fmt.Errorf("reporting service: invalid window %d months", months)
	}
	end := s.now()
	rows, err := s.store.SummariesSince(ctx, end.AddDate(0, -months, 0), end)
	if err != nil {
		return nil, err
	}
	return optimization.MonthlyBreakdown(rows), nil
}

// RunHistory returns the latest limit runs, newest first.
func (s *ReportingService) RunHistory(ctx context.Context, limit int) ([]optimization.RunSummary, error) {
	return s.store.RecentSummaries(ctx, limit)
}

// RunDetails loads one run with its hourly rows. It returns
// (nil, nil, nil) when the run does not exist.
func (s *ReportingService) RunDetails(ctx context.Context, runID string) (*optimization.RunSummary, []optimization.HourlyResult, error) {
	if runID == "" {
		return nil, nil, errors.New("reporting service: empty run id")
	}
	return s.store.FindRun(ctx, runID)
}
