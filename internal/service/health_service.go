package service

import (
	"context"
	"log/slog"
	"time"

	"wellmind/internal/cache"
	"wellmind/internal/logging"
	"wellmind/internal/model"
)

// HealthService reports backend health and shares the latest report through redis
type HealthService struct {
	backends *Backends
	reports  cache.HealthCache
	log      *slog.Logger
}

// NewHealthService creates a health service. reports may be nil.
func NewHealthService(backends *Backends, reports cache.HealthCache) *HealthService {
	return &HealthService{
		backends: backends,
		reports:  reports,
		log:      logging.New("health"),
	}
}

// Report probes every backend when refresh is set. Otherwise it returns the shared
// report from the last poll, or this process's own last results if none is stored.
func (s *HealthService) Report(ctx context.Context, refresh bool) model.HealthReport {
	if refresh {
		report := s.backends.CheckAll(ctx)
		s.store(ctx, report)
		return report
	}
	if s.reports != nil {
		report, err := s.reports.GetReport(ctx)
		if err != nil {
			s.log.Warn("failed to read health report", "error", err)
		} else if report != nil {
			return *report
		}
	}
	return s.backends.Snapshot()
}

// Run polls backends every interval until ctx is cancelled
func (s *HealthService) Run(ctx context.Context, interval time.Duration) {
	s.log.Info("health polling started", "interval", interval)
	s.backends.Poll(ctx, interval, s.store)
}

func (s *HealthService) store(ctx context.Context, report model.HealthReport) {
	if s.reports == nil {
		return
	}
	if err := s.reports.SetReport(ctx, report); err != nil {
		s.log.Warn("failed to store health report", "error", err)
	}
}
