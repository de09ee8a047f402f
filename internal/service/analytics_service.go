package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"canteen-tracker/internal/analytics"
	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/export"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
)

const defaultBestsellerLimit = 5

// analyticsService implements AnalyticsService.
type analyticsService struct {
	aggregator *analytics.Aggregator
	tracker    OrderTracker
	source     backend.AnalyticsSource
	exporter   export.Exporter
	userID     int64
	windowDays int
	logger     zerolog.Logger

	mu      sync.RWMutex
	backend *model.BackendAnalytics
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	aggregator *analytics.Aggregator,
	tracker OrderTracker,
	source backend.AnalyticsSource,
	exporter export.Exporter,
	userID int64,
	windowDays int,
	logger zerolog.Logger,
) AnalyticsService {
	return &analyticsService{
		aggregator: aggregator,
		tracker:    tracker,
		source:     source,
		exporter:   exporter,
		userID:     userID,
		windowDays: windowDays,
		logger:     logger.With().Str("service", "analytics").Logger(),
	}
}

// Report recomputes local analytics in full and attaches the last backend analytics.
func (s *analyticsService) Report(now time.Time) *model.AnalyticsReport {
	local := s.aggregator.Compute(s.tracker.Snapshot(), now, s.windowDays)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &model.AnalyticsReport{
		UserID:  s.userID,
		Local:   local,
		Backend: s.backend,
	}
}

// RefreshBackend fetches backend analytics. On failure the last good payload is kept.
func (s *analyticsService) RefreshBackend(ctx context.Context) error {
	fetched, err := s.source.BackendAnalytics(ctx, s.windowDays, defaultBestsellerLimit)
	if err != nil {
		return fmt.Errorf("failed to refresh backend analytics: %w", err)
	}

	s.mu.Lock()
	s.backend = fetched
	s.mu.Unlock()

	s.logger.Debug().
		Int("bestsellers", len(fetched.Bestsellers)).
		Msg("backend analytics refreshed")
	return nil
}

// Export writes the current report as JSON.
func (s *analyticsService) Export(ctx context.Context, now time.Time) (string, error) {
	report := s.Report(now)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analytics report: %w", err)
	}

	name := fmt.Sprintf("user-%d/analytics-%s.json", s.userID, now.In(s.aggregator.Location()).Format("20060102-150405"))
	location, err := s.exporter.Export(ctx, name, data)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to export analytics report")
		return "", fmt.Errorf("failed to export analytics report: %w", err)
	}

	s.logger.Info().Str("location", location).Msg("analytics report exported")
	return location, nil
}
