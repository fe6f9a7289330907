package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/cache"
	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository"
)

// ReportService answers the dashboard's aggregation queries, with a cache
// in front of the heavier roll-ups.
type ReportService struct {
	repo  *repository.ReportRepository
	cache cache.ReportCache
}

func NewReportService(repo *repository.ReportRepository, reportCache cache.ReportCache) *ReportService {
	if reportCache == nil {
		reportCache = cache.NewNoopReportCache()
	}
	return &ReportService{repo: repo, cache: reportCache}
}

// Range returns the per-bundle roll-up for [start, end].
func (s *ReportService) Range(ctx context.Context, filter domain.ReportFilter) (*domain.RangeReport, error) {
	start, end, err := normalizeRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.GetRange(ctx, start, end); err != nil {
		log.Warn().Err(err).Msg("report: cache read failed")
	} else if ok {
		return cached, nil
	}

	report, err := s.repo.RangeReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetRange(ctx, report); err != nil {
		log.Warn().Err(err).Msg("report: cache write failed")
	}
	return report, nil
}

// BundleVariants returns the per-variant roll-up for one bundle.
func (s *ReportService) BundleVariants(ctx context.Context, bundleID int64, filter domain.ReportFilter) ([]domain.VariantReport, error) {
	start, end, err := normalizeRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.GetVariants(ctx, bundleID, start, end); err != nil {
		log.Warn().Err(err).Msg("report: cache read failed")
	} else if ok {
		return cached, nil
	}

	variants, err := s.repo.BundleVariants(ctx, bundleID, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetVariants(ctx, bundleID, start, end, variants); err != nil {
		log.Warn().Err(err).Msg("report: cache write failed")
	}
	return variants, nil
}

// BundleDaily returns the per-date roll-up for one bundle.
func (s *ReportService) BundleDaily(ctx context.Context, bundleID int64, filter domain.ReportFilter) ([]domain.DailyReport, error) {
	start, end, err := normalizeRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.GetDaily(ctx, bundleID, start, end); err != nil {
		log.Warn().Err(err).Msg("report: cache read failed")
	} else if ok {
		return cached, nil
	}

	days, err := s.repo.BundleDaily(ctx, bundleID, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDaily(ctx, bundleID, start, end, days); err != nil {
		log.Warn().Err(err).Msg("report: cache write failed")
	}
	return days, nil
}

// MissingCosts lists items whose cost model is incomplete.
func (s *ReportService) MissingCosts(ctx context.Context) ([]domain.MissingCost, error) {
	return s.repo.MissingCosts(ctx)
}

// Invalidate drops every cached report. Called after an ingestion run or a
// cost override lands.
func (s *ReportService) Invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("report: cache invalidation failed")
	}
}

// normalizeRange validates the date filter, defaulting to the trailing
// seven days when empty.
func normalizeRange(start, end string) (string, string, error) {
	if start == "" && end == "" {
		today := pipeline.Midnight(time.Now())
		return today.AddDate(0, 0, -6).Format("2006-01-02"), today.Format("2006-01-02"), nil
	}

	from, ok := pipeline.ParseDay(start)
	if !ok {
		return "", "", fmt.Errorf("invalid start_date %q", start)
	}
	to, ok := pipeline.ParseDay(end)
	if !ok {
		return "", "", fmt.Errorf("invalid end_date %q", end)
	}
	if to.Before(from) {
		return "", "", fmt.Errorf("end_date %q precedes start_date %q", end, start)
	}
	return from.Format("2006-01-02"), to.Format("2006-01-02"), nil
}
