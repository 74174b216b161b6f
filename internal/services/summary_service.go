package services

import (
	"context"
	"fmt"
	"time"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/pkg/dateparse"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// SummaryService maintains the per-site monthly operations rollups. The
// rollups are derived entirely from submitted meter records, so
// recomputing them is idempotent.
type SummaryService struct {
	meterStore   repository.MeterRepository
	summaryStore repository.SummaryRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewSummaryService creates a new summary service.
func NewSummaryService(meterStore repository.MeterRepository, summaryStore repository.SummaryRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SummaryService {
	return &SummaryService{
		meterStore:   meterStore,
		summaryStore: summaryStore,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// RecalculateAll recomputes the rollup for every site and month on
// record. Failures on one month are logged and skipped; the rest of the
// recalculation proceeds.
func (s *SummaryService) RecalculateAll(ctx context.Context) error {
	startTime := time.Now()

	s.logger.Info(ctx, "[SUMMARY_CALC_START] Starting summary recalculation", logging.Fields{})

	siteMonths, err := s.meterStore.ListSiteMonths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list site months: %w", err)
	}

	total := 0
	for _, sm := range siteMonths {
		summary, err := s.calculateMonth(ctx, sm.SiteName, sm.Month)
		if err != nil {
			s.logger.Error(ctx, "[SUMMARY_CALC_ERROR] Failed to calculate summary", logging.Fields{
				"site_name": sm.SiteName,
				"month":     sm.Month,
			}, err)
			continue
		}

		if summary.DaysReported == 0 {
			continue
		}

		if err := s.summaryStore.UpsertSummary(ctx, summary); err != nil {
			s.logger.Error(ctx, "[SUMMARY_SAVE_ERROR] Failed to save summary", logging.Fields{
				"site_name": sm.SiteName,
				"month":     sm.Month,
			}, err)
			continue
		}
		total++
	}

	s.logger.Info(ctx, "[SUMMARY_CALC_COMPLETE] Summary recalculation completed", logging.Fields{
		"site_months":      len(siteMonths),
		"summaries_saved":  total,
		"duration_seconds": time.Since(startTime).Seconds(),
	})

	return nil
}

// calculateMonth rolls one site's month of meter records up into a
// summary.
func (s *SummaryService) calculateMonth(ctx context.Context, siteName, month string) (*models.OperationsSummary, error) {
	records, err := s.meterStore.GetRecordsForMonth(ctx, siteName, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get records for %s %s: %w", siteName, month, err)
	}

	summary := &models.OperationsSummary{
		SiteName:  siteName,
		Month:     month,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, record := range records {
		summary.DaysReported++

		if minutes, ok := dateparse.MinutesOfDay(record.TotalOperatingTime); ok {
			summary.TotalOperatingMins += minutes
			// An all-zero window means the day had no weather coverage
			if minutes == 0 && record.PlantStartTime == "00:00" && record.PlantStopTime == "00:00" {
				summary.DaysWithoutWeather++
			}
		}

		if record.NetExportAtGSS != nil {
			summary.TotalNetExport += *record.NetExportAtGSS
		}
	}

	if summary.DaysReported > 0 {
		summary.AvgOperatingMins = float64(summary.TotalOperatingMins) / float64(summary.DaysReported)
	}

	return summary, nil
}

// GetSummaries retrieves rollups with filtering.
func (s *SummaryService) GetSummaries(ctx context.Context, filter repository.SummaryFilter) ([]*models.OperationsSummary, int, error) {
	return s.summaryStore.GetSummaries(ctx, filter)
}
