package repository

import (
	"context"
	"fmt"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/database"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// SummaryRepository stores per-site monthly operations rollups.
type SummaryRepository interface {
	UpsertSummary(ctx context.Context, summary *models.OperationsSummary) error
	GetSummaries(ctx context.Context, filter SummaryFilter) ([]*models.OperationsSummary, int, error)
}

// SummaryFilter defines filters for querying summaries.
type SummaryFilter struct {
	SiteName *string
	Month    *string // YYYY-MM
	Limit    int
	Offset   int
}

type summaryRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSummaryRepository creates a new summary repository.
func NewSummaryRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SummaryRepository {
	return &summaryRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertSummary creates or replaces the rollup for one site and month.
func (r *summaryRepository) UpsertSummary(ctx context.Context, summary *models.OperationsSummary) error {
	query := `
		INSERT INTO operations_summaries (
			site_name, month,
			days_reported, total_operating_minutes, avg_operating_minutes,
			total_net_export, days_without_weather,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (site_name, month) DO UPDATE SET
			days_reported = EXCLUDED.days_reported,
			total_operating_minutes = EXCLUDED.total_operating_minutes,
			avg_operating_minutes = EXCLUDED.avg_operating_minutes,
			total_net_export = EXCLUDED.total_net_export,
			days_without_weather = EXCLUDED.days_without_weather,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		summary.SiteName,
		summary.Month,
		summary.DaysReported,
		summary.TotalOperatingMins,
		summary.AvgOperatingMins,
		summary.TotalNetExport,
		summary.DaysWithoutWeather,
		summary.CreatedAt,
		summary.UpdatedAt,
	).Scan(&summary.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	return nil
}

// GetSummaries retrieves rollups with filtering and pagination.
func (r *summaryRepository) GetSummaries(ctx context.Context, filter SummaryFilter) ([]*models.OperationsSummary, int, error) {
	query := `
		SELECT id, site_name, month,
		       days_reported, total_operating_minutes, avg_operating_minutes,
		       total_net_export, days_without_weather,
		       created_at, updated_at
		FROM operations_summaries
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.SiteName != nil {
		query += fmt.Sprintf(" AND site_name = $%d", argNum)
		args = append(args, *filter.SiteName)
		argNum++
	}

	if filter.Month != nil {
		query += fmt.Sprintf(" AND month = $%d", argNum)
		args = append(args, *filter.Month)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_summaries", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count summaries: %w", err)
	}

	query += " ORDER BY month DESC, site_name"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var summaries []*models.OperationsSummary
	err = r.db.SelectContext(ctx, "get_summaries", &summaries, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get summaries: %w", err)
	}

	return summaries, totalCount, nil
}
