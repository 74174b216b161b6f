package repository

import (
	"context"
	"fmt"
	"time"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/database"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// MeterRepository provides data access for daily meter records. One record
// per (site, date); the record_time column keeps the reading time the
// sheet carried.
type MeterRepository interface {
	UpsertRecordsBatch(ctx context.Context, records []*models.MeterRecord) (inserted, updated int, err error)
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.MeterRecord, int, error)

	// ListSiteMonths returns the distinct (site, YYYY-MM) combinations
	// present in the store, for summary recomputation.
	ListSiteMonths(ctx context.Context) ([]SiteMonth, error)
	GetRecordsForMonth(ctx context.Context, siteName, month string) ([]*models.MeterRecord, error)

	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying meter records.
type RecordFilter struct {
	SiteName *string
	Date     *string // meter dialect DD-MM-YYYY
	Limit    int
	Offset   int
}

// SiteMonth identifies one site's month of data.
type SiteMonth struct {
	SiteName string `db:"site_name"`
	Month    string `db:"month"` // YYYY-MM
}

// meterRepository implements MeterRepository.
type meterRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewMeterRepository creates a new meter repository.
func NewMeterRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) MeterRepository {
	return &meterRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertRecordsBatch persists meter records in a single transaction,
// keyed on (site, date, time). The (xmax = 0) check distinguishes inserts
// from updates.
func (r *meterRepository) UpsertRecordsBatch(ctx context.Context, records []*models.MeterRecord) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.SubmissionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_UPSERT_RECORDS] Meter record batch upsert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO meter_records (
			site_name, record_date, record_time,
			plant_start_time, plant_stop_time, total_operating_time,
			gss_export_total, gss_import_total, net_export_at_gss,
			readings, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (site_name, record_date, record_time) DO UPDATE SET
			plant_start_time = EXCLUDED.plant_start_time,
			plant_stop_time = EXCLUDED.plant_stop_time,
			total_operating_time = EXCLUDED.total_operating_time,
			gss_export_total = EXCLUDED.gss_export_total,
			gss_import_total = EXCLUDED.gss_import_total,
			net_export_at_gss = EXCLUDED.net_export_at_gss,
			readings = EXCLUDED.readings,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	now := time.Now().UTC()
	for _, rec := range records {
		var wasInsert bool
		err := stmt.QueryRowContext(ctx,
			rec.SiteName, rec.Date, rec.Time,
			rec.PlantStartTime, rec.PlantStopTime, rec.TotalOperatingTime,
			rec.GSSExportTotal, rec.GSSImportTotal, rec.NetExportAtGSS,
			rec.Readings, rec.Status, now, now,
		).Scan(&wasInsert)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert meter record %s: %w", rec.Date, err)
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.SubmittedRowsTotal.WithLabelValues("meter").Add(float64(len(records)))

	return inserted, updated, nil
}

// GetRecords retrieves meter records with filtering and pagination.
func (r *meterRepository) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.MeterRecord, int, error) {
	query := `
		SELECT id, site_name, record_date, record_time,
		       plant_start_time, plant_stop_time, total_operating_time,
		       gss_export_total, gss_import_total, net_export_at_gss,
		       readings, status, created_at, updated_at
		FROM meter_records
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.SiteName != nil {
		query += fmt.Sprintf(" AND site_name = $%d", argNum)
		args = append(args, *filter.SiteName)
		argNum++
	}

	if filter.Date != nil {
		query += fmt.Sprintf(" AND record_date = $%d", argNum)
		args = append(args, *filter.Date)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_records", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count meter records: %w", err)
	}

	// record_date is dialect text DD-MM-YYYY; ordering by the rearranged
	// segments keeps the listing chronological
	query += " ORDER BY substr(record_date, 7, 4), substr(record_date, 4, 2), substr(record_date, 1, 2)"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.MeterRecord
	err = r.db.SelectContext(ctx, "get_records", &records, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get meter records: %w", err)
	}

	return records, totalCount, nil
}

// ListSiteMonths returns the distinct site/month combinations on record.
func (r *meterRepository) ListSiteMonths(ctx context.Context) ([]SiteMonth, error) {
	query := `
		SELECT DISTINCT site_name,
		       substr(record_date, 7, 4) || '-' || substr(record_date, 4, 2) AS month
		FROM meter_records
		ORDER BY site_name, month
	`

	var months []SiteMonth
	if err := r.db.SelectContext(ctx, "list_site_months", &months, query); err != nil {
		return nil, fmt.Errorf("failed to list site months: %w", err)
	}

	return months, nil
}

// GetRecordsForMonth retrieves every record for one site and YYYY-MM month.
func (r *meterRepository) GetRecordsForMonth(ctx context.Context, siteName, month string) ([]*models.MeterRecord, error) {
	query := `
		SELECT id, site_name, record_date, record_time,
		       plant_start_time, plant_stop_time, total_operating_time,
		       gss_export_total, gss_import_total, net_export_at_gss,
		       readings, status, created_at, updated_at
		FROM meter_records
		WHERE site_name = $1
		  AND substr(record_date, 7, 4) || '-' || substr(record_date, 4, 2) = $2
		ORDER BY substr(record_date, 1, 2)
	`

	var records []*models.MeterRecord
	if err := r.db.SelectContext(ctx, "get_records_for_month", &records, query, siteName, month); err != nil {
		return nil, fmt.Errorf("failed to get records for month: %w", err)
	}

	return records, nil
}

// HealthCheck performs a repository health check.
func (r *meterRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
