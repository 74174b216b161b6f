package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/database"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// WeatherRepository provides data access for weather samples. The store is
// keyed by the textual (date, time) pair in the weather dialect, so the
// correlation path queries with every dialect spelling of a date at once.
type WeatherRepository interface {
	// FetchByDateVariants retrieves every sample whose stored date matches
	// any of the given spellings, in one query. This is the engine's only
	// I/O during meter validation; it must never degrade to one query per
	// row.
	FetchByDateVariants(ctx context.Context, dateVariants []string) ([]*models.WeatherSample, error)

	// UpsertSamplesBatch persists samples keyed on (site, date, time),
	// updating on conflict, and reports how many rows were inserted vs
	// updated.
	UpsertSamplesBatch(ctx context.Context, samples []*models.WeatherSample) (inserted, updated int, err error)

	GetSamples(ctx context.Context, filter SampleFilter) ([]*models.WeatherSample, int, error)
	DeleteSamplesByDates(ctx context.Context, siteName string, dateVariants []string) (int64, error)

	HealthCheck(ctx context.Context) error
}

// SampleFilter defines filters for querying weather samples.
type SampleFilter struct {
	SiteName *string
	Date     *string // weather dialect DD-MMM-YY
	Limit    int
	Offset   int
}

// weatherRepository implements WeatherRepository.
type weatherRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository.
func NewWeatherRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FetchByDateVariants retrieves samples matching any of the date spellings.
func (r *weatherRepository) FetchByDateVariants(ctx context.Context, dateVariants []string) ([]*models.WeatherSample, error) {
	if len(dateVariants) == 0 {
		return nil, nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.CorrelationFetchDuration.Observe(time.Since(timer).Seconds())
	}()

	query := `
		SELECT id, site_name, sample_date, sample_time,
		       poa, ghi, albedo_up, albedo_down,
		       module_temp, ambient_temp, wind_speed, rainfall, humidity,
		       status, created_at, updated_at
		FROM weather_samples
		WHERE sample_date = ANY($1)
		ORDER BY sample_date, sample_time
	`

	var samples []*models.WeatherSample
	err := r.db.SelectContext(ctx, "fetch_by_date_variants", &samples, query, pq.Array(dateVariants))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch samples by date variants: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CORRELATION_FETCH] Weather samples fetched for correlation", logging.Fields{
		"variant_count": len(dateVariants),
		"sample_count":  len(samples),
	})

	return samples, nil
}

// UpsertSamplesBatch persists samples in a single transaction. The
// (xmax = 0) check distinguishes fresh inserts from conflict updates.
func (r *weatherRepository) UpsertSamplesBatch(ctx context.Context, samples []*models.WeatherSample) (int, int, error) {
	if len(samples) == 0 {
		return 0, 0, nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.SubmissionBatchSize.Observe(float64(len(samples)))
		r.logger.Debug(ctx, "[REPO_UPSERT_SAMPLES] Sample batch upsert completed", logging.Fields{
			"count":       len(samples),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather_samples (
			site_name, sample_date, sample_time,
			poa, ghi, albedo_up, albedo_down,
			module_temp, ambient_temp, wind_speed, rainfall, humidity,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (site_name, sample_date, sample_time) DO UPDATE SET
			poa = EXCLUDED.poa,
			ghi = EXCLUDED.ghi,
			albedo_up = EXCLUDED.albedo_up,
			albedo_down = EXCLUDED.albedo_down,
			module_temp = EXCLUDED.module_temp,
			ambient_temp = EXCLUDED.ambient_temp,
			wind_speed = EXCLUDED.wind_speed,
			rainfall = EXCLUDED.rainfall,
			humidity = EXCLUDED.humidity,
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
	for _, s := range samples {
		var wasInsert bool
		err := stmt.QueryRowContext(ctx,
			s.SiteName, s.Date, s.Time,
			s.POA, s.GHI, s.AlbedoUp, s.AlbedoDown,
			s.ModuleTemp, s.AmbientTemp, s.WindSpeed, s.Rainfall, s.Humidity,
			s.Status, now, now,
		).Scan(&wasInsert)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert sample %s %s: %w", s.Date, s.Time, err)
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

	r.metrics.SubmittedRowsTotal.WithLabelValues("weather").Add(float64(len(samples)))

	return inserted, updated, nil
}

// GetSamples retrieves weather samples with filtering and pagination.
func (r *weatherRepository) GetSamples(ctx context.Context, filter SampleFilter) ([]*models.WeatherSample, int, error) {
	query := `
		SELECT id, site_name, sample_date, sample_time,
		       poa, ghi, albedo_up, albedo_down,
		       module_temp, ambient_temp, wind_speed, rainfall, humidity,
		       status, created_at, updated_at
		FROM weather_samples
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
		query += fmt.Sprintf(" AND sample_date = $%d", argNum)
		args = append(args, *filter.Date)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_samples", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	query += " ORDER BY sample_date, sample_time"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var samples []*models.WeatherSample
	err = r.db.SelectContext(ctx, "get_samples", &samples, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get samples: %w", err)
	}

	return samples, totalCount, nil
}

// DeleteSamplesByDates removes all samples for the given site whose date
// matches any spelling. Bulk delete is the only hard-delete path.
func (r *weatherRepository) DeleteSamplesByDates(ctx context.Context, siteName string, dateVariants []string) (int64, error) {
	if len(dateVariants) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, "delete_samples",
		`DELETE FROM weather_samples WHERE site_name = $1 AND sample_date = ANY($2)`,
		siteName, pq.Array(dateVariants),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete samples: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Info(ctx, "[REPO_DELETE_SAMPLES] Weather samples deleted", logging.Fields{
		"site_name": siteName,
		"deleted":   deleted,
	})

	return deleted, nil
}

// HealthCheck performs a repository health check.
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
