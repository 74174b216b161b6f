package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/pkg/dateparse"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// MeterValidationService checks uploaded meter rows and enriches every row
// with the derived operating window and reading totals. Weather
// correlation happens through one batched fetch for the whole batch.
type MeterValidationService struct {
	weatherStore repository.WeatherRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewMeterValidationService creates a new meter validation service.
func NewMeterValidationService(weatherStore repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MeterValidationService {
	return &MeterValidationService{
		weatherStore: weatherStore,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// Validate checks every meter row, derives its plant operating window from
// correlated weather, and computes the reading totals. Rows come back in
// upload order with the derived fields attached whether or not the row
// validated; defects never halt the batch. The returned error covers only
// batch-level failures (the weather store fetch), never row data.
func (s *MeterValidationService) Validate(ctx context.Context, rows []models.Row) (*models.ValidationBatchResult, error) {
	timer := time.Now()
	defer func() {
		s.metrics.ValidationDuration.WithLabelValues("meter").Observe(time.Since(timer).Seconds())
		s.metrics.ValidationBatchSize.Observe(float64(len(rows)))
	}()

	canonical := make([]models.Row, len(rows))
	for i, raw := range rows {
		canonical[i] = models.CanonicalizeRow(raw)
	}

	// One aggregate weather fetch for every distinct date in the batch
	index, err := buildWeatherIndex(ctx, s.weatherStore, distinctDates(canonical))
	if err != nil {
		return nil, fmt.Errorf("weather correlation fetch failed: %w", err)
	}

	result := &models.ValidationBatchResult{
		Rows:   make([]models.Row, 0, len(rows)),
		Errors: make([]models.RowError, 0),
	}

	// Meter data is one row per date, so the duplicate key is the date
	// alone, unlike the weather stream's (date, time) pair
	seenDates := make(map[string]struct{}, len(rows))

	for i, row := range canonical {
		defects := make([]string, 0)

		s.checkMeterDate(row, seenDates, &defects)
		startOK := checkOptionalClock(row, models.FieldStartTime, &defects)
		stopOK := checkOptionalClock(row, models.FieldStopTime, &defects)
		hasReading := s.checkReadings(row, &defects)

		hasTimePair := startOK && stopOK && row.Has(models.FieldStartTime) && row.Has(models.FieldStopTime)
		if !hasTimePair && !hasReading {
			defects = append(defects, "Row must contain either Start & Stop Time or at least one meter reading")
		}

		// Derived fields attach regardless of the verdict; a date without
		// weather coverage degrades to the 00:00 window
		samples := index.lookup(row.Get(models.FieldDate))
		if len(samples) == 0 {
			s.metrics.CorrelationMissesTotal.Inc()
		}
		window := ComputeOperatingWindow(samples)
		pairs := ExtractReadingPairs(row)
		totals := AggregateReadingTotals(pairs)
		EnrichMeterRow(row, window, pairs, totals)
		s.metrics.EnrichedRowsTotal.Inc()

		if len(defects) > 0 {
			result.Errors = append(result.Errors, models.RowError{
				RowNumber: i + headerRowOffset,
				Errors:    defects,
			})
		}

		s.metrics.RecordRowVerdict("meter", len(defects) == 0)
		s.metrics.RecordDefects("meter", len(defects))

		result.Rows = append(result.Rows, row)
	}

	result.IsValid = len(result.Errors) == 0

	s.logger.Info(ctx, "[METER_VALIDATE] Meter batch validated", logging.Fields{
		"row_count":   len(rows),
		"error_count": len(result.Errors),
		"is_valid":    result.IsValid,
	})

	return result, nil
}

func (s *MeterValidationService) checkMeterDate(row models.Row, seenDates map[string]struct{}, defects *[]string) bool {
	date := row.Get(models.FieldDate)
	if date == "" {
		*defects = append(*defects, "Date is required")
		return false
	}
	if _, ok := dateparse.Parse(date); !ok {
		*defects = append(*defects, "Invalid Date format, expected DD-MM-YYYY")
		return false
	}

	normalized := dateparse.ToMeterDate(date)
	row[models.FieldDate] = normalized

	if _, dup := seenDates[normalized]; dup {
		*defects = append(*defects, "Duplicate Date")
		return false
	}
	seenDates[normalized] = struct{}{}
	return true
}

func checkOptionalClock(row models.Row, field string, defects *[]string) bool {
	value := row.Get(field)
	if value == "" {
		return true
	}
	normalized := dateparse.NormalizeTime(value)
	if _, ok := dateparse.MinutesOfDay(normalized); !ok {
		*defects = append(*defects, fmt.Sprintf("Invalid %s format, expected HH:MM (24-hour)", field))
		return false
	}
	row[field] = normalized
	return true
}

// checkReadings validates every dynamic reading column and reports whether
// the row carries at least one usable reading value.
func (s *MeterValidationService) checkReadings(row models.Row, defects *[]string) bool {
	keys := make([]string, 0, len(row))
	for key := range row {
		if IsReadingColumn(key) && !isDerivedReadingKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	hasReading := false
	for _, key := range keys {
		value, present, valid := models.ParseNumeric(row.Get(key))
		if !present {
			continue
		}
		if !valid {
			*defects = append(*defects, fmt.Sprintf("%s must be a number", key))
			continue
		}
		if value < 0 {
			*defects = append(*defects, fmt.Sprintf("%s cannot be negative", key))
			continue
		}
		hasReading = true
	}

	return hasReading
}

// isDerivedReadingKey screens out the fields the enricher itself writes.
// They match the export/import pattern but are outputs, not readings, and
// re-validating an enriched row must not flag them (net export may
// legitimately be negative).
func isDerivedReadingKey(key string) bool {
	switch key {
	case models.FieldGSSExportTotal, models.FieldGSSImportTotal, models.FieldNetExportAtGSS:
		return true
	}
	return strings.HasSuffix(key, " Total")
}

func distinctDates(rows []models.Row) []string {
	seen := make(map[string]struct{}, len(rows))
	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		date := row.Get(models.FieldDate)
		if date == "" {
			continue
		}
		if _, ok := dateparse.Parse(date); !ok {
			continue
		}
		normalized := dateparse.ToMeterDate(date)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		dates = append(dates, normalized)
	}
	return dates
}
