package services

import (
	"context"
	"fmt"
	"time"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/dateparse"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// headerRowOffset maps a 0-based row index onto the row number the user
// sees in their spreadsheet (row 1 is the header).
const headerRowOffset = 2

// rangeRule bounds a numeric sensor field. Blank cells skip the rule;
// zero is inside every range here.
type rangeRule struct {
	field string
	min   float64
	max   float64
}

var weatherRangeRules = []rangeRule{
	{models.FieldPOA, 0, 1500},
	{models.FieldGHI, 0, 1500},
	{models.FieldAlbedoUp, 0, 1500},
	{models.FieldAlbedoDown, 0, 1500},
	{models.FieldAmbientTemp, 0, 100},
	{models.FieldWindSpeed, 0, 200},
	{models.FieldRainfall, 0, 500},
	{models.FieldHumidity, 0, 100},
}

// WeatherValidationService checks uploaded weather rows against the
// sensor-domain rules and normalizes their date/time spellings.
type WeatherValidationService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherValidationService creates a new weather validation service.
func NewWeatherValidationService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherValidationService {
	return &WeatherValidationService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Validate checks every row and returns the full batch: normalized rows in
// upload order, defects ordered by row number, and the batch verdict.
// Defective rows are kept so the caller can render corrections. Running
// Validate twice over unchanged rows yields an identical result.
func (s *WeatherValidationService) Validate(ctx context.Context, rows []models.Row) *models.ValidationBatchResult {
	timer := time.Now()
	defer func() {
		s.metrics.ValidationDuration.WithLabelValues("weather").Observe(time.Since(timer).Seconds())
		s.metrics.ValidationBatchSize.Observe(float64(len(rows)))
	}()

	result := &models.ValidationBatchResult{
		Rows:   make([]models.Row, 0, len(rows)),
		Errors: make([]models.RowError, 0),
	}

	// The duplicate tracker belongs to this one pass
	seen := make(map[string]struct{}, len(rows))

	for i, raw := range rows {
		row := models.CanonicalizeRow(raw)
		defects := make([]string, 0)

		dateOK := s.checkDate(row, &defects)
		timeOK := s.checkTime(row, &defects)

		if dateOK && timeOK {
			key := row.Get(models.FieldDate) + "|" + row.Get(models.FieldTime)
			if _, dup := seen[key]; dup {
				defects = append(defects, "Duplicate Date & Time combination")
			} else {
				seen[key] = struct{}{}
			}
		}

		checkModuleTemperature(row, &defects)
		for _, rule := range weatherRangeRules {
			checkRange(row, rule, &defects)
		}

		if len(defects) > 0 {
			result.Errors = append(result.Errors, models.RowError{
				RowNumber: i + headerRowOffset,
				Errors:    defects,
			})
		}

		s.metrics.RecordRowVerdict("weather", len(defects) == 0)
		s.metrics.RecordDefects("weather", len(defects))

		result.Rows = append(result.Rows, row)
	}

	result.IsValid = len(result.Errors) == 0

	s.logger.Info(ctx, "[WEATHER_VALIDATE] Weather batch validated", logging.Fields{
		"row_count":   len(rows),
		"error_count": len(result.Errors),
		"is_valid":    result.IsValid,
	})

	return result
}

func (s *WeatherValidationService) checkDate(row models.Row, defects *[]string) bool {
	date := row.Get(models.FieldDate)
	if date == "" {
		*defects = append(*defects, "Date is required")
		return false
	}
	if _, ok := dateparse.Parse(date); !ok {
		*defects = append(*defects, "Invalid Date format, expected DD-MMM-YY")
		return false
	}
	row[models.FieldDate] = dateparse.ToWeatherDate(date)
	return true
}

func (s *WeatherValidationService) checkTime(row models.Row, defects *[]string) bool {
	t := row.Get(models.FieldTime)
	if t == "" {
		*defects = append(*defects, "Time is required")
		return false
	}
	normalized := dateparse.NormalizeTime(t)
	if _, ok := dateparse.MinutesOfDay(normalized); !ok {
		*defects = append(*defects, "Invalid Time format, expected HH:MM (24-hour)")
		return false
	}
	row[models.FieldTime] = normalized
	return true
}

// checkModuleTemperature applies the one asymmetric sensor rule: a module
// temperature of exactly zero means a dead sensor, so zero is rejected
// where the other fields allow it.
func checkModuleTemperature(row models.Row, defects *[]string) {
	value, present, valid := models.ParseNumeric(row.Get(models.FieldModuleTemp))
	if !present {
		return
	}
	switch {
	case !valid:
		*defects = append(*defects, "Module Temperature must be a number")
	case value < 0:
		*defects = append(*defects, "Module Temperature cannot be negative")
	case value == 0:
		*defects = append(*defects, "Module Temperature cannot be 0")
	case value > 100:
		*defects = append(*defects, "Module Temperature cannot exceed 100")
	}
}

func checkRange(row models.Row, rule rangeRule, defects *[]string) {
	value, present, valid := models.ParseNumeric(row.Get(rule.field))
	if !present {
		return
	}
	if !valid {
		*defects = append(*defects, fmt.Sprintf("%s must be a number", rule.field))
		return
	}
	if value < rule.min || value > rule.max {
		*defects = append(*defects, fmt.Sprintf("%s must be between %g and %g", rule.field, rule.min, rule.max))
	}
}
