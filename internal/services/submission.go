package services

import (
	"context"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/pkg/dateparse"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// SubmissionService persists validated batches. Upserts are keyed on the
// natural (site, date, time) key, so resubmitting a batch never fails on
// duplicates; rows without a date are skipped and counted.
type SubmissionService struct {
	weatherStore repository.WeatherRepository
	meterStore   repository.MeterRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(weatherStore repository.WeatherRepository, meterStore repository.MeterRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SubmissionService {
	return &SubmissionService{
		weatherStore: weatherStore,
		meterStore:   meterStore,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// SubmitWeather persists a weather batch and reports what happened to each
// row.
func (s *SubmissionService) SubmitWeather(ctx context.Context, rows []models.Row) (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{}

	samples := make([]*models.WeatherSample, 0, len(rows))
	for _, raw := range rows {
		row := models.CanonicalizeRow(raw)
		if !row.Has(models.FieldDate) {
			result.Skipped++
			continue
		}
		samples = append(samples, sampleFromRow(row))
	}

	inserted, updated, err := s.weatherStore.UpsertSamplesBatch(ctx, samples)
	if err != nil {
		return nil, err
	}
	result.Inserted = inserted
	result.Updated = updated

	s.logger.Info(ctx, "[SUBMIT_WEATHER] Weather batch submitted", logging.Fields{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	})

	return result, nil
}

// SubmitMeter persists a meter batch. Rows are expected to carry the
// derived fields from a prior validation pass; derived values are
// recomputed by validation, never trusted from user input.
func (s *SubmissionService) SubmitMeter(ctx context.Context, rows []models.Row) (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{}

	records := make([]*models.MeterRecord, 0, len(rows))
	for _, raw := range rows {
		row := models.CanonicalizeRow(raw)
		if !row.Has(models.FieldDate) {
			result.Skipped++
			continue
		}
		records = append(records, recordFromRow(row))
	}

	inserted, updated, err := s.meterStore.UpsertRecordsBatch(ctx, records)
	if err != nil {
		return nil, err
	}
	result.Inserted = inserted
	result.Updated = updated

	s.logger.Info(ctx, "[SUBMIT_METER] Meter batch submitted", logging.Fields{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	})

	return result, nil
}

func sampleFromRow(row models.Row) *models.WeatherSample {
	sample := &models.WeatherSample{
		SiteName: row.Get(models.FieldSiteName),
		Date:     dateparse.ToWeatherDate(row.Get(models.FieldDate)),
		Time:     dateparse.NormalizeTime(row.Get(models.FieldTime)),
		Status:   models.StatusSubmitted,
	}

	sample.POA = numericField(row, models.FieldPOA)
	sample.GHI = numericField(row, models.FieldGHI)
	sample.AlbedoUp = numericField(row, models.FieldAlbedoUp)
	sample.AlbedoDown = numericField(row, models.FieldAlbedoDown)
	sample.ModuleTemp = numericField(row, models.FieldModuleTemp)
	sample.AmbientTemp = numericField(row, models.FieldAmbientTemp)
	sample.WindSpeed = numericField(row, models.FieldWindSpeed)
	sample.Rainfall = numericField(row, models.FieldRainfall)
	sample.Humidity = numericField(row, models.FieldHumidity)

	return sample
}

func recordFromRow(row models.Row) *models.MeterRecord {
	pairs := ExtractReadingPairs(row)
	totals := AggregateReadingTotals(pairs)

	record := &models.MeterRecord{
		SiteName:           row.Get(models.FieldSiteName),
		Date:               dateparse.ToMeterDate(row.Get(models.FieldDate)),
		Time:               dateparse.NormalizeTime(row.Get(models.FieldTime)),
		PlantStartTime:     row.Get(models.FieldPlantStartTime),
		PlantStopTime:      row.Get(models.FieldPlantStopTime),
		TotalOperatingTime: row.Get(models.FieldTotalOperatingTime),
		Readings:           pairs,
		Status:             models.StatusSubmitted,
	}

	if len(pairs) > 0 {
		gssExport, gssImport, netExport := totals.GSSExport, totals.GSSImport, totals.NetExport
		record.GSSExportTotal = &gssExport
		record.GSSImportTotal = &gssImport
		record.NetExportAtGSS = &netExport
	}

	if record.PlantStartTime == "" {
		record.PlantStartTime = "00:00"
	}
	if record.PlantStopTime == "" {
		record.PlantStopTime = "00:00"
	}
	if record.TotalOperatingTime == "" {
		record.TotalOperatingTime = "00:00"
	}

	return record
}

func numericField(row models.Row, field string) *float64 {
	value, present, valid := models.ParseNumeric(row.Get(field))
	if !present || !valid {
		return nil
	}
	return &value
}
