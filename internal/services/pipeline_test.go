package services

import (
	"context"
	"errors"
	"testing"

	"solar-telemetry-platform/internal/models"
)

func newTestPipeline(weatherStore *fakeWeatherStore, meterStore *fakeMeterStore) *BatchPipeline {
	logger := newTestLogger()
	collector := newTestMetrics()
	return NewBatchPipeline(
		NewWeatherValidationService(logger, collector),
		NewMeterValidationService(weatherStore, logger, collector),
		NewSubmissionService(weatherStore, meterStore, logger, collector),
		logger,
		collector,
	)
}

func TestPipelineHappyPath(t *testing.T) {
	weatherStore := &fakeWeatherStore{}
	pipeline := newTestPipeline(weatherStore, &fakeMeterStore{})

	batch := pipeline.NewBatch(KindWeather, []models.Row{
		weatherRow("07-Jun-25", "09:00"),
		weatherRow("07-Jun-25", "09:05"),
	})

	if batch.State() != StateParsed {
		t.Fatalf("state = %q, want parsed", batch.State())
	}

	result, err := pipeline.Validate(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsValid || !batch.IsValid() {
		t.Fatalf("batch should be valid: %v", result.Errors)
	}
	if batch.State() != StateValidated {
		t.Fatalf("state = %q, want validated", batch.State())
	}

	submission, err := pipeline.Submit(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if submission.Inserted != 2 || submission.Updated != 0 {
		t.Errorf("submission = %+v, want 2 inserted", submission)
	}
	if batch.State() != StateSubmitted {
		t.Errorf("state = %q, want submitted", batch.State())
	}
	if len(weatherStore.upserted) != 2 {
		t.Errorf("store holds %d samples, want 2", len(weatherStore.upserted))
	}
}

func TestPipelineRefusesUnvalidatedSubmit(t *testing.T) {
	pipeline := newTestPipeline(&fakeWeatherStore{}, &fakeMeterStore{})

	batch := pipeline.NewBatch(KindWeather, []models.Row{weatherRow("07-Jun-25", "09:00")})

	if _, err := pipeline.Submit(context.Background(), batch); !errors.Is(err, ErrStaleValidation) {
		t.Fatalf("err = %v, want ErrStaleValidation", err)
	}
}

func TestPipelineRefusesInvalidBatch(t *testing.T) {
	weatherStore := &fakeWeatherStore{}
	pipeline := newTestPipeline(weatherStore, &fakeMeterStore{})

	batch := pipeline.NewBatch(KindWeather, []models.Row{
		{models.FieldDate: "not a date", models.FieldTime: "09:00"},
	})

	if _, err := pipeline.Validate(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
	if batch.IsValid() {
		t.Fatal("batch should be invalid")
	}

	if _, err := pipeline.Submit(context.Background(), batch); !errors.Is(err, ErrBatchInvalid) {
		t.Fatalf("err = %v, want ErrBatchInvalid", err)
	}
	if len(weatherStore.upserted) != 0 {
		t.Error("nothing may persist from an invalid batch")
	}
}

func TestPipelineEditRequiresRevalidation(t *testing.T) {
	weatherStore := &fakeWeatherStore{}
	pipeline := newTestPipeline(weatherStore, &fakeMeterStore{})

	batch := pipeline.NewBatch(KindWeather, []models.Row{
		{models.FieldDate: "not a date", models.FieldTime: "09:00", models.FieldPOA: "450"},
	})

	if _, err := pipeline.Validate(context.Background(), batch); err != nil {
		t.Fatal(err)
	}

	if err := pipeline.Edit(batch, 0, models.FieldDate, "07-Jun-25"); err != nil {
		t.Fatal(err)
	}

	// The correction is in place but unvalidated
	if _, err := pipeline.Submit(context.Background(), batch); !errors.Is(err, ErrStaleValidation) {
		t.Fatalf("err = %v, want ErrStaleValidation after edit", err)
	}

	result, err := pipeline.Validate(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsValid {
		t.Fatalf("corrected batch still invalid: %v", result.Errors)
	}

	if _, err := pipeline.Submit(context.Background(), batch); err != nil {
		t.Fatalf("submit after re-validation failed: %v", err)
	}
}

func TestPipelineEditBounds(t *testing.T) {
	pipeline := newTestPipeline(&fakeWeatherStore{}, &fakeMeterStore{})
	batch := pipeline.NewBatch(KindWeather, []models.Row{weatherRow("07-Jun-25", "09:00")})

	if err := pipeline.Edit(batch, 1, models.FieldDate, "x"); err == nil {
		t.Error("out-of-range row index accepted")
	}
	if err := pipeline.Edit(batch, -1, models.FieldDate, "x"); err == nil {
		t.Error("negative row index accepted")
	}
}

func TestPipelineTerminalState(t *testing.T) {
	pipeline := newTestPipeline(&fakeWeatherStore{}, &fakeMeterStore{})
	batch := pipeline.NewBatch(KindWeather, []models.Row{weatherRow("07-Jun-25", "09:00")})

	ctx := context.Background()
	if _, err := pipeline.Validate(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if _, err := pipeline.Submit(ctx, batch); err != nil {
		t.Fatal(err)
	}

	if _, err := pipeline.Submit(ctx, batch); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second submit: err = %v, want ErrAlreadySubmitted", err)
	}
	if _, err := pipeline.Validate(ctx, batch); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("validate after submit: err = %v, want ErrAlreadySubmitted", err)
	}
	if err := pipeline.Edit(batch, 0, models.FieldPOA, "1"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("edit after submit: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestPipelineMeterBatch(t *testing.T) {
	weatherStore := &fakeWeatherStore{samples: juneWeather()}
	meterStore := &fakeMeterStore{}
	pipeline := newTestPipeline(weatherStore, meterStore)

	batch := pipeline.NewBatch(KindMeter, []models.Row{meterRow("01-06-2025")})

	ctx := context.Background()
	if _, err := pipeline.Validate(ctx, batch); err != nil {
		t.Fatal(err)
	}
	submission, err := pipeline.Submit(ctx, batch)
	if err != nil {
		t.Fatal(err)
	}
	if submission.Inserted != 1 {
		t.Fatalf("submission = %+v, want 1 inserted", submission)
	}

	record := meterStore.upserted[0]
	if record.Date != "01-06-2025" {
		t.Errorf("record date = %q, want meter dialect", record.Date)
	}
	if record.PlantStartTime != "09:00" || record.PlantStopTime != "17:30" || record.TotalOperatingTime != "08:30" {
		t.Errorf("operating window = %s..%s (%s), want 09:00..17:30 (08:30)",
			record.PlantStartTime, record.PlantStopTime, record.TotalOperatingTime)
	}
	if record.NetExportAtGSS == nil || *record.NetExportAtGSS != 50 {
		t.Errorf("net export = %v, want 50", record.NetExportAtGSS)
	}
	if pair, ok := record.Readings["Export1"]; !ok || pair.Total != 50 {
		t.Errorf("readings = %v, want Export1 total 50", record.Readings)
	}
	if record.Status != models.StatusSubmitted {
		t.Errorf("status = %q, want submitted", record.Status)
	}
}
