package services

import (
	"context"
	"testing"

	"solar-telemetry-platform/internal/models"
)

func newTestSubmitter(weatherStore *fakeWeatherStore, meterStore *fakeMeterStore) *SubmissionService {
	return NewSubmissionService(weatherStore, meterStore, newTestLogger(), newTestMetrics())
}

func TestSubmitWeatherMapsFields(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newTestSubmitter(store, &fakeMeterStore{})

	rows := []models.Row{
		{
			models.FieldSiteName:   "Sunfield North",
			models.FieldDate:       "07-06-2025", // meter spelling normalizes on persist
			models.FieldTime:       "9:05",
			models.FieldPOA:        "450.5",
			models.FieldModuleTemp: "51",
			models.FieldHumidity:   "",
		},
	}

	result, err := svc.SubmitWeather(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 || result.Updated != 0 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 inserted", result)
	}

	s := store.upserted[0]
	if s.SiteName != "Sunfield North" {
		t.Errorf("site = %q", s.SiteName)
	}
	if s.Date != "07-Jun-25" {
		t.Errorf("date = %q, want weather dialect 07-Jun-25", s.Date)
	}
	if s.Time != "09:05" {
		t.Errorf("time = %q, want 09:05", s.Time)
	}
	if s.POA == nil || *s.POA != 450.5 {
		t.Errorf("poa = %v, want 450.5", s.POA)
	}
	if s.ModuleTemp == nil || *s.ModuleTemp != 51 {
		t.Errorf("module temp = %v, want 51", s.ModuleTemp)
	}
	if s.Humidity != nil {
		t.Errorf("blank humidity must persist as NULL, got %v", *s.Humidity)
	}
	if s.Status != models.StatusSubmitted {
		t.Errorf("status = %q, want submitted", s.Status)
	}
}

func TestSubmitSkipsRowsWithoutDate(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newTestSubmitter(store, &fakeMeterStore{})

	rows := []models.Row{
		{models.FieldDate: "07-Jun-25", models.FieldTime: "09:00"},
		{models.FieldTime: "09:05"},
	}

	result, err := svc.SubmitWeather(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 inserted 1 skipped", result)
	}
}

func TestResubmitUpdatesInPlace(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newTestSubmitter(store, &fakeMeterStore{})

	rows := []models.Row{
		{models.FieldDate: "07-Jun-25", models.FieldTime: "09:00", models.FieldPOA: "100"},
	}

	if _, err := svc.SubmitWeather(context.Background(), rows); err != nil {
		t.Fatal(err)
	}

	rows[0][models.FieldPOA] = "200"
	result, err := svc.SubmitWeather(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 0 || result.Updated != 1 {
		t.Fatalf("result = %+v, want 1 updated", result)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("store holds %d samples, want 1", len(store.upserted))
	}
	if *store.upserted[0].POA != 200 {
		t.Errorf("poa = %v, want the resubmitted 200", *store.upserted[0].POA)
	}
}

func TestSubmitMeterDefaultsBlankWindow(t *testing.T) {
	meterStore := &fakeMeterStore{}
	svc := newTestSubmitter(&fakeWeatherStore{}, meterStore)

	// Unvalidated rows carry no derived fields; persistence falls back to
	// the zero window rather than empty strings
	rows := []models.Row{
		{models.FieldDate: "01-06-2025", models.FieldStartTime: "06:00", models.FieldStopTime: "19:00"},
	}

	if _, err := svc.SubmitMeter(context.Background(), rows); err != nil {
		t.Fatal(err)
	}

	record := meterStore.upserted[0]
	if record.PlantStartTime != "00:00" || record.PlantStopTime != "00:00" || record.TotalOperatingTime != "00:00" {
		t.Errorf("window = %s..%s (%s), want all 00:00",
			record.PlantStartTime, record.PlantStopTime, record.TotalOperatingTime)
	}
	if record.GSSExportTotal != nil {
		t.Errorf("no reading pairs must mean NULL totals, got %v", *record.GSSExportTotal)
	}
}
