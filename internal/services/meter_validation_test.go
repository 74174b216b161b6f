package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"solar-telemetry-platform/internal/models"
)

// juneWeather is one plausible day of irradiance on 01-Jun-25, stored in
// the weather dialect the way submissions land.
func juneWeather() []*models.WeatherSample {
	return []*models.WeatherSample{
		{Date: "01-Jun-25", Time: "06:00", POA: fp(2)},
		{Date: "01-Jun-25", Time: "09:00", POA: fp(10)},
		{Date: "01-Jun-25", Time: "12:00", POA: fp(800)},
		{Date: "01-Jun-25", Time: "17:30", POA: fp(40)},
		{Date: "01-Jun-25", Time: "18:00", POA: fp(0)},
	}
}

func newMeterValidator(store *fakeWeatherStore) *MeterValidationService {
	return NewMeterValidationService(store, newTestLogger(), newTestMetrics())
}

func meterRow(date string) models.Row {
	return models.Row{
		models.FieldDate:  date,
		"Export1 Initial": "100",
		"Export1 Final":   "150",
	}
}

func TestMeterValidateEnrichesFromWeather(t *testing.T) {
	store := &fakeWeatherStore{samples: juneWeather()}
	svc := newMeterValidator(store)

	result, err := svc.Validate(context.Background(), []models.Row{meterRow("01-06-2025")})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsValid {
		t.Fatalf("batch invalid: %v", result.Errors)
	}

	row := result.Rows[0]
	want := map[string]string{
		models.FieldPlantStartTime:     "09:00",
		models.FieldPlantStopTime:      "17:30",
		models.FieldTotalOperatingTime: "08:30",
		models.FieldGSSExportTotal:     "50",
		models.FieldGSSImportTotal:     "0",
		models.FieldNetExportAtGSS:     "50",
		"Export1 Total":                "50",
	}
	for field, value := range want {
		if row.Get(field) != value {
			t.Errorf("%s = %q, want %q", field, row.Get(field), value)
		}
	}
}

func TestMeterValidateFetchesWeatherOnce(t *testing.T) {
	store := &fakeWeatherStore{samples: juneWeather()}
	svc := newMeterValidator(store)

	rows := []models.Row{
		meterRow("01-06-2025"),
		meterRow("02-06-2025"),
		meterRow("03-06-2025"),
	}

	if _, err := svc.Validate(context.Background(), rows); err != nil {
		t.Fatal(err)
	}

	if store.fetchCalls != 1 {
		t.Fatalf("fetchCalls = %d, want exactly 1 for the whole batch", store.fetchCalls)
	}

	// The one fetch carries every dialect spelling of every batch date
	got := append([]string(nil), store.lastVariants...)
	sort.Strings(got)
	wantVariants := []string{
		"01-06-2025", "01-Jun-25", "2025-06-01",
		"02-06-2025", "02-Jun-25", "2025-06-02",
		"03-06-2025", "03-Jun-25", "2025-06-03",
	}
	sort.Strings(wantVariants)
	if !reflect.DeepEqual(got, wantVariants) {
		t.Errorf("variants = %v, want %v", got, wantVariants)
	}
}

func TestMeterValidateMissingWeatherDegradesToZeroWindow(t *testing.T) {
	store := &fakeWeatherStore{samples: juneWeather()}
	svc := newMeterValidator(store)

	result, err := svc.Validate(context.Background(), []models.Row{meterRow("02-06-2025")})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsValid {
		t.Fatalf("a date without weather must still validate: %v", result.Errors)
	}

	row := result.Rows[0]
	for _, field := range []string{models.FieldPlantStartTime, models.FieldPlantStopTime, models.FieldTotalOperatingTime} {
		if row.Get(field) != "00:00" {
			t.Errorf("%s = %q, want 00:00", field, row.Get(field))
		}
	}
}

func TestMeterValidateDuplicateDates(t *testing.T) {
	store := &fakeWeatherStore{samples: juneWeather()}
	svc := newMeterValidator(store)

	// Different spellings of the same date collide
	rows := []models.Row{
		meterRow("01-06-2025"),
		meterRow("01-Jun-25"),
	}

	result, err := svc.Validate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if hasDefect(result.Errors, 2, "Duplicate Date") {
		t.Error("first occurrence must not be flagged")
	}
	if !hasDefect(result.Errors, 3, "Duplicate Date") {
		t.Errorf("second occurrence not flagged: %v", result.Errors)
	}
}

func TestMeterValidateDateAndClockDefects(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newMeterValidator(store)

	rows := []models.Row{
		{"Export1 Initial": "1", "Export1 Final": "2"},
		{models.FieldDate: "junk", "Export1 Initial": "1", "Export1 Final": "2"},
		{models.FieldDate: "03-06-2025", models.FieldStartTime: "25:61", "Export1 Initial": "1", "Export1 Final": "2"},
	}

	result, err := svc.Validate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if !hasDefect(result.Errors, 2, "Date is required") {
		t.Error("missing date not flagged")
	}
	if !hasDefect(result.Errors, 3, "Invalid Date format, expected DD-MM-YYYY") {
		t.Error("bad date not flagged")
	}
	if !hasDefect(result.Errors, 4, "Invalid Start Time format, expected HH:MM (24-hour)") {
		t.Error("bad start time not flagged")
	}
}

func TestMeterValidateReadings(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newMeterValidator(store)

	rows := []models.Row{
		{models.FieldDate: "01-06-2025", "Export1 Initial": "oops", "Export1 Final": "150"},
		{models.FieldDate: "02-06-2025", "Export1 Initial": "-5", "Export1 Final": "150"},
	}

	result, err := svc.Validate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if !hasDefect(result.Errors, 2, "Export1 Initial must be a number") {
		t.Errorf("non-numeric reading not flagged: %v", result.Errors)
	}
	if !hasDefect(result.Errors, 3, "Export1 Initial cannot be negative") {
		t.Errorf("negative reading not flagged: %v", result.Errors)
	}
}

func TestMeterValidateRequiresTimesOrReading(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newMeterValidator(store)

	rows := []models.Row{
		// Nothing usable at all
		{models.FieldDate: "01-06-2025"},
		// A start/stop pair alone is enough
		{models.FieldDate: "02-06-2025", models.FieldStartTime: "06:00", models.FieldStopTime: "19:00"},
		// One reading alone is enough
		{models.FieldDate: "03-06-2025", "Export1 Initial": "100", "Export1 Final": "150"},
		// Start without stop is not a pair
		{models.FieldDate: "04-06-2025", models.FieldStartTime: "06:00"},
	}

	result, err := svc.Validate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	const msg = "Row must contain either Start & Stop Time or at least one meter reading"
	if !hasDefect(result.Errors, 2, msg) {
		t.Error("empty row not flagged")
	}
	if hasDefect(result.Errors, 3, msg) {
		t.Error("start/stop pair wrongly flagged")
	}
	if hasDefect(result.Errors, 4, msg) {
		t.Error("row with a reading wrongly flagged")
	}
	if !hasDefect(result.Errors, 5, msg) {
		t.Error("start without stop not flagged")
	}
}

func TestMeterValidateIsIdempotent(t *testing.T) {
	store := &fakeWeatherStore{samples: juneWeather()}
	svc := newMeterValidator(store)

	rows := []models.Row{
		meterRow("01-06-2025"),
		meterRow("01-06-2025"), // duplicate
	}

	first, err := svc.Validate(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	// Re-validating the enriched rows must not flag the derived fields
	// (net export among them) and must reproduce the defect list
	second, err := svc.Validate(context.Background(), first.Rows)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Errors, second.Errors) {
		t.Errorf("errors differ between passes:\nfirst:  %v\nsecond: %v", first.Errors, second.Errors)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Error("rows changed on the second pass")
	}
}

func TestMeterValidateNegativeNetExportIsNotADefect(t *testing.T) {
	store := &fakeWeatherStore{}
	svc := newMeterValidator(store)

	row := models.Row{
		models.FieldDate:   "01-06-2025",
		"GSS Export Start": "100",
		"GSS Export End":   "110",
		"GSS Import Start": "200",
		"GSS Import End":   "250",
	}

	first, err := svc.Validate(context.Background(), []models.Row{row})
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsValid {
		t.Fatalf("unexpected defects: %v", first.Errors)
	}
	if got := first.Rows[0].Get(models.FieldNetExportAtGSS); got != "-40" {
		t.Fatalf("net export = %q, want -40", got)
	}

	second, err := svc.Validate(context.Background(), first.Rows)
	if err != nil {
		t.Fatal(err)
	}
	if !second.IsValid {
		t.Errorf("enriched negative net export flagged on re-validation: %v", second.Errors)
	}
}

func TestMeterValidateStoreFailure(t *testing.T) {
	store := &fakeWeatherStore{fetchErr: errors.New("connection refused")}
	svc := newMeterValidator(store)

	_, err := svc.Validate(context.Background(), []models.Row{meterRow("01-06-2025")})
	if err == nil {
		t.Fatal("expected batch-level error when the weather fetch fails")
	}
}
