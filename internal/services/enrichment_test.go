package services

import (
	"testing"

	"solar-telemetry-platform/internal/models"
)

func TestIsReadingColumn(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"Export1 Initial", true},
		{"GSS Import End", true},
		{"export_2_final", true},
		{"IMPORT Start", true},
		{"Date", false},
		{"POA", false},
		{"Module Temperature", false},
	}

	for _, tt := range tests {
		if got := IsReadingColumn(tt.key); got != tt.want {
			t.Errorf("IsReadingColumn(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestExtractReadingPairs(t *testing.T) {
	row := models.Row{
		"Date":             "01-06-2025",
		"Export1 Initial":  "100",
		"Export1 Final":    "150",
		"GSS Import Start": "20",
		"GSS Import End":   "25.5",
		"Export2 Initial":  "300", // no matching Final
		"Import9 Initial":  "abc", // non-numeric
		"Import9 Final":    "10",
	}

	pairs := ExtractReadingPairs(row)

	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2: %v", len(pairs), pairs)
	}

	export1, ok := pairs["Export1"]
	if !ok {
		t.Fatal("missing Export1 pair")
	}
	if export1.Initial != 100 || export1.Final != 150 || export1.Total != 50 {
		t.Errorf("Export1 = %+v, want {100 150 50}", export1)
	}

	gssImport, ok := pairs["GSS Import"]
	if !ok {
		t.Fatal("missing GSS Import pair")
	}
	if gssImport.Total != 5.5 {
		t.Errorf("GSS Import total = %v, want 5.5", gssImport.Total)
	}
}

func TestExtractReadingPairsMatchesSuffixesLoosely(t *testing.T) {
	// Start/End are synonyms for Initial/Final, and separators vary
	row := models.Row{
		"Export_1_Start": "10",
		"Export_1_End":   "40",
	}

	pairs := ExtractReadingPairs(row)
	pair, ok := pairs["Export_1"]
	if !ok {
		t.Fatalf("pairs = %v, want Export_1", pairs)
	}
	if pair.Total != 30 {
		t.Errorf("total = %v, want 30", pair.Total)
	}
}

func TestAggregateReadingTotals(t *testing.T) {
	tests := []struct {
		name       string
		pairs      map[string]models.MeterReadingPair
		wantExport float64
		wantImport float64
		wantNet    float64
	}{
		{
			name:  "no pairs",
			pairs: map[string]models.MeterReadingPair{},
		},
		{
			name: "gss pairs exclude the rest",
			pairs: map[string]models.MeterReadingPair{
				"GSS Export": {Total: 100},
				"GSS Import": {Total: 10},
				"Export1":    {Total: 55}, // feeder meter, not substation
			},
			wantExport: 100,
			wantImport: 10,
			wantNet:    90,
		},
		{
			name: "no gss columns fall back to summing everything",
			pairs: map[string]models.MeterReadingPair{
				"Export1": {Total: 40},
				"Export2": {Total: 60},
				"Import1": {Total: 30},
			},
			wantExport: 100,
			wantImport: 30,
			wantNet:    70,
		},
		{
			name: "net export may be negative",
			pairs: map[string]models.MeterReadingPair{
				"GSS Export": {Total: 5},
				"GSS Import": {Total: 20},
			},
			wantExport: 5,
			wantImport: 20,
			wantNet:    -15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateReadingTotals(tt.pairs)
			if got.GSSExport != tt.wantExport {
				t.Errorf("GSSExport = %v, want %v", got.GSSExport, tt.wantExport)
			}
			if got.GSSImport != tt.wantImport {
				t.Errorf("GSSImport = %v, want %v", got.GSSImport, tt.wantImport)
			}
			if got.NetExport != tt.wantNet {
				t.Errorf("NetExport = %v, want %v", got.NetExport, tt.wantNet)
			}
		})
	}
}

func TestEnrichMeterRow(t *testing.T) {
	row := models.Row{
		"Date":            "01-06-2025",
		"Export1 Initial": "100",
		"Export1 Final":   "150",
	}
	window := OperatingWindow{StartTime: "09:00", StopTime: "17:30", TotalOperatingTime: "08:30"}
	pairs := ExtractReadingPairs(row)
	totals := AggregateReadingTotals(pairs)

	EnrichMeterRow(row, window, pairs, totals)

	want := map[string]string{
		models.FieldPlantStartTime:     "09:00",
		models.FieldPlantStopTime:      "17:30",
		models.FieldTotalOperatingTime: "08:30",
		"Export1 Total":                "50",
		models.FieldGSSExportTotal:     "50",
		models.FieldGSSImportTotal:     "0",
		models.FieldNetExportAtGSS:     "50",
	}
	for field, value := range want {
		if row.Get(field) != value {
			t.Errorf("%s = %q, want %q", field, row.Get(field), value)
		}
	}
}
