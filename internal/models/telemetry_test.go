package models

import "testing"

func TestReadingsMapRoundTrip(t *testing.T) {
	readings := ReadingsMap{
		"Export1":    {Initial: 100, Final: 150, Total: 50},
		"GSS Import": {Initial: 20, Final: 25.5, Total: 5.5},
	}

	value, err := readings.Value()
	if err != nil {
		t.Fatal(err)
	}

	var decoded ReadingsMap
	if err := decoded.Scan(value.([]byte)); err != nil {
		t.Fatal(err)
	}

	if len(decoded) != 2 {
		t.Fatalf("decoded %d pairs, want 2", len(decoded))
	}
	if decoded["Export1"].Total != 50 {
		t.Errorf("Export1 total = %v, want 50", decoded["Export1"].Total)
	}
	if decoded["GSS Import"].Final != 25.5 {
		t.Errorf("GSS Import final = %v, want 25.5", decoded["GSS Import"].Final)
	}
}

func TestReadingsMapNilHandling(t *testing.T) {
	var readings ReadingsMap
	value, err := readings.Value()
	if err != nil {
		t.Fatal(err)
	}
	if string(value.([]byte)) != "{}" {
		t.Errorf("nil map value = %s, want {}", value)
	}

	var decoded ReadingsMap
	if err := decoded.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Errorf("scanning NULL = %v, want empty map", decoded)
	}
}
