package services

import (
	"math"
	"testing"

	"solar-telemetry-platform/internal/models"
)

func sample(clock string, poa *float64) *models.WeatherSample {
	return &models.WeatherSample{Date: "07-Jun-25", Time: clock, POA: poa}
}

func TestComputeOperatingWindow(t *testing.T) {
	tests := []struct {
		name      string
		samples   []*models.WeatherSample
		wantStart string
		wantStop  string
		wantTotal string
	}{
		{
			name:      "empty set yields the zero window",
			samples:   nil,
			wantStart: "00:00",
			wantStop:  "00:00",
			wantTotal: "00:00",
		},
		{
			name: "start is the first sample at threshold",
			samples: []*models.WeatherSample{
				sample("08:00", fp(5)),
				sample("09:00", fp(10)),
				sample("10:00", fp(500)),
				sample("17:30", fp(40)),
			},
			wantStart: "09:00",
			wantStop:  "17:30",
			wantTotal: "08:30",
		},
		{
			name: "stop is the last sample inside the shutdown band",
			samples: []*models.WeatherSample{
				sample("08:00", fp(60)),
				sample("17:30", fp(40)),
				sample("18:00", fp(0)),
			},
			wantStart: "08:00",
			wantStop:  "17:30",
			wantTotal: "09:30",
		},
		{
			name: "no sample in the band falls back to last positive irradiance",
			samples: []*models.WeatherSample{
				sample("08:00", fp(60)),
				sample("12:00", fp(500)),
				sample("13:00", fp(0)),
			},
			wantStart: "08:00",
			wantStop:  "12:00",
			wantTotal: "04:00",
		},
		{
			name: "never reaches the start threshold",
			samples: []*models.WeatherSample{
				sample("08:00", fp(2)),
				sample("09:00", fp(4)),
			},
			wantStart: "00:00",
			wantStop:  "09:00",
			wantTotal: "09:00",
		},
		{
			name: "all dark yields the zero window",
			samples: []*models.WeatherSample{
				sample("03:00", fp(0)),
				sample("04:00", fp(0)),
			},
			wantStart: "00:00",
			wantStop:  "00:00",
			wantTotal: "00:00",
		},
		{
			name: "unordered samples are sorted by time",
			samples: []*models.WeatherSample{
				sample("17:30", fp(40)),
				sample("09:00", fp(10)),
				sample("12:00", fp(600)),
			},
			wantStart: "09:00",
			wantStop:  "17:30",
			wantTotal: "08:30",
		},
		{
			name: "missing POA and bad clocks are ignored",
			samples: []*models.WeatherSample{
				sample("06:00", nil),
				sample("not a time", fp(900)),
				sample("09:00", fp(10)),
				sample("17:00", fp(30)),
			},
			wantStart: "09:00",
			wantStop:  "17:00",
			wantTotal: "08:00",
		},
		{
			name: "non-finite POA is ignored",
			samples: []*models.WeatherSample{
				sample("05:00", fp(math.NaN())),
				sample("06:00", fp(math.Inf(1))),
				sample("09:00", fp(10)),
				sample("16:00", fp(20)),
			},
			wantStart: "09:00",
			wantStop:  "16:00",
			wantTotal: "07:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOperatingWindow(tt.samples)
			if got.StartTime != tt.wantStart {
				t.Errorf("StartTime = %q, want %q", got.StartTime, tt.wantStart)
			}
			if got.StopTime != tt.wantStop {
				t.Errorf("StopTime = %q, want %q", got.StopTime, tt.wantStop)
			}
			if got.TotalOperatingTime != tt.wantTotal {
				t.Errorf("TotalOperatingTime = %q, want %q", got.TotalOperatingTime, tt.wantTotal)
			}
		})
	}
}

func TestComputeOperatingWindowWrapsForward(t *testing.T) {
	// A stop before the start must wrap across midnight, never go negative
	samples := []*models.WeatherSample{
		sample("06:00", fp(3)),
		sample("10:00", fp(200)),
	}
	// start 10:00 (first >= 10), stop falls back to... both positive, last
	// in band is 06:00 (poa 3 < 50)
	got := ComputeOperatingWindow(samples)
	if got.StartTime != "10:00" || got.StopTime != "06:00" {
		t.Fatalf("window = %q..%q, want 10:00..06:00", got.StartTime, got.StopTime)
	}
	if got.TotalOperatingTime != "20:00" {
		t.Errorf("TotalOperatingTime = %q, want 20:00", got.TotalOperatingTime)
	}
}
