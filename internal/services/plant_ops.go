package services

import (
	"math"
	"sort"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/dateparse"
)

// Irradiance thresholds bounding the day's generation window. The plant is
// considered started at the first sample reaching startPOAThreshold W/m²;
// it is considered stopped at the last sample still inside the shutdown
// band (0, stopPOABand).
const (
	startPOAThreshold = 10.0
	stopPOABand       = 50.0
)

// OperatingWindow is the derived generation window for one calendar date.
type OperatingWindow struct {
	StartTime          string
	StopTime           string
	TotalOperatingTime string
}

type poaSample struct {
	minutes int
	poa     float64
}

// ComputeOperatingWindow derives plant start/stop times and the operating
// duration from one date's weather samples. Samples with unparseable times
// or non-finite POA are ignored. An empty sample set yields the 00:00
// window: dates without weather coverage still process.
func ComputeOperatingWindow(samples []*models.WeatherSample) OperatingWindow {
	usable := make([]poaSample, 0, len(samples))
	for _, s := range samples {
		if s.POA == nil || math.IsNaN(*s.POA) || math.IsInf(*s.POA, 0) {
			continue
		}
		minutes, ok := dateparse.MinutesOfDay(s.Time)
		if !ok {
			continue
		}
		usable = append(usable, poaSample{minutes: minutes, poa: *s.POA})
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].minutes < usable[j].minutes
	})

	startMinutes := 0
	for _, s := range usable {
		if s.poa >= startPOAThreshold {
			startMinutes = s.minutes
			break
		}
	}

	stopMinutes := 0
	found := false
	for i := len(usable) - 1; i >= 0; i-- {
		if usable[i].poa > 0 && usable[i].poa < stopPOABand {
			stopMinutes = usable[i].minutes
			found = true
			break
		}
	}
	if !found {
		// No sample in the shutdown band: fall back to the last sample
		// with any irradiance at all
		for i := len(usable) - 1; i >= 0; i-- {
			if usable[i].poa > 0 {
				stopMinutes = usable[i].minutes
				break
			}
		}
	}

	// Stop earlier than start is not expected, but the subtraction must
	// wrap forward rather than go negative
	total := ((stopMinutes-startMinutes)%1440 + 1440) % 1440

	return OperatingWindow{
		StartTime:          dateparse.FormatMinutes(startMinutes),
		StopTime:           dateparse.FormatMinutes(stopMinutes),
		TotalOperatingTime: dateparse.FormatMinutes(total),
	}
}
