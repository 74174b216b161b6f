package services

import (
	"context"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/pkg/dateparse"
)

// weatherIndex groups weather samples by the meter-dialect date string so
// the enricher resolves each meter row in O(1) after a single aggregate
// fetch. Each index belongs to one validation pass and is discarded with
// it.
type weatherIndex map[string][]*models.WeatherSample

// buildWeatherIndex issues the one batched store query for a meter batch:
// the union of every dialect spelling of every distinct date, fetched in a
// single round trip. Samples come back keyed however the weather stream
// spelled the date; grouping converts to the meter dialect so lookups from
// the meter side hit directly.
func buildWeatherIndex(ctx context.Context, store repository.WeatherRepository, meterDates []string) (weatherIndex, error) {
	if len(meterDates) == 0 {
		return weatherIndex{}, nil
	}

	seen := make(map[string]struct{})
	variants := make([]string, 0, len(meterDates)*3)
	for _, date := range meterDates {
		for _, v := range dateparse.DateVariants(date) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			variants = append(variants, v)
		}
	}

	samples, err := store.FetchByDateVariants(ctx, variants)
	if err != nil {
		return nil, err
	}

	index := make(weatherIndex, len(meterDates))
	for _, sample := range samples {
		key := dateparse.ToMeterDate(sample.Date)
		index[key] = append(index[key], sample)
	}

	return index, nil
}

// lookup returns the samples for a meter-dialect date string; a miss is
// the empty slice, which downstream treats as the 00:00 fallback.
func (idx weatherIndex) lookup(meterDate string) []*models.WeatherSample {
	return idx[dateparse.ToMeterDate(meterDate)]
}
