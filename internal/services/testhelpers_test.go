package services

import (
	"context"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWith("test", prometheus.NewRegistry())
}

func fp(v float64) *float64 {
	return &v
}

// fakeWeatherStore is an in-memory WeatherRepository. Samples match a
// fetch when their stored date equals any requested variant, the same
// containment the SQL ANY($1) clause provides.
type fakeWeatherStore struct {
	samples      []*models.WeatherSample
	fetchErr     error
	fetchCalls   int
	lastVariants []string
	upserted     []*models.WeatherSample
}

func (f *fakeWeatherStore) FetchByDateVariants(ctx context.Context, dateVariants []string) ([]*models.WeatherSample, error) {
	f.fetchCalls++
	f.lastVariants = dateVariants
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	want := make(map[string]struct{}, len(dateVariants))
	for _, v := range dateVariants {
		want[v] = struct{}{}
	}

	var out []*models.WeatherSample
	for _, s := range f.samples {
		if _, ok := want[s.Date]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeWeatherStore) UpsertSamplesBatch(ctx context.Context, samples []*models.WeatherSample) (int, int, error) {
	inserted, updated := 0, 0
	for _, s := range samples {
		replaced := false
		for i, existing := range f.upserted {
			if existing.Date == s.Date && existing.Time == s.Time {
				f.upserted[i] = s
				replaced = true
				break
			}
		}
		if replaced {
			updated++
		} else {
			f.upserted = append(f.upserted, s)
			inserted++
		}
	}
	return inserted, updated, nil
}

func (f *fakeWeatherStore) GetSamples(ctx context.Context, filter repository.SampleFilter) ([]*models.WeatherSample, int, error) {
	return f.samples, len(f.samples), nil
}

func (f *fakeWeatherStore) DeleteSamplesByDates(ctx context.Context, siteName string, dateVariants []string) (int64, error) {
	return 0, nil
}

func (f *fakeWeatherStore) HealthCheck(ctx context.Context) error {
	return nil
}

// fakeMeterStore is an in-memory MeterRepository.
type fakeMeterStore struct {
	records    []*models.MeterRecord
	siteMonths []repository.SiteMonth
	upserted   []*models.MeterRecord
}

func (f *fakeMeterStore) UpsertRecordsBatch(ctx context.Context, records []*models.MeterRecord) (int, int, error) {
	inserted, updated := 0, 0
	for _, rec := range records {
		replaced := false
		for i, existing := range f.upserted {
			if existing.Date == rec.Date && existing.Time == rec.Time {
				f.upserted[i] = rec
				replaced = true
				break
			}
		}
		if replaced {
			updated++
		} else {
			f.upserted = append(f.upserted, rec)
			inserted++
		}
	}
	return inserted, updated, nil
}

func (f *fakeMeterStore) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.MeterRecord, int, error) {
	return f.records, len(f.records), nil
}

func (f *fakeMeterStore) ListSiteMonths(ctx context.Context) ([]repository.SiteMonth, error) {
	return f.siteMonths, nil
}

func (f *fakeMeterStore) GetRecordsForMonth(ctx context.Context, siteName, month string) ([]*models.MeterRecord, error) {
	var out []*models.MeterRecord
	for _, rec := range f.records {
		// record dates are meter dialect DD-MM-YYYY
		if rec.SiteName != siteName || len(rec.Date) != 10 {
			continue
		}
		if rec.Date[6:10]+"-"+rec.Date[3:5] == month {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeMeterStore) HealthCheck(ctx context.Context) error {
	return nil
}

// fakeSummaryStore is an in-memory SummaryRepository keyed by site|month.
type fakeSummaryStore struct {
	summaries map[string]*models.OperationsSummary
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{summaries: make(map[string]*models.OperationsSummary)}
}

func (f *fakeSummaryStore) UpsertSummary(ctx context.Context, summary *models.OperationsSummary) error {
	f.summaries[summary.SiteName+"|"+summary.Month] = summary
	return nil
}

func (f *fakeSummaryStore) GetSummaries(ctx context.Context, filter repository.SummaryFilter) ([]*models.OperationsSummary, int, error) {
	var out []*models.OperationsSummary
	for _, s := range f.summaries {
		out = append(out, s)
	}
	return out, len(out), nil
}

func hasDefect(errors []models.RowError, rowNumber int, fragment string) bool {
	for _, rowErr := range errors {
		if rowErr.RowNumber != rowNumber {
			continue
		}
		for _, msg := range rowErr.Errors {
			if strings.Contains(msg, fragment) {
				return true
			}
		}
	}
	return false
}
