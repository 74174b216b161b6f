package services

import (
	"context"
	"errors"
	"fmt"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
)

// BatchState tracks where an uploaded batch is in its lifecycle.
type BatchState string

const (
	StateParsed    BatchState = "parsed"
	StateValidated BatchState = "validated"
	StateSubmitted BatchState = "submitted"
)

// BatchKind identifies which data stream a batch belongs to.
type BatchKind string

const (
	KindWeather BatchKind = "weather"
	KindMeter   BatchKind = "meter"
)

var (
	// ErrStaleValidation means the batch was edited after its last
	// validation pass; the derived fields on its rows may be stale.
	ErrStaleValidation = errors.New("batch edited since last validation: validate again before submitting")

	// ErrBatchInvalid means the last validation pass found defects.
	ErrBatchInvalid = errors.New("batch has validation errors: correct the rows before submitting")

	// ErrAlreadySubmitted means the batch reached its terminal state; a
	// re-upload or re-edit starts a new batch cycle.
	ErrAlreadySubmitted = errors.New("batch already submitted")
)

// Batch is one uploaded batch's working set: its rows, its lifecycle
// state, and its last validation result. Each batch is owned by the
// pipeline invocation processing it; nothing here is shared.
type Batch struct {
	kind   BatchKind
	rows   []models.Row
	state  BatchState
	result *models.ValidationBatchResult
	dirty  bool
}

// Kind returns the batch's data stream.
func (b *Batch) Kind() BatchKind { return b.kind }

// State returns the batch's lifecycle state.
func (b *Batch) State() BatchState { return b.state }

// Rows returns the batch's current rows (normalized and enriched after a
// validation pass).
func (b *Batch) Rows() []models.Row { return b.rows }

// Result returns the last validation result, or nil before the first
// pass.
func (b *Batch) Result() *models.ValidationBatchResult { return b.result }

// IsValid reports whether the batch is validated, unedited since, and
// free of defects. The surrounding web layer renders the submit
// affordance from this, but the pipeline enforces it again on Submit.
func (b *Batch) IsValid() bool {
	return b.state == StateValidated && !b.dirty && b.result != nil && b.result.IsValid
}

// BatchPipeline drives a batch through parse, validation, correction and
// submission.
type BatchPipeline struct {
	weatherValidator *WeatherValidationService
	meterValidator   *MeterValidationService
	submitter        *SubmissionService
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
}

// NewBatchPipeline creates a new batch pipeline.
func NewBatchPipeline(
	weatherValidator *WeatherValidationService,
	meterValidator *MeterValidationService,
	submitter *SubmissionService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *BatchPipeline {
	return &BatchPipeline{
		weatherValidator: weatherValidator,
		meterValidator:   meterValidator,
		submitter:        submitter,
		logger:           logger,
		metrics:          metricsCollector,
	}
}

// NewBatch wraps freshly parsed rows into a batch in the Parsed state.
func (p *BatchPipeline) NewBatch(kind BatchKind, rows []models.Row) *Batch {
	return &Batch{
		kind:  kind,
		rows:  rows,
		state: StateParsed,
	}
}

// Validate runs the stream's validator over the batch's rows, replacing
// them with their normalized (and for meter batches, enriched) forms.
// It may run any number of times; on unchanged rows it returns an
// identical result.
func (p *BatchPipeline) Validate(ctx context.Context, batch *Batch) (*models.ValidationBatchResult, error) {
	if batch.state == StateSubmitted {
		return nil, ErrAlreadySubmitted
	}

	var result *models.ValidationBatchResult
	switch batch.kind {
	case KindWeather:
		result = p.weatherValidator.Validate(ctx, batch.rows)
	case KindMeter:
		var err error
		result, err = p.meterValidator.Validate(ctx, batch.rows)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown batch kind %q", batch.kind)
	}

	batch.rows = result.Rows
	batch.result = result
	batch.state = StateValidated
	batch.dirty = false

	return result, nil
}

// Edit applies a user correction to one cell. The batch must be
// re-validated before submission so the derived fields catch up with the
// edit.
func (p *BatchPipeline) Edit(batch *Batch, rowIndex int, field, value string) error {
	if batch.state == StateSubmitted {
		return ErrAlreadySubmitted
	}
	if rowIndex < 0 || rowIndex >= len(batch.rows) {
		return fmt.Errorf("row index %d out of range (batch has %d rows)", rowIndex, len(batch.rows))
	}

	batch.rows[rowIndex][field] = value
	batch.dirty = true

	return nil
}

// Submit persists the batch. It refuses batches that were never
// validated, were edited after their last validation, or still carry
// defects; persistence itself is upsert-based and never fails on
// duplicate keys.
func (p *BatchPipeline) Submit(ctx context.Context, batch *Batch) (*models.SubmissionResult, error) {
	if batch.state == StateSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if batch.state != StateValidated || batch.dirty {
		return nil, ErrStaleValidation
	}
	if !batch.result.IsValid {
		return nil, ErrBatchInvalid
	}

	var (
		result *models.SubmissionResult
		err    error
	)
	switch batch.kind {
	case KindWeather:
		result, err = p.submitter.SubmitWeather(ctx, batch.rows)
	case KindMeter:
		result, err = p.submitter.SubmitMeter(ctx, batch.rows)
	default:
		return nil, fmt.Errorf("unknown batch kind %q", batch.kind)
	}
	if err != nil {
		return nil, err
	}

	batch.state = StateSubmitted

	p.logger.Info(ctx, "[PIPELINE_SUBMIT] Batch submitted", logging.Fields{
		"kind":     string(batch.kind),
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	})

	return result, nil
}
