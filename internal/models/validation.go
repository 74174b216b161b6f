package models

import "fmt"

// RowError collects the defects found on one spreadsheet row. RowNumber is
// 1-based and includes the header row, matching what the user sees in
// their spreadsheet application.
type RowError struct {
	RowNumber int      `json:"row_number"`
	Errors    []string `json:"errors"`
}

// ValidationBatchResult is the outcome of validating one uploaded batch.
// Rows come back normalized and (for meter batches) enriched, in upload
// order; Errors are ordered by ascending row number. Nothing is dropped:
// defective rows stay in Rows so the caller can render corrections.
type ValidationBatchResult struct {
	Rows    []Row      `json:"rows"`
	Errors  []RowError `json:"errors"`
	IsValid bool       `json:"is_valid"`
}

// SubmissionResult reports what a batch submission did. Upserts are keyed
// on (date, time); rows lacking a date are skipped, never fatal.
type SubmissionResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// ValidationError is a single-field data defect. It is accumulated into
// RowError lists rather than raised; batches always process to the end.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
