package services

import (
	"fmt"
	"strings"
)

// ValidationError indicates malformed scope/filter/submission input.
// Surfaced immediately to the caller; never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func newValidationError(format string, v ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, v...)}
}

// NotFoundError indicates a query against a business/branch/staff/survey id
// that does not exist, as opposed to "zero results for a valid entity".
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// BlockedContentError indicates moderation severity reached the block
// threshold at intake. The review is not created.
type BlockedContentError struct {
	Categories []string
}

func (e *BlockedContentError) Error() string {
	return fmt.Sprintf("content blocked by moderation: %s", strings.Join(e.Categories, ", "))
}

// AbuseGateError indicates an IP or geofence rejection at intake.
type AbuseGateError struct {
	Reason string
}

func (e *AbuseGateError) Error() string { return e.Reason }

// EnrichmentUnavailableError wraps a failure of the external scoring
// collaborator. It is recovered internally (safe defaults) and never
// propagated as a failure of review submission.
type EnrichmentUnavailableError struct {
	Err error
}

func (e *EnrichmentUnavailableError) Error() string {
	return fmt.Sprintf("enrichment unavailable: %v", e.Err)
}

func (e *EnrichmentUnavailableError) Unwrap() error { return e.Err }

// InconsistentStateError indicates a transaction failure during answer
// persistence + status assignment. The whole review creation is rolled back.
type InconsistentStateError struct {
	Err error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("review creation failed: %v", e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }
