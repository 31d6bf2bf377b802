package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNothingToPublish is returned by publish when no staged versions exist.
var ErrNothingToPublish = errors.New("nothing to publish: no staged versions")

// NotFoundError indicates a referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound creates a NotFoundError
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConflictError indicates a uniqueness or concurrent-update collision.
// Callers may retry with an adjusted request; the core does not auto-retry.
type ConflictError struct {
	Resource string
	Name     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Name)
}

// Conflict creates a ConflictError
func Conflict(resource, name string) *ConflictError {
	return &ConflictError{Resource: resource, Name: name}
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// InvalidStateError indicates an operation that is illegal in the entity's
// current lifecycle state (e.g. staging a config with no draft)
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string {
	return e.Msg
}

// InvalidState creates an InvalidStateError
func InvalidState(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvalidState reports whether err is an InvalidStateError
func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}

// ValidationError describes a single malformed input
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validation creates a ValidationError
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ValidationErrors aggregates multiple validation failures into one error
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err is a ValidationError or ValidationErrors
func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}

// EvaluationError indicates a condition referencing a field or operator that
// is unknown at evaluation time. Resolution treats the affected campaign as
// non-matching; the error is surfaced for operator visibility only.
type EvaluationError struct {
	Field    string
	Operator string
	Msg      string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("condition evaluation failed (field=%s operator=%s): %s", e.Field, e.Operator, e.Msg)
}

// Evaluation creates an EvaluationError
func Evaluation(field, operator, format string, args ...any) *EvaluationError {
	return &EvaluationError{Field: field, Operator: operator, Msg: fmt.Sprintf(format, args...)}
}

// IsEvaluation reports whether err is an EvaluationError
func IsEvaluation(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

// BatchError reports per-entity failures of an all-or-nothing batch. The
// batch itself made no state change.
type BatchError struct {
	Op       string
	Failures map[string]error
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for id, err := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", id, err))
	}
	return fmt.Sprintf("%s batch aborted, no changes applied: %s", e.Op, strings.Join(parts, "; "))
}

// Batch creates a BatchError for the given operation
func Batch(op string) *BatchError {
	return &BatchError{Op: op, Failures: make(map[string]error)}
}

// Add records a failure for one entity in the batch
func (e *BatchError) Add(id string, err error) {
	e.Failures[id] = err
}

// Empty reports whether the batch recorded no failures
func (e *BatchError) Empty() bool {
	return len(e.Failures) == 0
}
