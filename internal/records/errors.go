package records

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id does not exist for a kind.
var ErrNotFound = errors.New("record not found")

// ValidationError reports an input value that could not be shaped into a
// wire field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BatchError is raised when any record of a batch write fails. It carries
// the first failing field's label and message, or the record message when
// the backend gave no field detail.
type BatchError struct {
	Op         string
	Kind       Kind
	FieldLabel string
	Message    string
}

func (e *BatchError) Error() string {
	if e.FieldLabel == "" {
		return e.Message
	}
	return e.FieldLabel + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// FieldError is a per-field failure inside a Result.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// Result is the per-record outcome of a batch write.
type Result struct {
	Success bool         `json:"success"`
	Data    Row          `json:"data,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// CodeNotFound marks a Result whose target id does not exist.
const CodeNotFound = "not_found"

func notFoundResult(id int64) Result {
	return Result{Code: CodeNotFound, Message: fmt.Sprintf("record %d not found", id)}
}

// firstFailure converts the first unsuccessful result into an error.
func firstFailure(op string, kind Kind, results []Result) error {
	for _, r := range results {
		if r.Success {
			continue
		}
		if r.Code == CodeNotFound {
			return ErrNotFound
		}
		for _, fe := range r.Errors {
			return &BatchError{Op: op, Kind: kind, FieldLabel: fe.FieldLabel, Message: fe.Message}
		}
		msg := r.Message
		if msg == "" {
			msg = "record " + op + " failed"
		}
		return &BatchError{Op: op, Kind: kind, Message: msg}
	}
	return nil
}
