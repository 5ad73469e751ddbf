package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the listing id does not exist in the store.
	ErrNotFound = errors.New("listing not found")
	// ErrConflict indicates a concurrent transition won the race; callers
	// should re-read current state before retrying.
	ErrConflict = errors.New("listing was modified concurrently")
	// ErrForbidden indicates the caller is not allowed to perform the action.
	ErrForbidden = errors.New("forbidden")
)

// FieldError is a single field's validation failure.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError aggregates every violation found in a submission, not just
// the first one.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InvalidTransitionError reports an event that is illegal from the listing's
// current status. The record is left unmodified.
type InvalidTransitionError struct {
	From  ListingStatus
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a listing in status %s", e.Event, e.From)
}

// StorageError wraps a collaborator failure so callers can distinguish it
// from domain-level rejections.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
