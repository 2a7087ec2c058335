package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store operations referencing an unknown patient
// identifier. Kept as a sentinel so callers can branch with errors.Is.
var ErrNotFound = errors.New("patient not found")

// ValidationError reports a mandatory field that is missing or a field whose
// value is outside its allowed set.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Field + " is required"
	}
	return e.Field + " " + e.Reason
}

// DeserializationError reports a persisted blob that could not be decoded at
// load time. The store refuses to silently drop records.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("persisted patient data is unreadable: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write to the storage adapter. The
// in-memory collection is rolled back before this is returned, so the caller
// may retry or discard without the store diverging from durable state.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting patient data failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
