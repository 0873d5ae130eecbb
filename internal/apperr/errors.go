// Package apperr separates fatal configuration failures from recoverable
// per-record failures so batch drivers can tell a skip from an abort.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrMalformedReference = errors.New("malformed reference")
	ErrMetadataFetch      = errors.New("metadata fetch failed")
	ErrSectionNotFound    = errors.New("section not found")
	ErrEmptySection       = errors.New("section is empty")
	ErrTaggingService     = errors.New("tagging service failed")
)

// ConfigError aborts a run before any document is touched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MissingColumns reports a source table that lacks required columns.
func MissingColumns(expected, actual []string) error {
	return &ConfigError{
		Field: "source.column",
		Reason: fmt.Sprintf("missing required column(s): expected [%s], found [%s]",
			strings.Join(expected, ", "), strings.Join(actual, ", ")),
	}
}

// RecordError marks a failure scoped to one record. The batch skips the
// record and continues.
type RecordError struct {
	Key   string // identifier, URL or path of the record
	Stage string // resolve, fetch, extract, tag
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Key, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Record wraps err as a RecordError.
func Record(stage, key string, err error) error {
	return &RecordError{Key: key, Stage: stage, Err: err}
}

// IsFatal reports whether err carries a ConfigError.
func IsFatal(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsRecoverable reports whether err is scoped to a single record.
func IsRecoverable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	var re *RecordError
	return errors.As(err, &re)
}
