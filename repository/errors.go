package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAuthRequired is returned when a write needs a user or admin session
	// and none was supplied.
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrForbidden    = errors.New("forbidden")
	ErrDuplicate    = errors.New("duplicate key")
)

// ValidationError collects field-level problems found before any remote call.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// RepositoryError wraps a failed call to the remote store.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// wrap leaves the sentinel conditions untouched so callers can match them,
// and turns anything else into a RepositoryError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrDuplicate), errors.Is(err, ErrAuthRequired):
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
