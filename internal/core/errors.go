package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("entry not found")
	ErrDuplicateID = errors.New("duplicate entry id")
)

// ValidationError lists the field level violations that rejected an entry.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Fields returns the first message per field.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		if _, ok := out[v.Field]; !ok {
			out[v.Field] = v.Message
		}
	}
	return out
}

// Has reports whether field has a violation.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// NotFoundError reports an id that is not in the ledger or store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("entry %q not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateIDError reports an id that would overwrite an existing entry.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string { return fmt.Sprintf("entry id %q already exists", e.ID) }

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }
