package annotation

import (
	"fmt"
	"strings"
)

// DefConflictError reports two definitions of one annotation type that
// cannot be reconciled.
type DefConflictError struct {
	Name   string
	Field  string
	A, B   Kind
	Reason string
}

func NewDefConflictError(name, field string, a, b Kind) *DefConflictError {
	return &DefConflictError{Name: name, Field: field, A: a, B: b}
}

func (e *DefConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("conflicting definitions of @%s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("conflicting definitions of @%s: field %s is %s in one and %s in another",
		e.Name, e.Field, e.A, e.B)
}

// KindMismatchError reports a value whose kind differs from what its field
// or array requires.
type KindMismatchError struct {
	Annotation string
	Field      string
	Want, Got  Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("@%s.%s: expected %s, got %s", e.Annotation, e.Field, e.Want, e.Got)
}

// UnknownFieldError reports a value for a field the definition lacks.
type UnknownFieldError struct {
	Annotation string
	Field      string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("@%s has no field %s", e.Annotation, e.Field)
}

// MissingFieldError reports a declared field without a default that an
// annotation gives no value for.
type MissingFieldError struct {
	Annotation string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("@%s: missing field %s", e.Annotation, e.Field)
}

// DuplicateFieldError reports a field given a value twice.
type DuplicateFieldError struct {
	Annotation string
	Field      string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("@%s: field %s given more than once", e.Annotation, e.Field)
}

// AmbiguousNameError reports a short annotation name defined by more than
// one qualified definition.
type AmbiguousNameError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("annotation name %s is ambiguous, use one of: %s",
		e.Name, strings.Join(e.Candidates, ", "))
}
