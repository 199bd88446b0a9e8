// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package abserr defines the errors reported by the abstraction engine.
package abserr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies abstraction errors.
type Kind int

const (
	// Inconclusive means that the prover could not decide a query. It is never
	// fatal: the caller keeps a conservative answer.
	Inconclusive Kind = iota
	// Bookkeeping means that an internal invariant of the engine is broken.
	Bookkeeping
	// Malformed means that the input model uses an unsupported construct.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Inconclusive:
		return "inconclusive"
	case Bookkeeping:
		return "bookkeeping"
	case Malformed:
		return "malformed input"
	}
	return "unknown"
}

// Error is an abstraction error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E returns a new abstraction error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf returns a new abstraction error with a formatted message.
func Errorf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Cause returns the underlying error, for use with errors.Cause.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the kind of the first abstraction error in the chain of err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsInconclusive reports whether err is an inconclusive prover answer.
func IsInconclusive(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Inconclusive
}

// IsFatal reports whether err must abort the run. Errors that are not
// abstraction errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k, ok := KindOf(err)
	return !ok || k != Inconclusive
}
