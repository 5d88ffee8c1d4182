package types

import "errors"

// Sentinel errors shared across the engine. Callers match with errors.Is;
// wrapping sites add context with fmt.Errorf("...: %w", err).
var (
	// ErrNotFound means a referenced entity or file is absent.
	ErrNotFound = errors.New("not found")

	// ErrMalformed means a header is unparseable, a required field is
	// missing, or an invariant is broken.
	ErrMalformed = errors.New("malformed")

	// ErrConflict means a duplicate relationship, duplicate event, or a
	// concurrent-write collision.
	ErrConflict = errors.New("conflict")

	// ErrPrecondition means an operation requires a prior step that has
	// not happened (state-machine transitions, estimate-before-complete).
	ErrPrecondition = errors.New("precondition not met")

	// ErrCanceled means the operation was interrupted by signal or timeout.
	ErrCanceled = errors.New("canceled")
)
