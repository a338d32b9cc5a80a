package library

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by catalog operations. Callers match them with
// errors.Is; the wrapped message carries the specifics.
var (
	// ErrInvalidArgument is returned for a missing entity or a malformed
	// genre, date or number.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned for duplicate patron IDs, duplicate borrowed
	// titles and checkouts of books that are not available.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned for unknown titles, unknown patron IDs and
	// returns of books the patron never borrowed.
	ErrNotFound = errors.New("not found")

	// ErrIO is returned when a data file cannot be opened, read or written.
	ErrIO = errors.New("i/o error")
)

// LineError describes one line of a data file that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }
