package musicbrainz

import (
	"fmt"
	"time"
)

// ErrNotFound indicates the requested entity does not exist, or a search
// matched nothing.
type ErrNotFound struct {
	Entity string
	Query  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("musicbrainz: %s not found: %s", e.Entity, e.Query)
}

// ErrUnavailable indicates a transient upstream failure. RetryAfter is a
// hint when the server asked us to back off.
type ErrUnavailable struct {
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("musicbrainz unavailable: %v", e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }
