package nearcache

import (
	"errors"
	"fmt"
)

var (
	ErrRegistryClosed   = errors.New("nearcache: registry closed")
	ErrEmptyDatabaseID  = errors.New("nearcache: database id is required")
	ErrInvalidProcessID = errors.New("nearcache: process id must not contain ':'")
	// ErrFetchMismatch: a fetch callback returned a different number of values than requested.
	ErrFetchMismatch = errors.New("nearcache: fetch returned mismatched result count")
)

// FetchError wraps a failed remote-fetch callback. The callback's own error is
// reachable with errors.Is / errors.As.
type FetchError struct {
	Op   string
	Keys []string
	Err  error
}

func (e *FetchError) Error() string {
	switch len(e.Keys) {
	case 0:
		return fmt.Sprintf("nearcache: %s: %v", e.Op, e.Err)
	case 1:
		return fmt.Sprintf("nearcache: %s %q: %v", e.Op, e.Keys[0], e.Err)
	default:
		return fmt.Sprintf("nearcache: %s (%d keys): %v", e.Op, len(e.Keys), e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
