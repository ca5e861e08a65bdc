package syncer

import (
	"errors"
	"fmt"
)

// ErrAccountGone signals the sync target disappeared before the job ran.
// The owning job should be discarded, not retried.
var ErrAccountGone = errors.New("account no longer exists")

// BookkeepingError marks a non-critical side-effect failure: account
// status updates, session progress, thumbnail persistence. These are
// logged and swallowed; they never fail the primary sync result.
type BookkeepingError struct {
	Op  string
	Err error
}

func (e *BookkeepingError) Error() string {
	return fmt.Sprintf("bookkeeping %s: %v", e.Op, e.Err)
}

func (e *BookkeepingError) Unwrap() error {
	return e.Err
}
