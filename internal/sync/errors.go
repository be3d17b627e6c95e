package sync

import "errors"

// Common sync errors
var (
	// ErrTransientFailure is returned for network failures and server 5xx
	// responses. The affected outbox entries stay queued with an
	// incremented retry counter and are retried on a later cycle.
	ErrTransientFailure = errors.New("transient sync failure")

	// ErrUnauthorized is returned when the server rejects the session
	// token. The cycle fails; queuing continues locally.
	ErrUnauthorized = errors.New("sync request unauthorized")

	// ErrRetryExceeded marks an outbox entry abandoned after the retry
	// ceiling. It is reported to subscribers as a warning, never thrown.
	ErrRetryExceeded = errors.New("outbox entry exceeded retry limit")

	// ErrConflict marks a local change the server rejected in favor of
	// its own copy. Like ErrRetryExceeded it only ever reaches
	// subscribers on the warning event for the overwritten change.
	ErrConflict = errors.New("local change conflicts with server copy")
)
