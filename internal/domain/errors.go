package domain

import "errors"

var (
	// ErrNotFound is returned when the remote record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransport covers network failures, unexpected statuses and malformed responses.
	ErrTransport = errors.New("transport failure")

	// ErrUnauthorized means the session is no longer accepted by the remote.
	ErrUnauthorized = errors.New("session unauthorized")

	// ErrStoreUnavailable means the database connection is gone.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicate is returned by insert-only writes for a key that already exists.
	ErrDuplicate = errors.New("already exists")

	ErrTooManyFailures = errors.New("failure ratio above threshold")

	// ErrLockHeld means another harvester is running against the same store.
	ErrLockHeld = errors.New("harvest lock held")
)

// IsFatal reports whether err must stop a harvest from scheduling further items.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrStoreUnavailable)
}
