package storage

import "errors"

// Sentinel errors for the storage package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrLockHeld is returned when another process holds the exclusive lock.
	// It is an expected outcome, not a failure.
	ErrLockHeld = errors.New("lock held by another process")

	// ErrNameRequired is returned when a record is addressed without a name.
	ErrNameRequired = errors.New("state record name is required")
)
