package hook

import "errors"

// Sentinel errors for the hook package.
var (
	// ErrInvalidInput is returned for a missing or malformed invocation
	// document. Callers fail open on it.
	ErrInvalidInput = errors.New("invalid hook input")
)
