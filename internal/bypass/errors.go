package bypass

import "errors"

// Sentinel errors for the bypass package.
var (
	// ErrActorRequired is returned when the safety toggle is changed anonymously.
	ErrActorRequired = errors.New("actor is required to change the safety toggle")
)
