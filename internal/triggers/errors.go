package triggers

import "errors"

// Sentinel errors for the triggers package.
var (
	// ErrUnknownRequirement is returned when marking a requirement that is not
	// in the current set.
	ErrUnknownRequirement = errors.New("requirement not in current set")

	// ErrInvalidKind is returned for a trigger rule with an unrecognized kind.
	ErrInvalidKind = errors.New("invalid trigger kind")

	// ErrUnsupportedFormat is returned for a pattern table with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported pattern table format")
)
