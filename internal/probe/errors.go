package probe

import "errors"

// ErrProbeUnavailable is returned by Signal when the probe has nothing
// trustworthy to report: no result, a stale one, or an unreachable host.
var ErrProbeUnavailable = errors.New("build probe unavailable")

// ErrHostUnreachable reports that the configured build host did not answer.
var ErrHostUnreachable = errors.New("build host unreachable")
