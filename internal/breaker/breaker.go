// Package breaker implements a sticky consecutive-failure circuit breaker.
//
// The breaker opens when the failure count reaches the threshold and stays
// open until Reset, which hooks call at session start. A success clears the
// count but never closes an open breaker, so a noisy success/failure
// sequence cannot oscillate between open and closed.
package breaker

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

const (
	// RecordName is the state record name.
	RecordName = "circuit_breaker"

	// DefaultThreshold is the failure count that trips the breaker.
	DefaultThreshold = 3

	// lockAttempts bounds non-blocking lock retries for counter updates.
	lockAttempts = 5

	// lockRetryDelay spaces lock retries.
	lockRetryDelay = 10 * time.Millisecond
)

// ErrNotRecorded is returned when a transition could not be persisted.
var ErrNotRecorded = errors.New("circuit breaker transition not recorded")

// State is the persisted breaker document.
type State struct {
	FailureCount  int        `json:"failure_count" yaml:"failure_count"`
	Tripped       bool       `json:"tripped" yaml:"tripped"`
	LastFailureAt *time.Time `json:"last_failure_at" yaml:"last_failure_at"`
}

// Breaker is a file-backed circuit breaker.
type Breaker struct {
	store     *storage.Store
	rec       *storage.Record[State]
	threshold int
	now       func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithThreshold sets the trip threshold. Values below 1 keep the default.
func WithThreshold(n int) Option {
	return func(b *Breaker) {
		if n >= 1 {
			b.threshold = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New creates a breaker backed by s.
func New(s *storage.Store, opts ...Option) *Breaker {
	b := &Breaker{
		store:     s,
		rec:       storage.NewRecord[State](s, RecordName),
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Threshold returns the configured trip threshold.
func (b *Breaker) Threshold() int {
	return b.threshold
}

// State reads the current breaker state.
func (b *Breaker) State() State {
	return b.rec.Load(State{})
}

// IsTripped reports whether the breaker is open.
func (b *Breaker) IsTripped() bool {
	return b.State().Tripped
}

// RecordFailure increments the failure count and trips the breaker when it
// reaches the threshold. The returned state is what was persisted; on error
// the caller must not assume the breaker tripped.
func (b *Breaker) RecordFailure() (State, error) {
	st, _, err := b.Fail()
	return st, err
}

// Fail is RecordFailure that also reports whether this call opened the
// breaker. The transition is decided under the record lock, so of several
// concurrent failures crossing the threshold exactly one sees tripped.
func (b *Breaker) Fail() (st State, tripped bool, err error) {
	st, err = b.update(func(st *State) {
		st.FailureCount++
		now := b.now().UTC()
		st.LastFailureAt = &now
		if st.FailureCount >= b.threshold && !st.Tripped {
			st.Tripped = true
			tripped = true
			b.store.Logger().Info("circuit breaker tripped",
				zap.Int("failures", st.FailureCount), zap.Int("threshold", b.threshold))
		}
	})
	if err != nil {
		return st, false, err
	}
	return st, tripped, nil
}

// RecordSuccess clears the consecutive-failure count. An open breaker stays open.
func (b *Breaker) RecordSuccess() (State, error) {
	return b.update(func(st *State) {
		st.FailureCount = 0
	})
}

// Reset restores the closed, zero-count state.
func (b *Breaker) Reset() (State, error) {
	return b.update(func(st *State) {
		*st = State{}
	})
}

// update performs a locked read-modify-write of the breaker record.
func (b *Breaker) update(mutate func(*State)) (State, error) {
	var out State
	err := b.store.WithLockRetry(RecordName, lockAttempts, lockRetryDelay, func() error {
		st := b.rec.Load(State{})
		mutate(&st)
		if err := b.rec.Save(st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return b.State(), fmt.Errorf("%w: %w", ErrNotRecorded, err)
	}
	return out, nil
}
