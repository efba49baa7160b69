// Package bypass holds the two manual overrides: a persistent safety toggle
// that disables enforcement, and a single-use skip token.
package bypass

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/audit"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

const (
	// BypassRecord is the safety toggle record name.
	BypassRecord = "bypass"

	// SkipRecord is the skip token record name. Its companion lock file
	// scopes consumption to this token only.
	SkipRecord = "skip_once"

	// auditSource tags audit records written by this package.
	auditSource = "skip_once"
)

// State is the persisted safety toggle. Active means enforcement is off.
type State struct {
	Active    bool      `json:"active" yaml:"active"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	UpdatedBy string    `json:"updated_by" yaml:"updated_by"`
}

// SkipState is the persisted skip token.
type SkipState struct {
	ID          string    `json:"id" yaml:"id"`
	Active      bool      `json:"active" yaml:"active"`
	RequestedAt time.Time `json:"requested_at" yaml:"requested_at"`
}

// Gate evaluates the safety toggle and the skip token.
type Gate struct {
	store  *storage.Store
	bypass *storage.Record[State]
	skip   *storage.Record[SkipState]
	audit  *audit.Log
	now    func() time.Time
}

// New creates a gate backed by s. Skip consumptions are written to log.
func New(s *storage.Store, log *audit.Log) *Gate {
	return &Gate{
		store:  s,
		bypass: storage.NewRecord[State](s, BypassRecord),
		skip:   storage.NewRecord[SkipState](s, SkipRecord),
		audit:  log,
		now:    time.Now,
	}
}

// IsActive reports whether the safety toggle is off. Any read or parse
// failure reads as inactive so guardrails stay on.
func (g *Gate) IsActive() bool {
	return g.bypass.Load(State{}).Active
}

// State returns the persisted safety toggle.
func (g *Gate) State() State {
	return g.bypass.Load(State{})
}

// SetActive persists the safety toggle.
func (g *Gate) SetActive(active bool, actor string) (State, error) {
	if actor == "" {
		return State{}, ErrActorRequired
	}
	st := State{
		Active:    active,
		UpdatedAt: g.now().UTC(),
		UpdatedBy: actor,
	}
	if err := g.bypass.Save(st); err != nil {
		return State{}, err
	}
	g.store.Logger().Info("safety toggle changed", zap.Bool("bypass_active", active), zap.String("actor", actor))
	return st, nil
}

// RequestSkip creates the skip token. A second request while one is
// outstanding replaces it, so at most one token ever exists.
func (g *Gate) RequestSkip() (SkipState, error) {
	st := SkipState{
		ID:          uuid.NewString(),
		Active:      true,
		RequestedAt: g.now().UTC(),
	}
	if err := g.skip.Save(st); err != nil {
		return SkipState{}, err
	}
	return st, nil
}

// SkipPending reports whether an active skip token exists. It is a hint
// only; ConsumeSkipOnce is the authority.
func (g *Gate) SkipPending() bool {
	st, ok := g.skip.Lookup()
	return ok && st.Active
}

// ConsumeSkipOnce consumes the skip token. Across any number of concurrent
// callers at most one receives true. A caller that cannot take the lock
// immediately gets false; a caller that takes it re-checks the token, since
// an earlier holder may already have consumed it.
func (g *Gate) ConsumeSkipOnce(sessionID string) bool {
	consumed := false
	acquired, err := g.store.WithLock(SkipRecord, func() error {
		st, ok := g.skip.Lookup()
		if !ok || !st.Active {
			return nil
		}
		if err := g.skip.Remove(); err != nil {
			return err
		}
		consumed = true

		_ = g.audit.Append(audit.Record{ //nolint:errcheck // audit is best-effort
			Source:    auditSource,
			Detail:    fmt.Sprintf("skip token %s consumed (requested %s)", st.ID, st.RequestedAt.Format(time.RFC3339)),
			SessionID: sessionID,
		})
		return nil
	})

	switch {
	case err != nil && errors.Is(err, fs.ErrNotExist):
		g.store.Logger().Debug("skip token vanished before removal")
		return false
	case err != nil:
		g.store.Logger().Warn("skip consumption failed", zap.Error(err))
		return false
	case !acquired:
		g.store.Logger().Debug("skip lock contended")
		return false
	}
	return consumed
}
