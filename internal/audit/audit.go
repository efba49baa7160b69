// Package audit appends immutable decision records to a line-delimited log.
package audit

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

// LogName is the audit log name under the state directory.
const LogName = "audit"

// Record is one audit log entry. Records are never mutated or deleted.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	UsedAt    time.Time `json:"used_at" yaml:"used_at"`
	Source    string    `json:"source" yaml:"source"`
	Detail    string    `json:"detail" yaml:"detail"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Verdict   string    `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Rule      string    `json:"rule,omitempty" yaml:"rule,omitempty"`
	Category  string    `json:"category,omitempty" yaml:"category,omitempty"`
}

// Log writes audit records through a store.
type Log struct {
	store *storage.Store
	now   func() time.Time
}

// New returns an audit log backed by s.
func New(s *storage.Store) *Log {
	return &Log{store: s, now: time.Now}
}

// Append stamps rec with an ID and time (when unset) and appends it.
// Audit writes are not safety-critical: failures are logged and returned
// for callers that care, but never change a decision.
func (l *Log) Append(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UsedAt.IsZero() {
		rec.UsedAt = l.now().UTC()
	}
	if err := l.store.AppendJSONL(LogName, rec); err != nil {
		l.store.Logger().Warn("audit append failed", zap.String("source", rec.Source), zap.Error(err))
		return err
	}
	return nil
}

// Records reads back every audit entry in append order.
func (l *Log) Records() ([]Record, error) {
	return storage.ReadJSONL[Record](l.store, LogName)
}
