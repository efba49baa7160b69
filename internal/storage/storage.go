// Package storage persists policy state as independent files under a single
// per-project directory. Every logical global is a named record; the
// filesystem is the only thing shared between hook invocations.
package storage

import (
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// DefaultDir is the default per-project state directory.
	DefaultDir = ".saneprocess"

	// recordExt is the extension of JSON state records.
	recordExt = ".json"

	// lockExt is the extension of companion lock files.
	lockExt = ".lock"
)

// Store is the root of all persisted state for one project.
type Store struct {
	// Dir is the state directory (e.g., .saneprocess).
	Dir string

	log *zap.Logger
}

// StoreOption configures a Store instance.
type StoreOption func(*Store)

// WithDir sets the state directory.
func WithDir(dir string) StoreOption {
	return func(s *Store) {
		s.Dir = dir
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a store rooted at DefaultDir unless overridden.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		Dir: DefaultDir,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logger returns the diagnostics logger shared by everything built on the store.
func (s *Store) Logger() *zap.Logger {
	return s.log
}

// RecordPath returns the JSON file path for a named record.
func (s *Store) RecordPath(name string) string {
	return filepath.Join(s.Dir, name+recordExt)
}

// LockPath returns the companion lock file path for a named record.
func (s *Store) LockPath(name string) string {
	return filepath.Join(s.Dir, name+lockExt)
}

// LogPath returns the path of a line-delimited log under the state directory.
func (s *Store) LogPath(name string) string {
	return filepath.Join(s.Dir, name+".jsonl")
}
