package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// Record is a typed state document at a fixed path. A missing or corrupt
// file reads as the caller's default value, never as an error.
type Record[T any] struct {
	name  string
	path  string
	store *Store
}

// NewRecord binds a named record to the store.
func NewRecord[T any](s *Store, name string) *Record[T] {
	return &Record[T]{
		name:  name,
		path:  s.RecordPath(name),
		store: s,
	}
}

// Name returns the record name.
func (r *Record[T]) Name() string {
	return r.name
}

// Path returns the record file path.
func (r *Record[T]) Path() string {
	return r.path
}

// Load reads the record. Missing, unreadable, or malformed files yield def
// and a diagnostic.
func (r *Record[T]) Load(def T) T {
	v, ok := r.Lookup()
	if !ok {
		return def
	}
	return v
}

// Lookup reads the record and reports whether a valid document was present.
func (r *Record[T]) Lookup() (T, bool) {
	var zero T

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false
	}
	if err != nil {
		r.store.log.Warn("state unreadable, using default",
			zap.String("record", r.name), zap.String("path", r.path), zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		r.store.log.Warn("state corrupt, using default",
			zap.String("record", r.name), zap.String("path", r.path), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Exists reports whether the record file is present, valid or not.
func (r *Record[T]) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Save writes v atomically; readers see either the old or the new document.
func (r *Record[T]) Save(v T) error {
	err := atomicWrite(r.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		r.store.log.Error("state write failed",
			zap.String("record", r.name), zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("save %s: %w", r.name, err)
	}
	return nil
}

// Remove deletes the record. A record that is already gone is reported as
// fs.ErrNotExist so exactly-once callers can tell the difference.
func (r *Record[T]) Remove() error {
	if err := os.Remove(r.path); err != nil {
		return fmt.Errorf("remove %s: %w", r.name, err)
	}
	return nil
}
