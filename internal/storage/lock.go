package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// WithLock runs fn while holding an exclusive lock on the named record's
// companion lock file. Acquisition never waits: if another process holds the
// lock, WithLock returns (false, nil) without calling fn.
func (s *Store) WithLock(name string, fn func() error) (acquired bool, err error) {
	if name == "" {
		return false, ErrNameRequired
	}

	path := s.LockPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // closing releases the lock too
	}()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			s.log.Debug("lock contended", zap.String("lock", path))
			return false, nil
		}
		return false, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:errcheck // unlock best-effort
	}()

	return true, fn()
}

// WithLockRetry is WithLock with a bounded number of non-blocking attempts
// spaced by delay. It returns ErrLockHeld if every attempt was contended.
func (s *Store) WithLockRetry(name string, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(delay)
		}
		acquired, err := s.WithLock(name, fn)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
	}
	return ErrLockHeld
}
