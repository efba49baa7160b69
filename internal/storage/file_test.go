package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type sample struct {
	Count   int       `json:"count"`
	Flag    bool      `json:"flag"`
	Updated time.Time `json:"updated"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithDir(filepath.Join(t.TempDir(), DefaultDir)))
}

func TestStore_Init(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := os.Stat(s.Dir); err != nil {
		t.Errorf("Init() did not create %s: %v", s.Dir, err)
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord[sample](s, "sample")

	want := sample{Count: 4, Flag: true, Updated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := rec.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := rec.Load(sample{})
	if got.Count != want.Count || got.Flag != want.Flag || !got.Updated.Equal(want.Updated) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestRecord_LoadDefaults(t *testing.T) {
	def := sample{Count: 99}

	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{"missing file", func(t *testing.T, path string) {}},
		{"malformed json", func(t *testing.T, path string) {
			writeRaw(t, path, "{not json")
		}},
		{"truncated document", func(t *testing.T, path string) {
			writeRaw(t, path, `{"count": 3, "fla`)
		}},
		{"directory in place of file", func(t *testing.T, path string) {
			if err := os.MkdirAll(path, 0700); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			rec := NewRecord[sample](s, "sample")
			tt.setup(t, rec.Path())

			got := rec.Load(def)
			if got.Count != def.Count {
				t.Errorf("Load() = %+v, want default %+v", got, def)
			}
		})
	}
}

func TestRecord_Remove(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord[sample](s, "sample")
	if err := rec.Save(sample{Count: 1}); err != nil {
		t.Fatal(err)
	}

	if err := rec.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if rec.Exists() {
		t.Error("record still exists after Remove()")
	}
	if err := rec.Remove(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove() error = %v, want fs.ErrNotExist", err)
	}
}

func TestRecord_SaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord[sample](s, "sample")
	for i := 0; i < 5; i++ {
		if err := rec.Save(sample{Count: i}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the record file, got %d entries", len(entries))
	}
}

func TestRecord_ConcurrentReadersNeverSeePartialWrites(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord[sample](s, "sample")
	if err := rec.Save(sample{Count: 0, Flag: true}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			_ = rec.Save(sample{Count: i, Flag: true})
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		if _, ok := rec.Lookup(); !ok {
			t.Fatal("reader observed a missing or partial document")
		}
	}
}

func TestStore_WithLock(t *testing.T) {
	s := newTestStore(t)

	called := false
	acquired, err := s.WithLock("sample", func() error {
		called = true

		// A second acquisition while held must not wait and must not run.
		inner, err := s.WithLock("sample", func() error {
			t.Error("nested WithLock ran while lock was held")
			return nil
		})
		if err != nil {
			t.Errorf("nested WithLock() error = %v", err)
		}
		if inner {
			t.Error("nested WithLock() acquired a held lock")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if !acquired || !called {
		t.Errorf("WithLock() acquired=%v called=%v, want both true", acquired, called)
	}

	// Released on return.
	acquired, err = s.WithLock("sample", func() error { return nil })
	if err != nil || !acquired {
		t.Errorf("WithLock() after release = %v, %v", acquired, err)
	}
}

func TestStore_WithLockPropagatesError(t *testing.T) {
	s := newTestStore(t)
	sentinel := errors.New("boom")

	acquired, err := s.WithLock("sample", func() error { return sentinel })
	if !acquired {
		t.Error("expected lock to be acquired")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("WithLock() error = %v, want %v", err, sentinel)
	}
}

func TestStore_WithLockRequiresName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.WithLock("", func() error { return nil }); !errors.Is(err, ErrNameRequired) {
		t.Errorf("WithLock(\"\") error = %v, want ErrNameRequired", err)
	}
}

func TestStore_WithLockRetryExhausted(t *testing.T) {
	s := newTestStore(t)

	_, err := s.WithLock("sample", func() error {
		return s.WithLockRetry("sample", 3, time.Millisecond, func() error {
			t.Error("retry ran while lock was held")
			return nil
		})
	})
	if !errors.Is(err, ErrLockHeld) {
		t.Errorf("WithLockRetry() error = %v, want ErrLockHeld", err)
	}
}

func TestStore_AppendAndReadJSONL(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.AppendJSONL("events", sample{Count: i}); err != nil {
			t.Fatalf("AppendJSONL() error = %v", err)
		}
	}

	// A torn line from some other writer is skipped, not fatal.
	f, err := os.OpenFile(s.LogPath("events"), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("{\"count\":\n")
	_ = f.Close()

	got, err := ReadJSONL[sample](s, "events")
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadJSONL() returned %d records, want 3", len(got))
	}
	for i, rec := range got {
		if rec.Count != i {
			t.Errorf("record %d Count = %d", i, rec.Count)
		}
	}
}

func TestReadJSONL_MissingLog(t *testing.T) {
	s := newTestStore(t)
	got, err := ReadJSONL[sample](s, "nothing")
	if err != nil || got != nil {
		t.Errorf("ReadJSONL() = %v, %v; want nil, nil", got, err)
	}
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
