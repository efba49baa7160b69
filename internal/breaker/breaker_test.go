package breaker

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

func newTestBreaker(t *testing.T, opts ...Option) *Breaker {
	t.Helper()
	s := storage.NewStore(storage.WithDir(filepath.Join(t.TempDir(), ".saneprocess")))
	return New(s, opts...)
}

func TestRecordFailure_TripsAtThreshold(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     bool
	}{
		{"no failures", 0, false},
		{"two failures", 2, false},
		{"three failures", 3, true},
		{"five failures", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBreaker(t)
			for i := 0; i < tt.failures; i++ {
				if _, err := b.RecordFailure(); err != nil {
					t.Fatalf("RecordFailure() error = %v", err)
				}
			}
			if got := b.IsTripped(); got != tt.want {
				t.Errorf("IsTripped() after %d failures = %v, want %v", tt.failures, got, tt.want)
			}
			if got := b.State().FailureCount; got != tt.failures {
				t.Errorf("FailureCount = %d, want %d", got, tt.failures)
			}
		})
	}
}

func TestRecordFailure_StampsLastFailure(t *testing.T) {
	fixed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	b := newTestBreaker(t, WithClock(func() time.Time { return fixed }))

	st, err := b.RecordFailure()
	if err != nil {
		t.Fatal(err)
	}
	if st.LastFailureAt == nil || !st.LastFailureAt.Equal(fixed) {
		t.Errorf("LastFailureAt = %v, want %v", st.LastFailureAt, fixed)
	}
}

func TestRecordSuccess_DoesNotCloseTrippedBreaker(t *testing.T) {
	b := newTestBreaker(t)
	for i := 0; i < DefaultThreshold; i++ {
		if _, err := b.RecordFailure(); err != nil {
			t.Fatal(err)
		}
	}

	st, err := b.RecordSuccess()
	if err != nil {
		t.Fatalf("RecordSuccess() error = %v", err)
	}
	if !st.Tripped || !b.IsTripped() {
		t.Error("RecordSuccess() closed a tripped breaker")
	}
	if st.FailureCount != 0 {
		t.Errorf("FailureCount after success = %d, want 0", st.FailureCount)
	}

	st, err = b.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if st.Tripped || st.FailureCount != 0 || st.LastFailureAt != nil {
		t.Errorf("Reset() state = %+v, want zero", st)
	}
	if b.IsTripped() {
		t.Error("IsTripped() after Reset() = true")
	}
}

func TestRecordSuccess_BreaksConsecutiveRun(t *testing.T) {
	b := newTestBreaker(t)
	events := []bool{false, false, true, false, false}
	for _, ok := range events {
		var err error
		if ok {
			_, err = b.RecordSuccess()
		} else {
			_, err = b.RecordFailure()
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if b.IsTripped() {
		t.Error("breaker tripped without three consecutive failures")
	}
}

func TestWithThreshold(t *testing.T) {
	b := newTestBreaker(t, WithThreshold(1))
	if _, err := b.RecordFailure(); err != nil {
		t.Fatal(err)
	}
	if !b.IsTripped() {
		t.Error("threshold 1 should trip on first failure")
	}

	if got := newTestBreaker(t, WithThreshold(0)).Threshold(); got != DefaultThreshold {
		t.Errorf("WithThreshold(0) threshold = %d, want default %d", got, DefaultThreshold)
	}
}

func TestCorruptStateReadsClosed(t *testing.T) {
	b := newTestBreaker(t)
	path := b.rec.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("tripped: yes"), 0600); err != nil {
		t.Fatal(err)
	}
	if b.IsTripped() {
		t.Error("corrupt state should read as closed default")
	}

	st, err := b.RecordFailure()
	if err != nil {
		t.Fatal(err)
	}
	if st.FailureCount != 1 {
		t.Errorf("FailureCount after corrupt state = %d, want 1", st.FailureCount)
	}
}

func TestRecordFailure_ContendedLockIsNotRecorded(t *testing.T) {
	b := newTestBreaker(t)

	_, err := b.store.WithLock(RecordName, func() error {
		if _, err := b.RecordFailure(); err == nil {
			t.Error("RecordFailure() succeeded while another holder owned the lock")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.State().FailureCount; got != 0 {
		t.Errorf("FailureCount = %d, want 0", got)
	}
}

func TestFail_ReportsTransitionOnce(t *testing.T) {
	b := newTestBreaker(t)
	want := []bool{false, false, true, false, false}
	for i, w := range want {
		_, tripped, err := b.Fail()
		if err != nil {
			t.Fatalf("Fail() #%d error = %v", i+1, err)
		}
		if tripped != w {
			t.Errorf("Fail() #%d tripped = %v, want %v", i+1, tripped, w)
		}
	}
}

func TestFail_ConcurrentCallersSeeOneTransition(t *testing.T) {
	b := newTestBreaker(t)
	for i := 0; i < DefaultThreshold-1; i++ {
		if _, err := b.RecordFailure(); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	var transitions, recorded atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, tripped, err := b.Fail()
			if err != nil {
				// Lock contention past the retry budget drops the failure.
				return
			}
			recorded.Add(1)
			if tripped {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	if recorded.Load() == 0 {
		t.Fatal("no concurrent failure was recorded")
	}
	if got := transitions.Load(); got != 1 {
		t.Errorf("transitions = %d, want exactly 1", got)
	}
	if !b.IsTripped() {
		t.Error("breaker not tripped")
	}
}

func TestRecordFailure_SaveFailureDoesNotTrip(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	b := newTestBreaker(t)
	for i := 0; i < DefaultThreshold-1; i++ {
		if _, err := b.RecordFailure(); err != nil {
			t.Fatal(err)
		}
	}

	// The lock file already exists, so only the atomic write can fail.
	dir := filepath.Dir(b.store.RecordPath(RecordName))
	if err := os.Chmod(dir, 0500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	st, tripped, err := b.Fail()
	if !errors.Is(err, ErrNotRecorded) {
		t.Fatalf("Fail() error = %v, want ErrNotRecorded", err)
	}
	if tripped || st.Tripped {
		t.Errorf("Fail() reported a trip that was never persisted: tripped=%v state=%+v", tripped, st)
	}
	if got := b.State(); got.Tripped || got.FailureCount != DefaultThreshold-1 {
		t.Errorf("persisted state = %+v, want %d failures and closed", got, DefaultThreshold-1)
	}
}

// TestTrippedMatchesConsecutiveFailureModel checks the breaker against a
// pure model: tripped iff some run of consecutive failures reached the
// threshold since the last reset.
func TestTrippedMatchesConsecutiveFailureModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	root := t.TempDir()
	properties.Property("sticky until reset", prop.ForAll(
		func(events []bool) bool {
			dir, err := os.MkdirTemp(root, "prop-")
			if err != nil {
				return false
			}
			b := New(storage.NewStore(storage.WithDir(dir)))

			run, tripped := 0, false
			for _, ok := range events {
				if ok {
					run = 0
					if _, err := b.RecordSuccess(); err != nil {
						return false
					}
					continue
				}
				run++
				if run >= DefaultThreshold {
					tripped = true
				}
				if _, err := b.RecordFailure(); err != nil {
					return false
				}
			}
			return b.IsTripped() == tripped
		},
		gen.SliceOfN(12, gen.Bool()),
	))

	properties.TestingRun(t)
}
