// Package probe reports the latest build/test outcome as an advisory signal
// for completion checks. It never blocks: every check runs under a short
// fixed deadline and anything it cannot establish reads as StatusUnknown.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

const (
	// RecordName is the build result record name.
	RecordName = "build_result"

	// DefaultTimeout bounds a whole Check.
	DefaultTimeout = 2 * time.Second

	// DefaultMaxAge is how long a build result stays meaningful.
	DefaultMaxAge = 30 * time.Minute
)

// Status is a probe outcome.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Result is a build outcome plus when it was observed.
type Result struct {
	Status  Status    `json:"status" yaml:"status"`
	At      time.Time `json:"at" yaml:"at"`
	Command string    `json:"command,omitempty" yaml:"command,omitempty"`
	Detail  string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Dialer opens network connections; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Probe reads build results and optionally checks a build host.
type Probe struct {
	store   *storage.Store
	rec     *storage.Record[Result]
	host    string
	timeout time.Duration
	maxAge  time.Duration
	dialer  Dialer
	now     func() time.Time
}

// Option configures a Probe.
type Option func(*Probe)

// WithBuildHost sets a host:port that must be reachable for a result to count.
func WithBuildHost(hostport string) Option {
	return func(p *Probe) {
		p.host = hostport
	}
}

// WithTimeout sets the deadline for a whole Check.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMaxAge sets how old a result may be before it is ignored.
func WithMaxAge(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// WithDialer overrides the network dialer.
func WithDialer(d Dialer) Option {
	return func(p *Probe) {
		p.dialer = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Probe) {
		p.now = now
	}
}

// New creates a probe backed by s.
func New(s *storage.Store, opts ...Option) *Probe {
	p := &Probe{
		store:   s,
		rec:     storage.NewRecord[Result](s, RecordName),
		timeout: DefaultTimeout,
		maxAge:  DefaultMaxAge,
		dialer:  &net.Dialer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Record persists a build outcome.
func (p *Probe) Record(passed bool, command, detail string) (Result, error) {
	r := Result{
		Status:  StatusFail,
		At:      p.now().UTC(),
		Command: command,
		Detail:  detail,
	}
	if passed {
		r.Status = StatusPass
	}
	if err := p.rec.Save(r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// Last returns the stored result without freshness or reachability checks.
func (p *Probe) Last() Result {
	return p.rec.Load(Result{Status: StatusUnknown})
}

// Check returns the latest build result when it is fresh and, if a build
// host is configured, the host answers within the deadline. Otherwise it
// returns StatusUnknown.
func (p *Probe) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var result Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		result = p.Last()
		return nil
	})
	if p.host != "" {
		g.Go(func() error {
			return p.reach(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		detail := "build probe interrupted"
		if errors.Is(err, ErrHostUnreachable) {
			detail = "build host unreachable"
		}
		return Result{Status: StatusUnknown, Detail: detail}
	}

	switch {
	case result.Status != StatusPass && result.Status != StatusFail:
		return Result{Status: StatusUnknown, Detail: "no build result recorded"}
	case p.now().Sub(result.At) > p.maxAge:
		return Result{Status: StatusUnknown, At: result.At, Detail: "build result is stale"}
	}
	return result
}

func (p *Probe) reach(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.host)
	if err != nil {
		p.store.Logger().Debug("build host unreachable", zap.String("host", p.host), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrHostUnreachable, p.host, err)
	}
	_ = conn.Close() //nolint:errcheck // reachability only
	return nil
}

// Signal is Check for callers that only act on a usable result. Unknown
// results come back as ErrProbeUnavailable wrapping the reason.
func (p *Probe) Signal(ctx context.Context) (Result, error) {
	r := p.Check(ctx)
	if r.Status == StatusUnknown {
		return r, fmt.Errorf("%w: %s", ErrProbeUnavailable, r.Detail)
	}
	return r, nil
}
