// Package viewport schedules map-view fetches driven by viewport changes:
// bursts of changes are debounced and at most one fetch is outstanding.
package viewport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

// DefaultWindow is the debounce quiet period.
const DefaultWindow = 500 * time.Millisecond

// State is the scheduler lifecycle state.
type State int

const (
	Idle State = iota
	Pending
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Fetcher executes one map-view query.
type Fetcher interface {
	Fetch(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error)

func (f FetcherFunc) Fetch(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error) {
	return f(ctx, q)
}

// Options configures a Scheduler. Zero values take defaults.
type Options struct {
	Window time.Duration
	Clock  clock.Clock
	// Timeout bounds a single fetch; zero means no bound.
	Timeout time.Duration
	// OnResults receives the new rendered result set after a successful fetch.
	OnResults func(q domain.ViewportQuery, results []domain.MapResult)
	// OnError receives fetch failures. The rendered set is left unchanged.
	OnError func(q domain.ViewportQuery, err error)
	Logger  *slog.Logger
}

// Scheduler is a single-client actor turning viewport changes into fetches.
// Callbacks run on the fetch goroutine, never while the scheduler lock is held.
type Scheduler struct {
	fetcher Fetcher
	opts    Options

	mu       sync.Mutex
	state    State
	latest   domain.ViewportQuery
	timer    *clock.Timer
	gen      uint64
	closed   bool
	rendered []domain.MapResult
	fetches  int
}

// New creates a Scheduler in the Idle state.
func New(fetcher Fetcher, opts Options) *Scheduler {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{fetcher: fetcher, opts: opts}
}

// ViewportChanged records a new viewport. It (re)starts the debounce timer
// unless a fetch is in flight, in which case the event is dropped and false
// is returned.
func (s *Scheduler) ViewportChanged(q domain.ViewportQuery) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == InFlight {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.latest = q
	s.state = Pending
	s.timer = s.opts.Clock.AfterFunc(s.opts.Window, func() { s.fire(gen) })
	return true
}

// fire runs when the debounce window of generation gen elapses.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || s.state != Pending || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = InFlight
	s.fetches++
	q := s.latest
	s.mu.Unlock()

	go s.run(q)
}

func (s *Scheduler) run(q domain.ViewportQuery) {
	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	results, err := s.fetcher.Fetch(ctx, q)

	s.mu.Lock()
	s.state = Idle
	closed := s.closed
	if err == nil {
		s.rendered = results
	}
	s.mu.Unlock()

	if closed {
		return
	}
	if err != nil {
		s.opts.Logger.Warn("viewport fetch failed, keeping previous results", "error", err)
		if s.opts.OnError != nil {
			s.opts.OnError(q, err)
		}
		return
	}
	if s.opts.OnResults != nil {
		s.opts.OnResults(q, results)
	}
}

// Close cancels any pending debounce timer and suppresses further
// callbacks. A fetch already in flight runs to completion.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == Pending {
		s.state = Idle
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results returns the last successfully fetched result set.
func (s *Scheduler) Results() []domain.MapResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered
}

// Fetches returns how many fetches have been issued.
func (s *Scheduler) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
