// Package session drives one interactive search: it debounces input,
// cancels superseded requests, drops stale responses and accumulates
// result pages.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
)

// Defaults for Options.
const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

// User-facing messages.
const (
	TimeoutMessage = "Search is taking longer than expected. Please try again."
	SlowWarning    = "Search is taking longer than expected"
)

// State is the position of a session in its request lifecycle.
type State string

const (
	Idle       State = "idle"
	Debouncing State = "debouncing"
	Fetching   State = "fetching"
	Settled    State = "settled"
)

// Result is one page as returned by a Fetcher.
type Result struct {
	Items    []listing.Summary
	Degraded bool
	TimedOut bool
}

// Fetcher runs a search. It must honor ctx cancellation.
type Fetcher interface {
	Search(ctx context.Context, f filters.Filters) (Result, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, f filters.Filters) (Result, error)

// Search calls fn.
func (fn FetchFunc) Search(ctx context.Context, f filters.Filters) (Result, error) {
	return fn(ctx, f)
}

// Options configures a Session.
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	// Filters is the initial search; the zero value means filters.Default().
	Filters *filters.Filters
	Clock   clock.Clock
	Logger  *zap.Logger
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	Filters  filters.Filters
	Results  []listing.Summary
	State    State
	Loading  bool
	HasMore  bool
	Error    string
	Warning  string
	Degraded bool
}

// Session is the state machine behind one search box. All methods are
// safe for concurrent use.
type Session struct {
	fetcher  Fetcher
	clk      clock.Clock
	log      *zap.Logger
	debounce time.Duration
	minQuery int

	mu        sync.Mutex
	filters   filters.Filters
	results   []listing.Summary
	signature string
	// token identifies the only request whose response may still be
	// applied. Every supersession bumps it.
	token    uint64
	timer    *clock.Timer
	cancel   context.CancelFunc
	state    State
	loading  bool
	hasMore  bool
	errMsg   string
	warning  string
	degraded bool
	closed   bool

	emitMu    sync.Mutex
	observers []func(Snapshot)
}

// New creates an idle session. Nothing is fetched until the first input
// or filter change.
func New(fetcher Fetcher, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	f := filters.Default()
	if opts.Filters != nil {
		f = *opts.Filters
	}
	return &Session{
		fetcher:  fetcher,
		clk:      opts.Clock,
		log:      opts.Logger,
		debounce: opts.Debounce,
		minQuery: opts.MinQueryLength,
		filters:  f,
		state:    Idle,
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// Observers run synchronously and must not call back into the Session.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.observers = append(s.observers, fn)
}

// OnInputChange sets the free-text query and restarts the debounce window.
func (s *Session) OnInputChange(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	f, err := s.filters.WithQuery(text)
	if err != nil {
		s.rejectLocked(err)
		s.mu.Unlock()
		s.emit()
		return
	}
	s.scheduleLocked(f)
	s.mu.Unlock()
	s.emit()
}

// UpdateFilter changes one filter by key (see filters.Filters.With) and
// restarts the debounce window. An invalid value is reported in the
// snapshot error and returned; the current search is left untouched.
func (s *Session) UpdateFilter(key, value string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	f, err := s.filters.With(key, value)
	if err != nil {
		s.rejectLocked(err)
		s.mu.Unlock()
		s.emit()
		return err
	}
	s.scheduleLocked(f)
	s.mu.Unlock()
	s.emit()
	return nil
}

// LoadMore fetches the next page of the current search at once, without
// debouncing. It does nothing while a request is pending or when the last
// page was short, and reports whether a fetch started.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	if s.closed || s.loading || !s.hasMore {
		s.mu.Unlock()
		return false
	}
	s.filters = s.filters.WithOffset(len(s.results))
	s.token++
	s.loading = true
	s.errMsg = ""
	s.startLocked(s.token)
	s.mu.Unlock()
	s.emit()
	return true
}

// Close stops the debounce timer and aborts the in-flight request. Late
// responses and timer callbacks become no-ops. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.token++
	s.stopLocked()
	s.loading = false
	s.state = Idle
	s.mu.Unlock()

	s.emitMu.Lock()
	s.observers = nil
	s.emitMu.Unlock()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Filters:  s.filters,
		Results:  s.results,
		State:    s.state,
		Loading:  s.loading,
		HasMore:  s.hasMore,
		Error:    s.errMsg,
		Warning:  s.warning,
		Degraded: s.degraded,
	}
}

// scheduleLocked supersedes any pending work with a search for f.
func (s *Session) scheduleLocked(f filters.Filters) {
	s.token++
	s.stopLocked()
	s.filters = f
	s.errMsg = ""

	if q := f.Query(); q != "" && utf8.RuneCountInString(q) < s.minQuery {
		s.results = nil
		s.signature = ""
		s.hasMore = false
		s.loading = false
		s.warning = ""
		s.degraded = false
		s.state = Idle
		return
	}

	s.loading = true
	s.state = Debouncing
	token := s.token
	s.timer = s.clk.AfterFunc(s.debounce, func() { s.fire(token) })
}

// rejectLocked reports an invalid filter change without touching the
// current search.
func (s *Session) rejectLocked(err error) {
	s.errMsg = err.Error()
}

// stopLocked disarms the timer and aborts the in-flight request.
func (s *Session) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) fire(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.token {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.startLocked(token)
	s.mu.Unlock()
	s.emit()
}

func (s *Session) startLocked(token uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Fetching
	f := s.filters
	go s.fetch(ctx, token, f)
}

func (s *Session) fetch(ctx context.Context, token uint64, f filters.Filters) {
	res, err := s.fetcher.Search(ctx, f)
	if s.apply(token, f, res, err) {
		s.emit()
	}
}

// apply installs a response if its request is still current.
func (s *Session) apply(token uint64, f filters.Filters, res Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || token != s.token {
		s.log.Debug("dropping stale search response",
			zap.Uint64("token", token),
			zap.Uint64("current", s.token),
		)
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
	s.state = Settled

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.state = Idle
			return true
		}
		s.log.Warn("search request failed", zap.String("filters", f.Signature()), zap.Error(err))
		if isTimeout(err) {
			s.errMsg = TimeoutMessage
		} else {
			s.errMsg = err.Error()
		}
		return true
	}

	sig := f.Signature()
	if sig == s.signature && f.Offset() > 0 {
		s.results = slices.Concat(s.results, res.Items)
	} else {
		s.results = slices.Clone(res.Items)
		if s.results == nil {
			s.results = []listing.Summary{}
		}
	}
	s.signature = sig
	s.hasMore = len(res.Items) >= f.Limit()
	s.errMsg = ""
	s.degraded = res.Degraded
	s.warning = ""
	if res.Degraded && res.TimedOut {
		s.warning = SlowWarning
	}
	return true
}

func (s *Session) emit() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.observers {
		fn(snap)
	}
}

// isTimeout matches context deadlines and any error exposing
// Timeout() bool, such as net.Error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
