package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// --- Mocks ---

type reply struct {
	res Result
	err error
}

// call is one request observed by fakeFetcher. It blocks until the test
// replies, ignoring cancellation so late responses can be simulated.
type call struct {
	ctx   context.Context
	f     filters.Filters
	reply chan reply
}

func (c *call) respond(items ...listing.Summary) {
	c.reply <- reply{res: Result{Items: items}}
}

func (c *call) fail(err error) {
	c.reply <- reply{err: err}
}

type fakeFetcher struct {
	calls chan *call
	done  chan struct{}
}

func (f *fakeFetcher) Search(ctx context.Context, flt filters.Filters) (Result, error) {
	c := &call{ctx: ctx, f: flt, reply: make(chan reply, 1)}
	select {
	case f.calls <- c:
	case <-f.done:
		return Result{}, context.Canceled
	}
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-f.done:
		return Result{}, context.Canceled
	}
}

type fixture struct {
	s       *Session
	fetcher *fakeFetcher
	clk     *clock.FakeClock
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, initial *filters.Filters) *fixture {
	t.Helper()
	fetcher := &fakeFetcher{calls: make(chan *call, 8), done: make(chan struct{})}
	clk := clock.Fake(epoch)
	core, logs := observer.New(zap.DebugLevel)

	s := New(fetcher, Options{
		Debounce:       300 * time.Millisecond,
		MinQueryLength: 2,
		Filters:        initial,
		Clock:          clk,
		Logger:         zap.New(core),
	})
	t.Cleanup(func() {
		s.Close()
		close(fetcher.done)
	})
	return &fixture{s: s, fetcher: fetcher, clk: clk, logs: logs}
}

// nextCall waits for the fetcher to receive a request.
func (fx *fixture) nextCall(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-fx.fetcher.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no request reached the fetcher")
		return nil
	}
}

// noCall asserts that no request reached the fetcher.
func (fx *fixture) noCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-fx.fetcher.calls:
		t.Fatalf("unexpected request for %q", c.f.Query())
	default:
	}
}

// settled waits until the session has no request pending.
func (fx *fixture) settled(t *testing.T) Snapshot {
	t.Helper()
	waitFor(t, func() bool { return !fx.s.Snapshot().Loading })
	return fx.s.Snapshot()
}

func (fx *fixture) dropped() int {
	return fx.logs.FilterMessage("dropping stale search response").Len()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func item(id string) listing.Summary {
	return listing.Summary{ID: id, Title: "Bot " + id}
}

func ids(items []listing.Summary) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
