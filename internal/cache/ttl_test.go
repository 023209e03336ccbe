package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/metrics"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, clk clock.Clock, size int) *TTL[string] {
	t.Helper()
	c, err := New[string](Options{
		Name:          t.Name(),
		Size:          size,
		SweepInterval: 30 * time.Second,
		Clock:         clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

type countingLoader struct {
	calls int
	value string
	err   error
}

func (l *countingLoader) load(context.Context) (string, error) {
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	return fmt.Sprintf("%s#%d", l.value, l.calls), nil
}

func TestGetOrLoad_LoadsOnceWithinTTL(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 16)
	l := &countingLoader{value: "page"}
	ctx := context.Background()

	first, err := c.GetOrLoad(ctx, "q=bot", 2*time.Minute, l.load)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(119 * time.Second)
	second, err := c.GetOrLoad(ctx, "q=bot", 2*time.Minute, l.load)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if l.calls != 1 {
		t.Errorf("loader calls = %d, want 1", l.calls)
	}
	if first != second {
		t.Errorf("second read = %q, want cached %q", second, first)
	}
}

func TestGetOrLoad_ReloadsAfterTTL(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 16)
	l := &countingLoader{value: "page"}
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, "k", 2*time.Minute, l.load)
	clk.Advance(2 * time.Minute)
	got, _ := c.GetOrLoad(ctx, "k", 2*time.Minute, l.load)

	if l.calls != 2 {
		t.Errorf("loader calls = %d, want 2", l.calls)
	}
	if got != "page#2" {
		t.Errorf("got %q, want fresh value", got)
	}
}

func TestGetOrLoad_FailureNotCached(t *testing.T) {
	c := newTestCache(t, clock.Fake(epoch), 16)
	boom := errors.New("backend down")
	l := &countingLoader{err: boom}
	ctx := context.Background()

	if _, err := c.GetOrLoad(ctx, "k", time.Minute, l.load); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failure must not be cached, len = %d", c.Len())
	}

	l.err = nil
	l.value = "ok"
	if _, err := c.GetOrLoad(ctx, "k", time.Minute, l.load); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if l.calls != 2 {
		t.Errorf("loader calls = %d, want 2", l.calls)
	}
}

func TestGet_ExpiredEntryRemoved(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 16)
	c.Set("k", "v", time.Minute)
	clk.Advance(time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry must not be served")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on lookup, len = %d", c.Len())
	}
	if v := testutil.ToFloat64(metrics.CacheRequestsTotal.WithLabelValues(t.Name(), "expired")); v != 1 {
		t.Errorf("expired counter = %f, want 1", v)
	}
}

func TestSet_LazySweep(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 16)

	c.Set("a", "1", 10*time.Second)
	c.Set("b", "2", 10*time.Second)
	clk.Advance(20 * time.Second)

	c.Set("c", "3", time.Minute)
	if c.Len() != 3 {
		t.Fatalf("sweep ran before its interval, len = %d", c.Len())
	}

	clk.Advance(10 * time.Second)
	c.Set("d", "4", time.Minute)
	if c.Len() != 2 {
		t.Errorf("len after sweep = %d, want 2", c.Len())
	}
}

func TestSet_BoundedSize(t *testing.T) {
	c := newTestCache(t, clock.Fake(epoch), 2)
	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)
	c.Set("c", "3", time.Hour)

	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("least recently used entry should be evicted")
	}
}

func TestSet_NonPositiveTTL(t *testing.T) {
	c := newTestCache(t, clock.Fake(epoch), 4)
	c.Set("k", "v", 0)
	if c.Len() != 0 {
		t.Error("zero ttl must not store")
	}
}

func TestSweepAndClear(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 8)
	c.Set("short", "1", time.Second)
	c.Set("long", "2", time.Hour)
	clk.Advance(time.Second)

	if n := c.Sweep(); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len after Clear = %d", c.Len())
	}
}

func TestRunSweeper_SweepsAndClearsOnStop(t *testing.T) {
	clk := clock.Fake(epoch)
	c := newTestCache(t, clk, 8)
	c.Set("short", "1", time.Second)
	c.Set("long", "2", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunSweeper(ctx)
		close(done)
	}()

	clk.WaitForTimers(1)
	clk.Advance(30 * time.Second)
	clk.WaitForTimers(1)
	if c.Len() != 1 {
		t.Errorf("len after sweep = %d, want 1", c.Len())
	}

	cancel()
	<-done
	if c.Len() != 0 {
		t.Errorf("len after stop = %d, want 0", c.Len())
	}
}

func TestEntry_Expired(t *testing.T) {
	e := Entry[int]{Value: 1, InsertedAt: epoch, TTL: time.Minute}
	if e.Expired(epoch.Add(59 * time.Second)) {
		t.Error("entry expired early")
	}
	if !e.Expired(epoch.Add(time.Minute)) {
		t.Error("entry must expire at now - insertedAt == ttl")
	}
}
