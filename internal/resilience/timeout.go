// Package resilience bounds and sequences calls to a slow backend.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/db"
)

// Op is a cancellable operation producing a T.
type Op[T any] func(ctx context.Context) (T, error)

// Race runs op under a child context and returns whichever happens first:
// op's own result, the deadline, or cancellation of ctx. When the deadline
// wins, the child context is cancelled so the underlying request can
// abort, and a timeout *db.QueryError wrapping db.ErrDeadline is returned.
// A deadline <= 0 disables the timer.
func Race[T any](ctx context.Context, clk clock.Clock, deadline time.Duration, op Op[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(opCtx)
		done <- result{v: v, err: err}
	}()

	var expired chan struct{}
	if deadline > 0 {
		expired = make(chan struct{})
		t := clk.AfterFunc(deadline, func() { close(expired) })
		defer t.Stop()
	}

	select {
	case r := <-done:
		return r.v, r.err
	case <-expired:
		return zero, db.NewError(db.KindTimeout, "deadline",
			fmt.Sprintf("no answer within %s", deadline), db.ErrDeadline)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WithTimeout is Race with a fallback: an elapsed deadline resolves to
// fallback and a nil error. Failures of op itself, and cancellation of
// ctx, are returned unchanged.
func WithTimeout[T any](ctx context.Context, clk clock.Clock, deadline time.Duration, fallback T, op Op[T]) (T, error) {
	v, err := Race(ctx, clk, deadline, op)
	if err != nil && errors.Is(err, db.ErrDeadline) && ctx.Err() == nil {
		return fallback, nil
	}
	return v, err
}
