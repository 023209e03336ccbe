package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/agentmart/internal/clock"
)

// ErrExhausted is returned by FirstSuccess when every tier failed.
var ErrExhausted = errors.New("resilience: all tiers failed")

// Tier is one attempt level of a degradation chain.
type Tier[T any] struct {
	Name     string
	Deadline time.Duration
	Attempt  Op[T]
}

// TierError records why a tier did not answer.
type TierError struct {
	Tier string
	Err  error
}

// Result reports which tier answered and the failures before it.
type Result[T any] struct {
	Value    T
	Tier     string
	Failures []TierError
}

// FirstSuccess tries tiers strictly in order, racing each against its own
// deadline. The first tier that returns without error wins; an empty value
// is a success. Cancellation of ctx stops the chain with ctx's error.
// When every tier fails the error wraps ErrExhausted and the last failure.
func FirstSuccess[T any](ctx context.Context, clk clock.Clock, tiers []Tier[T]) (Result[T], error) {
	var res Result[T]
	var lastErr error

	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		v, err := Race(ctx, clk, tier.Deadline, tier.Attempt)
		if err == nil {
			res.Value = v
			res.Tier = tier.Name
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		res.Failures = append(res.Failures, TierError{Tier: tier.Name, Err: err})
		lastErr = err
	}

	if lastErr == nil {
		return res, ErrExhausted
	}
	return res, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
