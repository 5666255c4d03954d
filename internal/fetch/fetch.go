// Package fetch wraps remote data calls with timeouts and retries.
//
// Reads degrade to a fallback value when every attempt fails. Writes are tried once
// and their error is returned to the caller.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

// Policy bounds a remote call.
type Policy struct {
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used for zero fields of a Policy.
var DefaultPolicy = Policy{
	Timeout:         5 * time.Second,
	MaxRetries:      2,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultPolicy.Timeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPolicy.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPolicy.MaxInterval
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Result is the outcome of a read. Error is empty on success.
type Result[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the read succeeded.
func (r Result[T]) OK() bool {
	return r.Error == ""
}

// Runner executes reads and writes under a policy and records their outcome.
type Runner struct {
	policy  Policy
	metrics *metrics.Metrics
}

// NewRunner creates a Runner. Zero policy fields take DefaultPolicy values.
func NewRunner(policy Policy, m *metrics.Metrics) *Runner {
	return &Runner{policy: policy.withDefaults(), metrics: m}
}

// Query runs op with a per-attempt timeout and retries transient failures.
// When every attempt fails the result carries fallback and the last error message.
// Not-found and cancellation are not retried.
func Query[T any](ctx context.Context, r *Runner, kind string, op func(ctx context.Context) (T, error), fallback T) Result[T] {
	var data T

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()

		v, err := op(attemptCtx)
		if err == nil {
			data = v
			return nil
		}
		if permanent(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(attempt, r.policy.backOff(ctx)); err != nil {
		r.metrics.ObserveRemoteCall(kind, "fallback")
		return Result[T]{Data: fallback, Error: message(err)}
	}

	r.metrics.ObserveRemoteCall(kind, "ok")
	return Result[T]{Data: data}
}

// Mutate runs op once with a timeout and returns its error.
func Mutate[T any](ctx context.Context, r *Runner, kind string, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	v, err := op(ctx)
	if err != nil {
		r.metrics.ObserveRemoteCall(kind, "error")
		var zero T
		return zero, fmt.Errorf("%s: %w", kind, err)
	}

	r.metrics.ObserveRemoteCall(kind, "ok")
	return v, nil
}

func permanent(ctx context.Context, err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrInvalidArgument) ||
		errors.Is(err, context.Canceled) ||
		ctx.Err() != nil
}

func message(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
