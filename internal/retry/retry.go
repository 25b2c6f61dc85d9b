// Package retry wraps an asynchronous operation with deterministic
// exponential backoff. No jitter is applied: there is no fan-out of many
// concurrent retriers here, so thundering-herd amplification is not a
// concern and determinism keeps the behavior testable.
package retry

import (
	"context"
	"fmt"
	"time"

	"microtask/internal/core/domain/exceptions"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// State is the caller-visible progress of one retryable operation. It is
// reset implicitly by starting a new Do call.
type State struct {
	Attempt   int
	LastError error
	Retrying  bool
}

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OnState, if set, observes every attempt transition.
	OnState func(State)
	// Sleep overrides the delay between attempts. Tests inject a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

// Do invokes op up to MaxAttempts times, sleeping min(base·2^(k-1), max)
// after the k-th failure. It returns the first successful result, or the
// zero value and an error wrapping exceptions.ErrRetriesExhausted together
// with the last attempt's error. Context cancellation aborts the wait.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	var zero T
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			report(opts, State{Attempt: attempt})
			return result, nil
		}
		lastErr = err
		report(opts, State{Attempt: attempt, LastError: err, Retrying: attempt < opts.MaxAttempts})

		if attempt == opts.MaxAttempts {
			break
		}
		if err := opts.Sleep(ctx, Delay(attempt, opts.BaseDelay, opts.MaxDelay)); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", exceptions.ErrRetriesExhausted, opts.MaxAttempts, lastErr)
}

// Delay returns the backoff delay after the attempt-th failure:
// min(base·2^(attempt-1), max).
func Delay(attempt int, base, max time.Duration) time.Duration {
	d := base << (attempt - 1)
	if d <= 0 || d > max {
		return max
	}
	return d
}

func report(opts Options, st State) {
	if opts.OnState != nil {
		opts.OnState(st)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
