package apperr

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = time.Second
)

// Sleeper waits for d or until ctx is done. Tests swap it for a fake clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds a Retry call. MaxAttempts counts every try, the first one included.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy is 4 tries with waits of 1s, 2s and 4s in between.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// NewBackOff returns the wait schedule: BaseDelay doubling after every
// attempt, without jitter.
func (p Policy) NewBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = p.BaseDelay << min(max(p.MaxAttempts, 1), 32)
	bo.Reset()
	return bo
}

// Backoff returns the wait after the attempt with the given zero-based index.
func (p Policy) Backoff(attempt int) time.Duration {
	bo := p.NewBackOff()
	wait := bo.NextBackOff()
	for range attempt {
		wait = bo.NextBackOff()
	}
	return wait
}

type retryConfig struct {
	policy  Policy
	sleep   Sleeper
	onRetry func(attempt int, err *Error, wait time.Duration)
}

type RetryOption func(*retryConfig)

func WithPolicy(p Policy) RetryOption {
	return func(c *retryConfig) {
		c.policy = p
	}
}

func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) {
		c.policy.MaxAttempts = n
	}
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.policy.BaseDelay = d
	}
}

func WithSleeper(s Sleeper) RetryOption {
	return func(c *retryConfig) {
		c.sleep = s
	}
}

// WithOnRetry registers a callback invoked before each wait.
func WithOnRetry(fn func(attempt int, err *Error, wait time.Duration)) RetryOption {
	return func(c *retryConfig) {
		c.onRetry = fn
	}
}

// Retry runs op until it succeeds, fails with a non-retryable kind, or runs out
// of attempts. Every failure is classified; the returned error is always an *Error.
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...RetryOption) (T, error) {
	cfg := retryConfig{policy: DefaultPolicy(), sleep: sleepContext}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.policy.MaxAttempts < 1 {
		cfg.policy.MaxAttempts = 1
	}

	bo := cfg.policy.NewBackOff()

	var zero T
	var last *Error
	for attempt := 0; attempt < cfg.policy.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}

		last = Classify(err)
		if !last.Kind.Retryable() {
			return zero, last
		}
		if attempt == cfg.policy.MaxAttempts-1 {
			break
		}

		wait := bo.NextBackOff()
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, last, wait)
		}
		if err := cfg.sleep(ctx, wait); err != nil {
			return zero, last
		}
	}
	return zero, last
}

// Do is Retry for operations without a result.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...RetryOption) error {
	_, err := Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
