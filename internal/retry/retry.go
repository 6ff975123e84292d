package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries an operation a fixed number of times with a fixed delay
// between attempts. Retries are time-delayed only; this is a low-volume
// batch job, not a high-throughput service.
type Policy struct {
	maxAttempts int
	delay       time.Duration
	retryable   func(error) bool
}

// Option configures a Policy.
type Option func(*Policy)

// WithRetryable sets the predicate deciding whether an error is retried.
// When unset, every error is retried.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) {
		if fn != nil {
			p.retryable = fn
		}
	}
}

// NewPolicy constructs a Policy.
func NewPolicy(maxAttempts int, delay time.Duration, opts ...Option) (*Policy, error) {
	if maxAttempts < 1 {
		return nil, errors.New("retry: max attempts must be at least 1")
	}
	if delay < 0 {
		return nil, errors.New("retry: negative delay")
	}
	p := &Policy{
		maxAttempts: maxAttempts,
		delay:       delay,
		retryable:   func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MaxAttempts returns the configured attempt limit.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// Do runs op until it succeeds, the attempt limit is reached, a
// non-retryable error occurs, or the context is cancelled. It returns the
// last error wrapped with the attempt count.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p == nil {
		return errors.New("retry: nil policy")
	}
	var last error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !p.retryable(last) {
			return last
		}
		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return fmt.Errorf("retry: %d attempts exhausted: %w", p.maxAttempts, last)
}
