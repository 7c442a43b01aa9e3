package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
)

// ErrRetriesExhausted is returned when a unit of work kept failing with
// transient errors until its attempts ran out.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy retries one unit of work with a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	// Transient decides which errors are worth another attempt. Nil retries
	// every error except context cancellation.
	Transient func(error) bool
}

func (p RetryPolicy) normalized() RetryPolicy {
	n := p
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = defaultMaxAttempts
	}
	if n.Delay < 0 {
		n.Delay = defaultRetryDelay
	}
	return n
}

func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Transient == nil {
		return true
	}
	return p.Transient(err)
}

// Do runs op until it succeeds, fails with a non-transient error, or uses up
// MaxAttempts. Each attempt is expected to acquire a fresh connection.
func (p RetryPolicy) Do(ctx context.Context, what string, op func(ctx context.Context) error) error {
	p = p.normalized()

	attempts := 0
	permanent := false
	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !p.retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("[Retry] Attempt failed, retrying",
			"work", what,
			"attempt", attempts,
			"max_attempts", p.MaxAttempts,
			"retry_in", wait,
			"error", err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts-1)),
		ctx,
	)
	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%s: %w after %d attempts: %w", what, ErrRetriesExhausted, attempts, err)
	}
}
