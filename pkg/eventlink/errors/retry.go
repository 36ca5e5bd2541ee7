package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds how a send is retried.
type RetryConfig struct {
	// MaxAttempts counts the first try. Zero or less means one attempt.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// Jitter spreads each wait by up to this fraction either way.
	Jitter float64

	// Retryable overrides IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry is the publish retry policy. Publishing is fire-and-forget,
// so the budget is small: a few quick attempts, then the caller sees the error.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxAttempts: 1}

// Backoff returns the wait after the given failed attempt (1-based), before
// jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	wait := c.InitialBackoff
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * factor)
		if c.MaxBackoff > 0 && wait >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 {
		wait = min(wait, c.MaxBackoff)
	}
	return wait
}

// Retry runs send until it succeeds, fails with a non-retryable error, runs
// out of attempts, or ctx is done. Every failure comes back as a
// *CategorizedError carrying the number of attempts made.
func Retry(ctx context.Context, cfg RetryConfig, op string, send func(context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &CategorizedError{Err: err, Category: CategoryPermanent, Retries: attempt - 1, Context: op}
		}

		last = send(ctx)
		if last == nil {
			return nil
		}
		if !retryable(last) {
			return &CategorizedError{Err: last, Category: Categorize(last), Retries: attempt, Context: op}
		}
		if attempt == attempts {
			break
		}

		wait := jitter(cfg.Backoff(attempt), cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, last, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Retries: attempt, Context: op}
		case <-timer.C:
		}
	}

	return &CategorizedError{
		Err:      last,
		Category: CategoryTransient,
		Retries:  attempts,
		Context:  op + ": attempts exhausted",
	}
}

func jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || base <= 0 {
		return base
	}
	spread := float64(base) * fraction * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + spread)
}
