package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config controls the backoff schedule for Do and DoWithResult.
type Config struct {
	// MaxAttempts is the total number of calls, including the first.
	// Zero or negative means run exactly once.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the growing delay.
	MaxDelay time.Duration
	// Multiplier scales the delay after each failed attempt.
	Multiplier float64
	// AddJitter spreads sleeps by up to 25% to avoid synchronized retries.
	AddJitter bool
}

// DefaultConfig is the schedule the key-value stores use: three attempts
// with 100ms..5s exponential backoff and jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (cfg *Config) check() error {
	switch {
	case cfg.InitialDelay < 0:
		return errors.New("retry: InitialDelay cannot be negative")
	case cfg.MaxDelay < 0:
		return errors.New("retry: MaxDelay cannot be negative")
	case cfg.Multiplier < 0:
		return errors.New("retry: Multiplier cannot be negative")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return nil
}

// nonRetryable marks errors that Do must not retry.
type nonRetryable struct {
	err error
}

func (e *nonRetryable) Error() string { return fmt.Sprintf("non-retryable: %v", e.err) }
func (e *nonRetryable) Unwrap() error { return e.err }

// NonRetryable marks err so Do fails immediately instead of retrying.
// A nil err stays nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryable{err: err}
}

// IsNonRetryable reports whether err carries the NonRetryable marker.
func IsNonRetryable(err error) bool {
	var nr *nonRetryable
	return errors.As(err, &nr)
}

// Do calls fn until it succeeds, the schedule is exhausted, ctx is
// cancelled, or fn returns a NonRetryable error.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.check(); err != nil {
		return err
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
		}

		if err := sleep(ctx, cfg.sleepFor(delay)); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
		delay = cfg.nextDelay(delay)
	}
}

// DoWithResult is Do for functions that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

func (cfg Config) sleepFor(delay time.Duration) time.Duration {
	if !cfg.AddJitter {
		return delay
	}
	return delay + rand.N(delay/4+1)
}

func (cfg Config) nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * cfg.Multiplier)
	if next > cfg.MaxDelay || next < delay {
		return cfg.MaxDelay
	}
	return next
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
