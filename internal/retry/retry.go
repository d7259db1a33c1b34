package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// BackoffFunc returns the delay to wait after the given zero-based failed attempt.
type BackoffFunc func(attempt int) time.Duration

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration
	// Backoff overrides the default exponential backoff when set.
	Backoff BackoffFunc
}

// Attempts is the total number of calls WithRetry makes before giving up.
func (c Config) Attempts() int {
	return c.MaxRetries + 1
}

// Fixed waits the same delay between every attempt.
func Fixed(delay time.Duration) BackoffFunc {
	return func(int) time.Duration { return delay }
}

// Exponential doubles base on each attempt up to max, with jitter.
func Exponential(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return calculateBackoffDelay(attempt, base, max)
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. WithRetry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func WithRetry[T any](ctx context.Context, config Config, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	backoff := config.Backoff
	if backoff == nil {
		backoff = Exponential(config.BaseDelay, config.MaxDelay)
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		opCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		result, err := operation(opCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		if IsPermanent(err) {
			log.Debug().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Operation failed with permanent error")
			return zero, err
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.Attempts()).
			Msg("Operation failed")

		if attempt < config.MaxRetries {
			delay := backoff(attempt)
			log.Debug().
				Dur("delay", delay).
				Int("next_attempt", attempt+2).
				Msg("Retrying after delay")

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return zero, fmt.Errorf("operation failed after %d attempts: %w", config.Attempts(), err)
	}
	return zero, fmt.Errorf("unexpected: exceeded retry loop")
}

func calculateBackoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	// Cap attempt at 30 to prevent overflow (2^30 is safe for int)
	safeAttempt := min(attempt, 30)
	multiplier := 1 << safeAttempt
	delay := time.Duration(multiplier) * baseDelay

	if delay > maxDelay {
		delay = maxDelay
	}

	// random between 0.5x and 1.5x
	jitter := 0.5 + rand.Float64()
	delay = time.Duration(float64(delay) * jitter)

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
