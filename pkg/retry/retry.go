// Package retry wraps calls to the generative backend with bounded
// exponential-backoff retries on quota exhaustion.
//
// Only rate limiting is retried. Auth failures, malformed requests, and
// network-down errors propagate immediately so callers can decide whether to
// degrade to fallback data.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// ErrExhausted is wrapped into the error returned by Do when every attempt
// failed with a rate-limit classification. The last backend error is also
// wrapped, so callers can unwrap either.
var ErrExhausted = errors.New("rate limit retries exhausted")

// Policy holds the tuning parameters for Do. Zero delay and multiplier values
// are replaced with the defaults documented per field.
type Policy struct {
	// MaxRetries is the number of retry attempts after the first failure.
	// Total attempts = MaxRetries + 1. Zero means a single attempt with no
	// retries; negatives are clamped to zero. Callers wanting a default
	// budget set it at their config layer.
	MaxRetries int

	// InitialDelay is the wait before the first retry. Default: 2s.
	InitialDelay time.Duration

	// Multiplier is the exponential growth factor applied on successive
	// retries. Default: 2.
	Multiplier float64

	// OnRetry, when set, is invoked before each backoff sleep with the
	// 1-indexed retry attempt and the computed delay. Used for diagnostics
	// and retry counters.
	OnRetry func(attempt int, delay time.Duration)
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 2 * time.Second
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2
	}
	return p
}

// Delay returns the wait before retry attempt k (1-indexed):
// InitialDelay * Multiplier^(k-1). The schedule is deterministic; no jitter
// is applied, so concurrent callers back off in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
}

// RateLimitedError marks a failure as quota exhaustion so Do will back off and
// retry it. Backend clients wrap their provider-specific 429 errors in this
// type.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string {
	if e == nil || e.Err == nil {
		return "rate limited"
	}
	return e.Err.Error()
}

func (e *RateLimitedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsRateLimited reports whether err carries a rate-limit signature: a
// RateLimitedError in its chain, or "429" / "RESOURCE_EXHAUSTED" in its text.
// The text match is brittle against upstream wording changes but is kept as a
// second signal for errors that surface without a typed code.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitedError
	if errors.As(err, &rle) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// Do invokes op, retrying rate-limited failures with exponential backoff up to
// policy.MaxRetries extra attempts. Any other failure is returned immediately.
// The backoff sleep is cut short when ctx is cancelled.
//
// Retries are strictly sequential; one warning line is logged per retry with
// the computed delay and the attempts remaining.
func Do[T any](ctx context.Context, logger *slog.Logger, policy Policy, op func(context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)
			// attemptsLeft counts the retries still available after this one.
			logger.Warn("rate limited, backing off before retry",
				"delay", delay,
				"attemptsLeft", policy.MaxRetries-attempt,
			)
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, delay)
			}
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			}
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, policy.MaxRetries+1, lastErr)
}
