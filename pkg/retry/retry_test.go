package retry_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tutorkit/campus-gateway/pkg/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fastPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}
}

func TestPolicyDelaySchedule(t *testing.T) {
	t.Parallel()

	p := retry.Policy{MaxRetries: 3, InitialDelay: 2 * time.Second, Multiplier: 2}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestPolicyDelayDefaults(t *testing.T) {
	t.Parallel()

	var p retry.Policy
	if got := p.Delay(1); got != 2*time.Second {
		t.Fatalf("zero policy Delay(1) = %s, want 2s", got)
	}
	if got := p.Delay(3); got != 8*time.Second {
		t.Fatalf("zero policy Delay(3) = %s, want 8s", got)
	}
}

func TestDoRetriesUntilExhausted(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	rateLimited := &retry.RateLimitedError{Err: errors.New("quota exceeded")}

	_, err := retry.Do(context.Background(), discardLogger(), fastPolicy(3), func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return "", rateLimited
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected ErrExhausted in chain, got %v", err)
	}
	var rle *retry.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected last rate-limit error in chain, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 4 {
		t.Fatalf("expected 4 attempts (1 initial + 3 retries), got %d", calls)
	}
}

func TestDoZeroMaxRetriesAttemptsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := retry.Do(context.Background(), discardLogger(), fastPolicy(0), func(context.Context) (string, error) {
		calls++
		return "", &retry.RateLimitedError{Err: errors.New("quota")}
	})
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("maxRetries=0: expected exactly 1 attempt, got %d", calls)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := errors.New("http 500: internal error")

	_, err := retry.Do(context.Background(), discardLogger(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected the permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
}

func TestDoSucceedsAfterRateLimited(t *testing.T) {
	t.Parallel()

	calls := 0
	out, err := retry.Do(context.Background(), discardLogger(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", &retry.RateLimitedError{Err: errors.New("try later")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoRetriesOnMessageSignature(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := retry.Do(context.Background(), discardLogger(), fastPolicy(1), func(context.Context) (string, error) {
		calls++
		return "", errors.New("rpc error: RESOURCE_EXHAUSTED")
	})
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestDoReportsEachRetry(t *testing.T) {
	t.Parallel()

	p := fastPolicy(2)
	var delays []time.Duration
	p.OnRetry = func(_ int, delay time.Duration) {
		delays = append(delays, delay)
	}

	_, _ = retry.Do(context.Background(), discardLogger(), p, func(context.Context) (string, error) {
		return "", &retry.RateLimitedError{Err: errors.New("quota")}
	})

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d retries, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("retry %d delay = %s, want %s", i+1, delays[i], want[i])
		}
	}
}

func TestDoWarnsWithRetriesRemainingAfterEach(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, _ = retry.Do(context.Background(), logger, fastPolicy(2), func(context.Context) (string, error) {
		return "", &retry.RateLimitedError{Err: errors.New("quota")}
	})

	logged := buf.String()
	if got := strings.Count(logged, "backing off before retry"); got != 2 {
		t.Fatalf("expected 2 retry warnings, got %d:\n%s", got, logged)
	}
	// attemptsLeft counts retries still available after the announced one.
	if !strings.Contains(logged, "attemptsLeft=1") {
		t.Fatalf("first warning should report 1 retry left:\n%s", logged)
	}
	if !strings.Contains(logged, "attemptsLeft=0") {
		t.Fatalf("final warning should report 0 retries left:\n%s", logged)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{MaxRetries: 3, InitialDelay: time.Hour, Multiplier: 2}
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := retry.Do(ctx, discardLogger(), p, func(context.Context) (string, error) {
			calls++
			return "", &retry.RateLimitedError{Err: errors.New("quota")}
		})
		done <- err
	}()

	// Let the first attempt fail and the backoff sleep begin.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want bool
	}{
		{name: "nil", in: nil, want: false},
		{name: "marker", in: &retry.RateLimitedError{Err: errors.New("quota")}, want: true},
		{name: "wrapped_marker", in: errors.Join(errors.New("outer"), &retry.RateLimitedError{}), want: true},
		{name: "status_text", in: errors.New("googleapi: Error 429: too many requests"), want: true},
		{name: "grpc_text", in: errors.New("RESOURCE_EXHAUSTED: quota exceeded"), want: true},
		{name: "server_error", in: errors.New("http 500"), want: false},
		{name: "auth_error", in: errors.New("API key not valid"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsRateLimited(tt.in); got != tt.want {
				t.Fatalf("IsRateLimited(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
