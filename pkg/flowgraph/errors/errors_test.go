package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type flakyErr struct{ transient bool }

func (e flakyErr) Error() string   { return "provider failure" }
func (e flakyErr) Transient() bool { return e.transient }

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryTransient, "transient"},
		{CategoryPermanent, "permanent"},
		{CategoryInvalidOutput, "invalid_output"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.category.String(); got != tt.expected {
				t.Errorf("Category(%d).String() = %s, want %s", tt.category, got, tt.expected)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryPermanent},
		{"HTTP 429", &HTTPError{StatusCode: 429}, CategoryTransient},
		{"HTTP 503", &HTTPError{StatusCode: 503}, CategoryTransient},
		{"HTTP 529 overloaded", &HTTPError{StatusCode: 529}, CategoryTransient},
		{"HTTP 500", &HTTPError{StatusCode: 500}, CategoryTransient},
		{"HTTP 401", &HTTPError{StatusCode: 401}, CategoryPermanent},
		{"HTTP 400", &HTTPError{StatusCode: 400}, CategoryPermanent},
		{"wrapped HTTP 504", fmt.Errorf("complete: %w", &HTTPError{StatusCode: 504}), CategoryTransient},
		{"JSON parse error", &JSONParseError{Message: "unexpected token"}, CategoryInvalidOutput},
		{"validation error", &ValidationError{Message: "missing field"}, CategoryInvalidOutput},
		{"timeout error", &TimeoutError{Operation: "api call", Duration: "30s"}, CategoryTransient},
		{"deadline exceeded", context.DeadlineExceeded, CategoryTransient},
		{"cancelled", context.Canceled, CategoryPermanent},
		{"net timeout", timeoutNetErr{}, CategoryTransient},
		{"transient reporter", flakyErr{transient: true}, CategoryTransient},
		{"permanent reporter", flakyErr{transient: false}, CategoryPermanent},
		{"categorized error", &CategorizedError{Category: CategoryTransient}, CategoryTransient},
		{"unknown error", errors.New("unknown"), CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.expected {
				t.Errorf("Categorize() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestCategorizedError(t *testing.T) {
	inner := errors.New("failed")

	t.Run("message with context", func(t *testing.T) {
		err := NewCategorized(inner, CategoryTransient, "api call")
		expected := "api call: failed (category: transient, attempts: 0)"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %q, want %q", got, expected)
		}
	})

	t.Run("message without context", func(t *testing.T) {
		err := Permanent(inner, "")
		expected := "failed (category: permanent, attempts: 0)"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %q, want %q", got, expected)
		}
	})

	t.Run("unwraps", func(t *testing.T) {
		if !errors.Is(Transient(inner, "x"), inner) {
			t.Error("expected errors.Is to find inner error")
		}
	})
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: 500, Message: "internal error", Endpoint: "/v1/chat/completions"}
	if got, want := err.Error(), "HTTP 500 at /v1/chat/completions: internal error"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = &HTTPError{StatusCode: 404, Message: "not found"}
	if got, want := err.Error(), "HTTP 404: not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithRetry(t *testing.T) {
	fast := func(opts ...RetryOption) RetryConfig {
		return NewRetryConfig(append([]RetryOption{
			WithMaxAttempts(3),
			WithInitialBackoff(time.Millisecond),
			WithJitter(0),
		}, opts...)...)
	}

	t.Run("success on first try", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast(), func() (string, error) {
			calls++
			return "success", nil
		})

		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.Value != "success" || result.Attempts != 1 || calls != 1 {
			t.Errorf("got value=%q attempts=%d calls=%d", result.Value, result.Attempts, calls)
		}
	})

	t.Run("success on retry", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast(), func() (string, error) {
			calls++
			if calls < 2 {
				return "", &HTTPError{StatusCode: 503}
			}
			return "success", nil
		})

		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
	})

	t.Run("max attempts exceeded", func(t *testing.T) {
		result := WithRetry(fast(), func() (string, error) {
			return "", &HTTPError{StatusCode: 503}
		})

		var catErr *CategorizedError
		if !errors.As(result.Err, &catErr) {
			t.Fatalf("expected *CategorizedError, got %T", result.Err)
		}
		if catErr.Retries != 3 || result.Attempts != 3 {
			t.Errorf("Retries = %d, Attempts = %d, want 3", catErr.Retries, result.Attempts)
		}
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast(), func() (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 401}
		})

		if result.Err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("NoRetry makes one attempt", func(t *testing.T) {
		calls := 0
		result := WithRetry(NoRetry, func() (int, error) {
			calls++
			return 0, &HTTPError{StatusCode: 503}
		})

		if result.Err == nil || calls != 1 {
			t.Errorf("calls = %d, err = %v", calls, result.Err)
		}
	})

	t.Run("zero attempts is treated as one", func(t *testing.T) {
		calls := 0
		WithRetry(RetryConfig{}, func() (int, error) {
			calls++
			return 1, nil
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("custom retryable func", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast(WithRetryableFunc(func(error) bool { return true })), func() (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 404}
		})

		if calls != 3 || result.Attempts != 3 {
			t.Errorf("calls = %d, attempts = %d, want 3", calls, result.Attempts)
		}
	})

	t.Run("on retry hook sees each backoff", func(t *testing.T) {
		var seen []int
		WithRetry(fast(WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			seen = append(seen, attempt)
		})), func() (string, error) {
			return "", &HTTPError{StatusCode: 429}
		})

		if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
			t.Errorf("hook attempts = %v, want [1 2]", seen)
		}
	})
}

func TestWithRetryContext(t *testing.T) {
	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		result := WithRetryContext(ctx, NewRetryConfig(WithMaxAttempts(3)), func(_ context.Context) (string, error) {
			calls++
			return "never reached", nil
		})

		if result.Err == nil || calls != 0 {
			t.Errorf("calls = %d, err = %v", calls, result.Err)
		}
	})

	t.Run("cancellation during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		cfg := NewRetryConfig(
			WithMaxAttempts(5),
			WithInitialBackoff(100*time.Millisecond),
		)

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		result := WithRetryContext(ctx, cfg, func(_ context.Context) (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 503}
		})

		if result.Err == nil {
			t.Error("expected error from cancelled context")
		}
		if calls > 2 {
			t.Errorf("calls = %d, expected <= 2", calls)
		}
	})
}

func TestNewRetryConfig(t *testing.T) {
	cfg := NewRetryConfig(
		WithMaxAttempts(5),
		WithInitialBackoff(2*time.Second),
		WithMaxBackoff(60*time.Second),
		WithBackoffFactor(3.0),
		WithJitter(0.2),
	)

	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 2*time.Second {
		t.Errorf("InitialBackoff = %v, want 2s", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 60*time.Second {
		t.Errorf("MaxBackoff = %v, want 60s", cfg.MaxBackoff)
	}
	if cfg.BackoffFactor != 3.0 {
		t.Errorf("BackoffFactor = %f, want 3.0", cfg.BackoffFactor)
	}
	if cfg.Jitter != 0.2 {
		t.Errorf("Jitter = %f, want 0.2", cfg.Jitter)
	}
}
