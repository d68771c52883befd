package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestCallReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	got, err := Call(context.Background(), exec, "op", func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "partial", errTemp
		}
		return "done", nil
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "done" || attempts != 2 {
		t.Fatalf("expected done after 2 attempts, got %q after %d", got, attempts)
	}
}

func TestNilExecutorRunsOnce(t *testing.T) {
	var exec *Executor
	calls := 0
	got, err := Call(context.Background(), exec, "op", func(context.Context) (int, error) {
		calls++
		return 7, nil
	}, nil)
	if err != nil || got != 7 || calls != 1 {
		t.Fatalf("expected single direct call, got value=%d calls=%d err=%v", got, calls, err)
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	if c := ClassifyHTTPStatus(http.StatusTooManyRequests); !c.Retryable {
		t.Fatalf("expected 429 to be retryable")
	}
	if c := ClassifyHTTPStatus(http.StatusBadRequest); c.Retryable || c.RecordFailure {
		t.Fatalf("expected 400 to be ignored by the breaker, got %+v", c)
	}
	if c := ClassifyHTTPStatus(http.StatusNotImplemented); c.Retryable || !c.RecordFailure {
		t.Fatalf("expected 501 to be permanent, got %+v", c)
	}
}

func TestWrapTemporaryMarksRetryableErrors(t *testing.T) {
	errTemp := errors.New("upstream 503")
	wrapped := WrapTemporary("llm.generate", errTemp, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true}
	})
	if !domain.IsKind(wrapped, domain.ErrTemporary) || !errors.Is(wrapped, errTemp) {
		t.Fatalf("expected temporary wrap, got %v", wrapped)
	}
	if got := WrapTemporary("op", errTemp, nil); domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("expected permanent error to stay unwrapped")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	e := NewExecutor(Config{
		RetryInitialBackoff: 10 * time.Millisecond,
		RetryMaxBackoff:     35 * time.Millisecond,
		RetryMultiplier:     2,
	})
	schedule := e.newBackoff()

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := schedule.next(); got != w {
			t.Fatalf("wait %d = %v, want %v", i, got, w)
		}
	}
}

func TestNormalizeFillsZeroFields(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	if cfg.RetryMaxAttempts != DefaultConfig().RetryMaxAttempts {
		t.Fatalf("expected default attempts, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("expected max backoff raised to the initial backoff, got %v", cfg.RetryMaxBackoff)
	}

	generation := GenerationConfig().normalize()
	if generation != GenerationConfig() {
		t.Fatalf("expected generation policy to be valid as is, got %+v", generation)
	}
}
