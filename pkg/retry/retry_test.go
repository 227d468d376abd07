package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noBackoff(int) time.Duration { return 0 }

func TestRetrySucceedsAfterFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Backoff: noBackoff}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsLastError(t *testing.T) {
	policy := Policy{MaxAttempts: 2, Backoff: noBackoff}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("persistent")
	})

	assert.EqualError(t, err, "persistent")
	assert.Equal(t, 2, attempts)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	policy := Policy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Hour },
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func() error {
			attempts++
			return errors.New("failing")
		})
	}()

	cancel()
	err := <-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryDefaultsApply(t *testing.T) {
	policy := Policy{Backoff: noBackoff}

	attempts := 0
	_ = policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("always")
	})

	// Zero MaxAttempts falls back to the default of three
	assert.Equal(t, 3, attempts)
}

func TestDefaultPolicyBackoffIsExponential(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
}
