package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:    maxRetries,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
	}
}

func TestRetryer_SucceedsFirstAttempt(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(3))

	attempts := 0
	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryer_RetriesRetryableError(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(3))

	attempts := 0
	err := retryer.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return NewExternalServiceError(ErrCodeRecommenderFailed, "transient", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryer_StopsOnNonRetryableError(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(3))

	attempts := 0
	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return NewValidationError(ErrCodeInvalidInput, "permanent", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryer_ExhaustsAttempts(t *testing.T) {
	retryer := NewRetryer(fastRetryConfig(2))

	attempts := 0
	err := retryer.Execute(context.Background(), func() error {
		attempts++
		return fmt.Errorf("always failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt plus two retries
}

func TestRetryer_RespectsContextCancellation(t *testing.T) {
	retryer := NewRetryer(&RetryConfig{
		MaxRetries:    5,
		BaseDelay:     time.Second,
		MaxDelay:      time.Second,
		BackoffFactor: 1.0,
	})

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- retryer.Execute(ctx, func() error {
			attempts++
			return NewExternalServiceError(ErrCodeRecommenderFailed, "transient", nil)
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("retryer did not observe cancellation")
	}
}

func TestRetryer_NilConfigUsesDefaults(t *testing.T) {
	retryer := NewRetryer(nil)
	assert.Equal(t, DefaultRetryConfig().MaxRetries, retryer.config.MaxRetries)
}
