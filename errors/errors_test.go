package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.class.String())
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		invalid   bool
		fatal     bool
	}{
		{"storage unavailable is transient", ErrStorageUnavailable, true, false, false},
		{"not initialized is transient", ErrNotInitialized, true, false, false},
		{"context canceled is transient", context.Canceled, true, false, false},
		{"deadline exceeded is transient", context.DeadlineExceeded, true, false, false},
		{"validation is invalid", ErrValidation, false, true, false},
		{"call context is invalid", ErrInvalidCallContext, false, true, false},
		{"feature unsupported is invalid", ErrFeatureUnsupported, false, true, false},
		{"corrupted data is fatal", ErrDataCorrupted, false, false, true},
		{"missing config is fatal", ErrMissingConfig, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err), "IsTransient")
			assert.Equal(t, tt.invalid, IsInvalid(tt.err), "IsInvalid")
			assert.Equal(t, tt.fatal, IsFatal(tt.err), "IsFatal")
		})
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	wrapped := Wrap(ErrStorageUnavailable, "TagManager", "Get", "index read")
	require.Error(t, wrapped)

	assert.True(t, IsTransient(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrStorageUnavailable))
	assert.Contains(t, wrapped.Error(), "TagManager.Get: index read failed")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "C", "M", "a"))
	assert.NoError(t, WrapTransient(nil, "C", "M", "a"))
	assert.NoError(t, WrapInvalid(nil, "C", "M", "a"))
	assert.NoError(t, WrapFatal(nil, "C", "M", "a"))
}

func TestClassifiedWrappersOverrideClass(t *testing.T) {
	// A transient sentinel forced invalid via the wrapper keeps the forced class.
	err := WrapInvalid(ErrStorageUnavailable, "Registry", "Register", "capability check")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Registry", ce.Component)
	assert.Equal(t, "Register", ce.Operation)
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
}

func TestClassifyDefaultsToTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(fmt.Errorf("something nobody anticipated")))
	assert.Equal(t, ErrorInvalid, Classify(ErrValidation))
	assert.Equal(t, ErrorFatal, Classify(ErrDataCorrupted))
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(fmt.Errorf("pump: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancellation(ErrPumpStopped))
	assert.False(t, IsCancellation(nil))
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.True(t, cfg.ShouldRetry(ErrStorageUnavailable, 0))
	assert.False(t, cfg.ShouldRetry(ErrStorageUnavailable, cfg.MaxRetries), "attempts exhausted")
	assert.False(t, cfg.ShouldRetry(ErrValidation, 0), "invalid errors never retry")
	assert.False(t, cfg.ShouldRetry(nil, 0))

	cfg.RetryableErrors = []error{ErrQueueFull}
	assert.True(t, cfg.ShouldRetry(ErrQueueFull, 0))
	assert.False(t, cfg.ShouldRetry(ErrStorageUnavailable, 0), "not on the allow list")
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.BackoffDelay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.BackoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, cfg.BackoffDelay(2))
	assert.Equal(t, 1*time.Second, cfg.BackoffDelay(10), "capped at MaxDelay")
}

func TestToRetryConfig(t *testing.T) {
	rc := DefaultRetryConfig().ToRetryConfig()

	assert.Equal(t, DefaultRetryConfig().MaxRetries+1, rc.MaxAttempts)
	assert.True(t, rc.AddJitter)
}
