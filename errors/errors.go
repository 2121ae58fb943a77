package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360/adapterkit/pkg/retry"
)

// ErrorClass partitions errors by how callers should react: retry, fix the
// request, or give up.
type ErrorClass int

const (
	// ErrorTransient errors may succeed on retry.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors are caused by the request and will not succeed on retry.
	ErrorInvalid
	// ErrorFatal errors are unrecoverable; processing should stop.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors. Compare with errors.Is; wrap with the Wrap* helpers.
var (
	// Adapter lifecycle.
	ErrAlreadyStarted = errors.New("adapter already started")
	ErrNotStarted     = errors.New("adapter not started")
	ErrAlreadyStopped = errors.New("adapter already stopped")
	ErrDisposed       = errors.New("object has been disposed")

	// Feature registry and dispatch.
	ErrFeatureNotFound    = errors.New("feature not found")
	ErrFeatureUnsupported = errors.New("implementation does not satisfy feature")
	ErrOperationNotFound  = errors.New("extension operation not found")

	// Call validation and authorization.
	ErrInvalidCallContext = errors.New("invalid call context")
	ErrValidation         = errors.New("request validation failed")
	ErrForbidden          = errors.New("caller is not authorized")

	// Subscriptions and streaming.
	ErrSubscriptionClosed   = errors.New("subscription closed")
	ErrSubscriptionRejected = errors.New("subscription rejected")
	ErrQueueFull            = errors.New("queue full")
	ErrPumpStopped          = errors.New("subscription pump stopped")

	// Storage and persistence.
	ErrKeyNotFound        = errors.New("key not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDataCorrupted      = errors.New("data corrupted")
	ErrNotInitialized     = errors.New("manager not initialized")

	// Configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Resources.
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrSchedulerStopped  = errors.New("scheduler stopped")
)

// Sentinels with an inherent class; unlisted sentinels classify by the
// fallback rules in classOf.
var (
	invalidSentinels = []error{
		ErrValidation,
		ErrInvalidCallContext,
		ErrFeatureUnsupported,
	}
	fatalSentinels = []error{
		ErrInvalidConfig,
		ErrMissingConfig,
		ErrDataCorrupted,
		ErrResourceExhausted,
	}
	transientSentinels = []error{
		ErrStorageUnavailable,
		ErrNotInitialized,
		ErrQueueFull,
		context.DeadlineExceeded,
		context.Canceled,
	}
)

// Message fragments that mark an otherwise-unclassified error as transient.
// Backend drivers rarely wrap their network failures in anything matchable,
// so the raw text is the only signal left.
var transientFragments = []string{
	"timeout", "connection", "network", "temporary", "unavailable", "busy", "retry",
}

// ClassifiedError carries an explicit class plus the component and operation
// that produced the error.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classOf resolves err's class. ok is false when nothing in the error chain
// carries a classification signal.
func classOf(err error) (class ErrorClass, ok bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}

	for _, s := range invalidSentinels {
		if errors.Is(err, s) {
			return ErrorInvalid, true
		}
	}
	for _, s := range fatalSentinels {
		if errors.Is(err, s) {
			return ErrorFatal, true
		}
	}
	for _, s := range transientSentinels {
		if errors.Is(err, s) {
			return ErrorTransient, true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return ErrorTransient, true
		}
	}
	return ErrorTransient, false
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorTransient
}

// IsInvalid reports whether err was caused by the request itself.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorInvalid
}

// IsFatal reports whether err is unrecoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorFatal
}

// Classify resolves err's class, defaulting unknown errors to transient so
// callers err on the side of retrying.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	class, _ := classOf(err)
	return class
}

// IsCancellation reports whether err represents a context cancellation or
// deadline rather than an application failure. Cancellation is never treated
// as an error by subscription pumps and manager shutdown paths.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Wrap attaches context in the uniform "component.method: action failed"
// format. A nil err stays nil.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps err with context and forces the transient class.
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps err with context and forces the invalid class.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps err with context and forces the fatal class.
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ErrorFatal, err, component, method, action)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// RetryConfig expresses a classification-aware retry policy: how many
// additional attempts to make beyond the first, and over which errors.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error // empty means any transient error
}

// DefaultRetryConfig retries any transient error three times with 100ms..5s
// exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry reports whether attempt (zero-based) should be retried after
// err. Non-transient errors and errors outside the allow list never retry.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries || !IsTransient(err) {
		return false
	}
	if len(rc.RetryableErrors) == 0 {
		return true
	}
	for _, allowed := range rc.RetryableErrors {
		if errors.Is(err, allowed) {
			return true
		}
	}
	return false
}

// BackoffDelay returns the delay before the given zero-based retry attempt,
// capped at MaxDelay.
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := rc.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if delay > rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	return delay
}

// ToRetryConfig bridges this policy to the backoff implementation in
// pkg/retry. MaxRetries counts additional attempts, retry.Config counts
// total attempts, hence the +1.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
	}
}
