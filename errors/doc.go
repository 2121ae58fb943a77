// Package errors provides standardized error handling patterns for AdapterKit.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing). Classification lets managers and
// subscription pumps make retry and teardown decisions without string
// matching on error messages.
//
// # Error Classification
//
//   - Transient: store unavailability, timeouts, context cancellation
//     (retry recommended)
//   - Invalid: malformed requests, call-context violations, capability
//     mismatches (do not retry)
//   - Fatal: corrupted records, exhausted resources (stop processing)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if !registry.Contains(uri) {
//	    return errors.ErrFeatureNotFound
//	}
//
// Wrap errors with context for debugging:
//
//	if err := store.Write(ctx, key, value); err != nil {
//	    return errors.WrapTransient(err, "TagManager", "AddOrUpdate", "record write")
//	}
//
// Check classification for retry logic:
//
//	if err := m.poll(ctx); err != nil {
//	    if errors.IsTransient(err) {
//	        continue // next tick
//	    }
//	    return err // terminal for the pump
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping
// (WrapTransient, WrapInvalid, WrapFatal); the plain Wrap() preserves the
// original error's classification.
//
// # Cancellation
//
// Context errors are classified as transient, and IsCancellation()
// distinguishes caller-requested cancellation from genuine failure.
// Subscription pumps and managers swallow cancellation at the boundary that
// requested it rather than reporting it as an application error.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
