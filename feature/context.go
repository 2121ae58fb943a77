package feature

import (
	"context"

	"github.com/c360/adapterkit/errors"
)

// CallContext carries the caller's identity and locale through every feature
// call. Transports construct it once per request.
type CallContext struct {
	// CallerID identifies the caller. Required.
	CallerID string

	// Locale is the caller's BCP 47 language tag, used for localized
	// display strings. Optional.
	Locale string

	// Validated marks the request as already structurally validated by an
	// upstream transport, letting the wrapper skip revalidation.
	Validated bool
}

// Validate checks the structural requirements of the call context.
func (c CallContext) Validate() error {
	if c.CallerID == "" {
		return errors.WrapInvalid(errors.ErrInvalidCallContext, "feature.CallContext", "Validate", "caller identity")
	}
	return nil
}

// Authorizer is the injected authorization gate consulted once per feature
// call, before dispatch. Implementations decide allow or deny; they never
// see results.
type Authorizer interface {
	Authorize(ctx context.Context, cc CallContext, adapterID string, uri URI) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, cc CallContext, adapterID string, uri URI) bool

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(ctx context.Context, cc CallContext, adapterID string, uri URI) bool {
	return f(ctx, cc, adapterID, uri)
}

// AllowAll authorizes every call. The default for embedded hosts without an
// authorization policy.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(context.Context, CallContext, string, URI) bool {
	return true
}
