package feature

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/adapterkit/assetmodel"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/events"
	"github.com/c360/adapterkit/health"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/stream"
	"github.com/c360/adapterkit/subscription"
	"github.com/c360/adapterkit/tags"
)

// Wrapper is the guarded front every external caller goes through. Features
// obtained here are never the raw registered implementation: each call
// validates the call context, consults the authorization gate, and records
// metrics before dispatching. A denied call never reaches the inner
// implementation, and the denial is a distinct forbidden outcome, never a
// silently empty result.
type Wrapper struct {
	adapterID string
	registry  *Registry
	auth      Authorizer
	metrics   *metric.Metrics
	log       *slog.Logger
}

// WrapperOption configures a Wrapper.
type WrapperOption func(*Wrapper)

// WithMetrics wires the feature-dispatch counters and duration histogram.
func WithMetrics(metrics *metric.Metrics) WrapperOption {
	return func(w *Wrapper) {
		w.metrics = metrics
	}
}

// WithLogger sets the wrapper's logger.
func WithLogger(log *slog.Logger) WrapperOption {
	return func(w *Wrapper) {
		w.log = log
	}
}

// NewWrapper creates the guarded feature surface for one adapter. A nil
// authorizer allows every call.
func NewWrapper(adapterID string, registry *Registry, auth Authorizer, opts ...WrapperOption) *Wrapper {
	if auth == nil {
		auth = AllowAll{}
	}
	w := &Wrapper{
		adapterID: adapterID,
		registry:  registry,
		auth:      auth,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "feature.Wrapper", "adapter", adapterID)
	return w
}

// guard runs the per-call checks in order: context validation, then the
// authorization gate. It runs before any registry lookup so a denied caller
// learns nothing about which capabilities exist.
func (w *Wrapper) guard(ctx context.Context, cc CallContext, uri URI) error {
	if !cc.Validated {
		if err := cc.Validate(); err != nil {
			return err
		}
	}

	if !w.auth.Authorize(ctx, cc, w.adapterID, uri) {
		if w.metrics != nil {
			w.metrics.FeatureDenied.WithLabelValues(w.adapterID, uri.ShortName()).Inc()
		}
		w.log.Warn("feature call denied", "feature", string(uri), "caller", cc.CallerID)
		return errors.Wrap(errors.ErrForbidden, "feature.Wrapper", "guard", string(uri))
	}

	if w.metrics != nil {
		w.metrics.FeatureCalls.WithLabelValues(w.adapterID, uri.ShortName()).Inc()
	}
	return nil
}

// observe closes a call's metrics span. Cancellation is the caller's doing,
// not a feature failure.
func (w *Wrapper) observe(uri URI, start time.Time, err error) {
	if w.metrics == nil {
		return
	}
	w.metrics.FeatureDuration.WithLabelValues(w.adapterID, uri.ShortName()).Observe(time.Since(start).Seconds())
	if err != nil && !errors.IsCancellation(err) {
		w.metrics.FeatureErrors.WithLabelValues(w.adapterID, uri.ShortName()).Inc()
	}
}

// trackStream keeps the metrics span open until the streamed result
// completes, so durations bracket the whole stream, not just call start.
func trackStream[T any](w *Wrapper, uri URI, start time.Time, q *stream.Queue[T]) *stream.Queue[T] {
	if w.metrics == nil {
		return q
	}
	go func() {
		<-q.Done()
		w.observe(uri, start, q.Err())
	}()
	return q
}

// guardedStream runs one stream-returning feature call through the guards.
func guardedStream[T any](w *Wrapper, ctx context.Context, cc CallContext, uri URI,
	call func(context.Context) (*stream.Queue[T], error),
) (*stream.Queue[T], error) {
	start := time.Now()
	if err := w.guard(ctx, cc, uri); err != nil {
		return nil, err
	}
	q, err := call(ctx)
	if err != nil {
		w.observe(uri, start, err)
		return nil, err
	}
	return trackStream(w, uri, start, q), nil
}

// guardedSubscribe runs one subscription-returning feature call through the
// guards.
func guardedSubscribe[K comparable, V any](w *Wrapper, ctx context.Context, cc CallContext, uri URI,
	call func(context.Context) (*subscription.Subscription[K, V], error),
) (*subscription.Subscription[K, V], error) {
	start := time.Now()
	if err := w.guard(ctx, cc, uri); err != nil {
		return nil, err
	}
	sub, err := call(ctx)
	w.observe(uri, start, err)
	return sub, err
}

func resolve[T any](w *Wrapper, uri URI, method string) (T, error) {
	var zero T
	impl, ok := w.registry.Get(uri)
	if !ok {
		return zero, errors.Wrap(errors.ErrFeatureNotFound, "feature.Wrapper", method, string(uri))
	}
	// The registration-time capability check guarantees this assertion.
	return impl.(T), nil
}

// Call dispatches an extension (or built-in extension-style) operation by
// capability name or URI. Authorization runs before the registry lookup, so
// denial does not reveal whether the capability exists.
func (w *Wrapper) Call(ctx context.Context, cc CallContext, name, operation string, input []byte) ([]byte, error) {
	start := time.Now()
	uri := URI(name)
	if err := w.guard(ctx, cc, uri); err != nil {
		return nil, err
	}

	desc, impl, ok := w.registry.TryResolveByName(name)
	if !ok {
		err := errors.Wrap(errors.ErrFeatureNotFound, "feature.Wrapper", "Call", name)
		w.observe(uri, start, err)
		return nil, err
	}
	caller, ok := impl.(Caller)
	if !ok {
		err := errors.WrapInvalid(errors.ErrFeatureUnsupported, "feature.Wrapper", "Call", "operation dispatch")
		w.observe(desc.URI, start, err)
		return nil, err
	}

	out, err := caller.CallOperation(ctx, operation, input)
	w.observe(desc.URI, start, err)
	return out, err
}

// Describe returns the descriptors of the registered capabilities the caller
// is authorized for. Capabilities the gate denies are filtered out rather
// than reported, so discovery reveals no more than calling would.
func (w *Wrapper) Describe(ctx context.Context, cc CallContext) ([]Descriptor, error) {
	if !cc.Validated {
		if err := cc.Validate(); err != nil {
			return nil, err
		}
	}

	all := w.registry.Descriptors()
	visible := make([]Descriptor, 0, len(all))
	for _, desc := range all {
		if w.auth.Authorize(ctx, cc, w.adapterID, desc.URI) {
			visible = append(visible, desc)
		}
	}
	return visible, nil
}

// TagSearchFeature is the guarded view of a TagSearch implementation.
type TagSearchFeature struct {
	w     *Wrapper
	inner TagSearch
}

// TagSearch resolves the guarded tag-search feature.
func (w *Wrapper) TagSearch() (*TagSearchFeature, error) {
	inner, err := resolve[TagSearch](w, URITagSearch, "TagSearch")
	if err != nil {
		return nil, err
	}
	return &TagSearchFeature{w: w, inner: inner}, nil
}

// SearchTags streams matching definitions after the per-call guards.
func (f *TagSearchFeature) SearchTags(ctx context.Context, cc CallContext, pattern string, page, pageSize int) (*stream.Queue[tags.Definition], error) {
	return guardedStream(f.w, ctx, cc, URITagSearch, func(ctx context.Context) (*stream.Queue[tags.Definition], error) {
		return f.inner.SearchTags(ctx, pattern, page, pageSize)
	})
}

// GetTags streams the definitions for the given IDs or names after the
// per-call guards.
func (f *TagSearchFeature) GetTags(ctx context.Context, cc CallContext, refs []string) (*stream.Queue[tags.Definition], error) {
	return guardedStream(f.w, ctx, cc, URITagSearch, func(ctx context.Context) (*stream.Queue[tags.Definition], error) {
		return f.inner.GetTags(ctx, refs)
	})
}

// SnapshotReadFeature is the guarded view of a SnapshotRead implementation.
type SnapshotReadFeature struct {
	w     *Wrapper
	inner SnapshotRead
}

// SnapshotRead resolves the guarded snapshot-read feature.
func (w *Wrapper) SnapshotRead() (*SnapshotReadFeature, error) {
	inner, err := resolve[SnapshotRead](w, URISnapshotRead, "SnapshotRead")
	if err != nil {
		return nil, err
	}
	return &SnapshotReadFeature{w: w, inner: inner}, nil
}

// ReadSnapshots streams current values after the per-call guards.
func (f *SnapshotReadFeature) ReadSnapshots(ctx context.Context, cc CallContext, tagIDs []string) (*stream.Queue[tags.Value], error) {
	return guardedStream(f.w, ctx, cc, URISnapshotRead, func(ctx context.Context) (*stream.Queue[tags.Value], error) {
		return f.inner.ReadSnapshots(ctx, tagIDs)
	})
}

// SnapshotPushFeature is the guarded view of a SnapshotPush implementation.
type SnapshotPushFeature struct {
	w     *Wrapper
	inner SnapshotPush
}

// SnapshotPush resolves the guarded snapshot-push feature.
func (w *Wrapper) SnapshotPush() (*SnapshotPushFeature, error) {
	inner, err := resolve[SnapshotPush](w, URISnapshotPush, "SnapshotPush")
	if err != nil {
		return nil, err
	}
	return &SnapshotPushFeature{w: w, inner: inner}, nil
}

// SubscribeSnapshots registers a push subscription after the per-call
// guards.
func (f *SnapshotPushFeature) SubscribeSnapshots(ctx context.Context, cc CallContext, tagID string) (*subscription.Subscription[string, tags.Value], error) {
	return guardedSubscribe(f.w, ctx, cc, URISnapshotPush, func(ctx context.Context) (*subscription.Subscription[string, tags.Value], error) {
		return f.inner.SubscribeSnapshots(ctx, tagID)
	})
}

// AssetModelBrowseFeature is the guarded view of an AssetModelBrowse
// implementation.
type AssetModelBrowseFeature struct {
	w     *Wrapper
	inner AssetModelBrowse
}

// AssetModelBrowse resolves the guarded asset-model-browse feature.
func (w *Wrapper) AssetModelBrowse() (*AssetModelBrowseFeature, error) {
	inner, err := resolve[AssetModelBrowse](w, URIAssetModelBrowse, "AssetModelBrowse")
	if err != nil {
		return nil, err
	}
	return &AssetModelBrowseFeature{w: w, inner: inner}, nil
}

// GetNode returns one node after the per-call guards.
func (f *AssetModelBrowseFeature) GetNode(ctx context.Context, cc CallContext, id string) (assetmodel.Node, bool, error) {
	start := time.Now()
	if err := f.w.guard(ctx, cc, URIAssetModelBrowse); err != nil {
		return assetmodel.Node{}, false, err
	}
	node, ok, err := f.inner.GetNode(ctx, id)
	f.w.observe(URIAssetModelBrowse, start, err)
	return node, ok, err
}

// BrowseNodes streams the children of a parent after the per-call guards.
func (f *AssetModelBrowseFeature) BrowseNodes(ctx context.Context, cc CallContext, parentID string, page, pageSize int) (*stream.Queue[assetmodel.Node], error) {
	return guardedStream(f.w, ctx, cc, URIAssetModelBrowse, func(ctx context.Context) (*stream.Queue[assetmodel.Node], error) {
		return f.inner.BrowseNodes(ctx, parentID, page, pageSize)
	})
}

// SearchNodes streams matching nodes after the per-call guards.
func (f *AssetModelBrowseFeature) SearchNodes(ctx context.Context, cc CallContext, pattern string, page, pageSize int) (*stream.Queue[assetmodel.Node], error) {
	return guardedStream(f.w, ctx, cc, URIAssetModelBrowse, func(ctx context.Context) (*stream.Queue[assetmodel.Node], error) {
		return f.inner.SearchNodes(ctx, pattern, page, pageSize)
	})
}

// EventPushFeature is the guarded view of an EventPush implementation.
type EventPushFeature struct {
	w     *Wrapper
	inner EventPush
}

// EventPush resolves the guarded event-push feature.
func (w *Wrapper) EventPush() (*EventPushFeature, error) {
	inner, err := resolve[EventPush](w, URIEventPush, "EventPush")
	if err != nil {
		return nil, err
	}
	return &EventPushFeature{w: w, inner: inner}, nil
}

// SubscribeEvents registers an event subscription after the per-call guards.
func (f *EventPushFeature) SubscribeEvents(ctx context.Context, cc CallContext, category string) (*subscription.Subscription[string, events.Message], error) {
	return guardedSubscribe(f.w, ctx, cc, URIEventPush, func(ctx context.Context) (*subscription.Subscription[string, events.Message], error) {
		return f.inner.SubscribeEvents(ctx, category)
	})
}

// HealthPushFeature is the guarded view of a HealthPush implementation.
type HealthPushFeature struct {
	w     *Wrapper
	inner HealthPush
}

// HealthPush resolves the guarded health-push feature.
func (w *Wrapper) HealthPush() (*HealthPushFeature, error) {
	inner, err := resolve[HealthPush](w, URIHealthPush, "HealthPush")
	if err != nil {
		return nil, err
	}
	return &HealthPushFeature{w: w, inner: inner}, nil
}

// SubscribeHealth registers a health subscription after the per-call guards.
func (f *HealthPushFeature) SubscribeHealth(ctx context.Context, cc CallContext, component string) (*subscription.Subscription[string, health.Status], error) {
	return guardedSubscribe(f.w, ctx, cc, URIHealthPush, func(ctx context.Context) (*subscription.Subscription[string, health.Status], error) {
		return f.inner.SubscribeHealth(ctx, component)
	})
}

// ConfigurationChangesFeature is the guarded view of a ConfigurationChanges
// implementation.
type ConfigurationChangesFeature struct {
	w     *Wrapper
	inner ConfigurationChanges
}

// ConfigurationChanges resolves the guarded configuration-changes feature.
func (w *Wrapper) ConfigurationChanges() (*ConfigurationChangesFeature, error) {
	inner, err := resolve[ConfigurationChanges](w, URIConfigChanges, "ConfigurationChanges")
	if err != nil {
		return nil, err
	}
	return &ConfigurationChangesFeature{w: w, inner: inner}, nil
}

// SubscribeChanges registers a catalog-change subscription after the
// per-call guards.
func (f *ConfigurationChangesFeature) SubscribeChanges(ctx context.Context, cc CallContext, entity string) (*subscription.Subscription[string, Change], error) {
	return guardedSubscribe(f.w, ctx, cc, URIConfigChanges, func(ctx context.Context) (*subscription.Subscription[string, Change], error) {
		return f.inner.SubscribeChanges(ctx, entity)
	})
}
