// Package adapter implements the lifecycle core every concrete adapter
// builds on: the registered capability set, the guarded feature surface,
// start/stop hooks for attached components, and health aggregation.
package adapter

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/adapterkit/config"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/feature"
	"github.com/c360/adapterkit/health"
	"github.com/c360/adapterkit/metric"
)

// Hook is a start or stop action attached by a component. Start hooks run
// concurrently; stop hooks run in reverse attachment order.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	hook Hook
}

// Adapter is one data-access component exposing capabilities through a
// feature registry. Components (managers, feeds, connections) attach to its
// lifecycle via OnStart/OnStop and report into its health monitor.
type Adapter struct {
	opts     config.Options
	registry *feature.Registry
	wrapper  *feature.Wrapper
	monitor  *health.Monitor
	metrics  *metric.Metrics
	auth     feature.Authorizer
	log      *slog.Logger

	mu         sync.Mutex
	state      State
	startHooks []namedHook
	stopHooks  []namedHook
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithAuthorizer installs the authorization gate consulted by the wrapper.
func WithAuthorizer(auth feature.Authorizer) Option {
	return func(a *Adapter) {
		a.auth = auth
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) {
		a.log = log
	}
}

// WithMetrics wires the adapter and feature metrics.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = metrics
	}
}

// New creates an adapter from its options. The returned adapter is in
// StateCreated; capabilities are registered before Start.
func New(opts config.Options, options ...Option) (*Adapter, error) {
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		opts:     opts,
		registry: feature.NewRegistry(),
		monitor:  health.NewMonitor(),
		auth:     feature.AllowAll{},
		log:      slog.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	a.log = a.log.With("component", "adapter.Adapter", "adapter", opts.ID)

	wrapperOpts := []feature.WrapperOption{feature.WithLogger(a.log)}
	if a.metrics != nil {
		wrapperOpts = append(wrapperOpts, feature.WithMetrics(a.metrics))
	}
	a.wrapper = feature.NewWrapper(opts.ID, a.registry, a.auth, wrapperOpts...)

	a.setState(StateCreated)
	return a, nil
}

// ID returns the adapter's stable identifier.
func (a *Adapter) ID() string {
	return a.opts.ID
}

// Name returns the adapter's display name.
func (a *Adapter) Name() string {
	return a.opts.Name
}

// Options returns the adapter's normalized options.
func (a *Adapter) Options() config.Options {
	return a.opts
}

// Registry returns the capability registry, for registering features during
// construction.
func (a *Adapter) Registry() *feature.Registry {
	return a.registry
}

// Features returns the guarded feature surface. External callers must use
// this, never the raw registry.
func (a *Adapter) Features() *feature.Wrapper {
	return a.wrapper
}

// Health returns the adapter's health monitor.
func (a *Adapter) Health() *health.Monitor {
	return a.monitor
}

// AggregateHealth returns the adapter's overall health, derived from every
// component that reported in.
func (a *Adapter) AggregateHealth() health.Status {
	return a.monitor.AggregateHealth(a.opts.ID)
}

// OnStart attaches a hook run by Start. Hooks attached after Start are not
// run retroactively.
func (a *Adapter) OnStart(name string, hook Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startHooks = append(a.startHooks, namedHook{name: name, hook: hook})
}

// OnStop attaches a hook run by Stop, in reverse attachment order.
func (a *Adapter) OnStop(name string, hook Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopHooks = append(a.stopHooks, namedHook{name: name, hook: hook})
}

// State returns the adapter's current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) setState(s State) {
	a.state = s
	if a.metrics != nil {
		a.metrics.AdapterStatus.WithLabelValues(a.opts.ID).Set(float64(s))
	}
}

func (a *Adapter) transition(from []State, to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range from {
		if a.state == s {
			a.setState(to)
			return nil
		}
	}

	switch a.state {
	case StateStarted, StateStarting:
		return errors.Wrap(errors.ErrAlreadyStarted, "adapter.Adapter", "transition", a.state.String())
	case StateStopped, StateStopping:
		return errors.Wrap(errors.ErrAlreadyStopped, "adapter.Adapter", "transition", a.state.String())
	default:
		return errors.Wrap(errors.ErrNotStarted, "adapter.Adapter", "transition", a.state.String())
	}
}

// Start runs every attached start hook concurrently and transitions the
// adapter to StateStarted. Any hook failure cancels the remaining hooks and
// leaves the adapter in StateFailed; Stop may then be used for cleanup.
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.transition([]State{StateCreated, StateStopped}, StateStarting); err != nil {
		return err
	}
	a.log.Info("adapter starting", "name", a.opts.Name)

	a.mu.Lock()
	hooks := make([]namedHook, len(a.startHooks))
	copy(hooks, a.startHooks)
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hooks {
		g.Go(func() error {
			if err := h.hook(gctx); err != nil {
				a.monitor.UpdateUnhealthy(h.name, err.Error())
				return errors.Wrap(err, "adapter.Adapter", "Start", h.name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.mu.Lock()
		a.setState(StateFailed)
		a.mu.Unlock()
		a.log.Error("adapter start failed", "error", err)
		return err
	}

	a.mu.Lock()
	a.setState(StateStarted)
	a.mu.Unlock()
	a.monitor.UpdateHealthy("adapter", "started")
	a.log.Info("adapter started", "features", len(a.registry.URIs()))
	return nil
}

// Stop runs every attached stop hook in reverse attachment order, bounded
// by timeout, and transitions the adapter to StateStopped. Hook failures are
// collected, not short-circuited: every hook gets its chance to release
// resources. Stopping an already stopped adapter returns
// errors.ErrAlreadyStopped.
func (a *Adapter) Stop(timeout time.Duration) error {
	if err := a.transition([]State{StateStarted, StateFailed}, StateStopping); err != nil {
		return err
	}
	a.log.Info("adapter stopping", "timeout", timeout.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.mu.Lock()
	hooks := make([]namedHook, len(a.stopHooks))
	copy(hooks, a.stopHooks)
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(ctx); err != nil {
			a.log.Warn("stop hook failed", "hook", h.name, "error", err)
			errs = append(errs, errors.Wrap(err, "adapter.Adapter", "Stop", h.name))
		}
	}

	a.mu.Lock()
	a.setState(StateStopped)
	a.mu.Unlock()
	a.monitor.UpdateHealthy("adapter", "stopped")
	a.log.Info("adapter stopped")
	return stderrors.Join(errs...)
}

// GetFeature returns the first registered implementation satisfying the
// capability interface T, on the raw registry. Intended for in-process
// composition; external callers go through Features.
func GetFeature[T any](a *Adapter) (T, bool) {
	var zero T
	for _, uri := range a.registry.URIs() {
		impl, ok := a.registry.Get(uri)
		if !ok {
			continue
		}
		if typed, ok := impl.(T); ok {
			return typed, true
		}
	}
	return zero, false
}

// GetFeatureByURI returns the implementation registered under uri.
func GetFeatureByURI(a *Adapter, uri feature.URI) (any, bool) {
	return a.registry.Get(uri)
}
