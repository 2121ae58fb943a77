package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/scheduler"
	"github.com/c360/adapterkit/stream"
)

// State tracks a manager's lifecycle.
type State int

// Manager states.
const (
	StateCreated State = iota
	StateRunning
	StateDisposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// PollFunc resolves the current value for every given key. It is invoked on
// the pump goroutine at the configured interval, only with keys that have at
// least one active subscriber.
type PollFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// KeyFunc extracts the routing key from a value during fan-out.
type KeyFunc[K comparable, V any] func(V) K

// ValidateFunc decides whether the upstream can service a key at subscribe
// time. Returning an error rejects the subscription.
type ValidateFunc[K comparable] func(ctx context.Context, key K) error

// KeyHook is invoked when a key gains its first subscriber or loses its
// last, letting upstreams that support incremental subscribe release
// per-key resources.
type KeyHook[K comparable] func(key K)

// Options holds manager tunables.
type Options struct {
	// QueueCapacity bounds each subscriber's private queue.
	QueueCapacity int

	// PollInterval paces the polling pump. Ignored for push-only managers.
	PollInterval time.Duration

	// Overflow selects what Push does to a full subscriber queue.
	Overflow stream.OverflowPolicy
}

// DefaultOptions returns the standard manager tunables.
func DefaultOptions() Options {
	return Options{
		QueueCapacity: 100,
		PollInterval:  time.Second,
		Overflow:      stream.DropOldest,
	}
}

func (o *Options) normalize() {
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 100
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
}

// Manager multiplexes one upstream source to many subscribers. Create one
// per pushed value kind (snapshot values, event messages, health statuses,
// configuration changes). Push-only managers are fed through Publish;
// polling managers run a pump started by Start or lazily on the first
// subscriber.
type Manager[K comparable, V any] struct {
	name  string
	keyOf KeyFunc[K, V]
	opts  Options

	poll       PollFunc[K, V]
	validate   ValidateFunc[K]
	onFirstKey KeyHook[K]
	onLastKey  KeyHook[K]

	sched   scheduler.Scheduler
	log     *slog.Logger
	metrics *metric.Metrics

	mu    sync.RWMutex
	subs  map[string]*Subscription[K, V]
	byKey map[K]map[string]*Subscription[K, V]
	// disposed mirrors StateDisposed under mu so map writers can re-check
	// it at insert time without taking stateMu.
	disposed bool

	stateMu    sync.Mutex
	state      State
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
}

// Option configures a Manager.
type Option[K comparable, V any] func(*Manager[K, V])

// WithPoller installs a polling upstream. Without one the manager is
// push-only and fed through Publish.
func WithPoller[K comparable, V any](poll PollFunc[K, V]) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.poll = poll
	}
}

// WithValidator installs a subscribe-time key check.
func WithValidator[K comparable, V any](validate ValidateFunc[K]) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.validate = validate
	}
}

// WithKeyHooks installs first-subscriber and last-subscriber callbacks per
// key. Either may be nil.
func WithKeyHooks[K comparable, V any](onFirst, onLast KeyHook[K]) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.onFirstKey = onFirst
		m.onLastKey = onLast
	}
}

// WithScheduler sets the scheduler that runs the pump.
func WithScheduler[K comparable, V any](sched scheduler.Scheduler) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.sched = sched
	}
}

// WithLogger sets the manager's logger.
func WithLogger[K comparable, V any](log *slog.Logger) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.log = log
	}
}

// WithMetrics wires the fan-out counters and the active-subscription gauge.
func WithMetrics[K comparable, V any](metrics *metric.Metrics) Option[K, V] {
	return func(m *Manager[K, V]) {
		m.metrics = metrics
	}
}

// NewManager creates a subscription manager. name labels logs and metrics;
// keyOf routes values to subscribers during fan-out.
func NewManager[K comparable, V any](name string, keyOf KeyFunc[K, V], opts Options, options ...Option[K, V]) *Manager[K, V] {
	opts.normalize()

	m := &Manager[K, V]{
		name:  name,
		keyOf: keyOf,
		opts:  opts,
		sched: scheduler.NewDirect(),
		log:   slog.Default(),
		subs:  make(map[string]*Subscription[K, V]),
		byKey: make(map[K]map[string]*Subscription[K, V]),
	}
	for _, opt := range options {
		opt(m)
	}
	m.log = m.log.With("component", "subscription.Manager", "manager", name)
	return m
}

// State returns the manager's current lifecycle state.
func (m *Manager[K, V]) State() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

// Start runs the polling pump eagerly. Push-only managers need no Start.
// Starting an already running manager is a no-op.
func (m *Manager[K, V]) Start(ctx context.Context) error {
	if m.poll == nil {
		return nil
	}
	return m.ensurePump(ctx)
}

func (m *Manager[K, V]) ensurePump(ctx context.Context) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	switch m.state {
	case StateDisposed:
		return errors.Wrap(errors.ErrDisposed, "subscription.Manager", "ensurePump", m.name)
	case StateRunning:
		return nil
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	if err := m.sched.Schedule(pumpCtx, m.name+".pump", func(taskCtx context.Context) {
		defer close(done)
		m.pump(taskCtx)
	}); err != nil {
		cancel()
		return errors.WrapTransient(err, "subscription.Manager", "ensurePump", "pump schedule")
	}

	m.pumpCancel = cancel
	m.pumpDone = done
	m.state = StateRunning
	m.log.Debug("pump started", "interval", m.opts.PollInterval.String())
	return nil
}

// pump polls the upstream for every key with active interest and fans the
// results out. Transient upstream errors are logged and retried on the next
// tick; anything else is terminal for the whole manager.
func (m *Manager[K, V]) pump(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(m.opts.PollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		keys := m.activeKeys()
		if len(keys) == 0 {
			continue
		}

		values, err := m.poll(ctx, keys)
		if err != nil {
			if errors.IsCancellation(err) {
				return
			}
			if errors.IsTransient(err) {
				m.log.Warn("poll failed, will retry", "keys", len(keys), "error", err)
				continue
			}
			m.log.Error("poll failed terminally", "error", err)
			m.fail(errors.Wrap(err, "subscription.Manager", "pump", "upstream poll"))
			return
		}

		for _, v := range values {
			m.fanOut(v)
		}
	}
}

func (m *Manager[K, V]) activeKeys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.byKey))
	for k := range m.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Publish feeds one value into the fan-out, for push upstreams that produce
// values from their own domain logic instead of a polling loop.
func (m *Manager[K, V]) Publish(value V) error {
	if m.State() == StateDisposed {
		return errors.Wrap(errors.ErrDisposed, "subscription.Manager", "Publish", m.name)
	}
	m.fanOut(value)
	return nil
}

// fanOut delivers value to every subscriber of its key. Delivery runs under
// the read lock with a non-blocking enqueue per subscriber, so subscribes
// and unsubscribes block only briefly and a slow consumer cannot stall the
// others.
func (m *Manager[K, V]) fanOut(value V) {
	key := m.keyOf(value)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.byKey[key] {
		if err := sub.queue.Push(value); err != nil {
			// Queue already completed; removal is racing us.
			continue
		}
		if m.metrics != nil {
			m.metrics.ValuesDelivered.WithLabelValues(m.name).Inc()
		}
	}
}

// Subscribe registers a new subscriber for key and returns its private
// delivery queue handle. The key is validated against the upstream first;
// unserviceable keys are rejected with errors.ErrSubscriptionRejected.
func (m *Manager[K, V]) Subscribe(ctx context.Context, key K) (*Subscription[K, V], error) {
	if m.State() == StateDisposed {
		return nil, errors.Wrap(errors.ErrDisposed, "subscription.Manager", "Subscribe", m.name)
	}

	if m.validate != nil {
		if err := m.validate(ctx, key); err != nil {
			return nil, errors.WrapInvalid(errors.ErrSubscriptionRejected, "subscription.Manager", "Subscribe", "key validation")
		}
	}

	queueOpts := []stream.Option[V]{stream.WithOverflowPolicy[V](m.opts.Overflow)}
	if m.metrics != nil {
		queueOpts = append(queueOpts, stream.WithDropCallback[V](func(V) {
			m.metrics.ValuesDropped.WithLabelValues(m.name).Inc()
		}))
	}
	sub := newSubscription(m, key, stream.NewQueue[V](m.opts.QueueCapacity, queueOpts...))

	m.mu.Lock()
	if m.disposed {
		// Disposal won between the state check and the insert; the new
		// queue was never registered, so complete it here.
		m.mu.Unlock()
		sub.queue.CloseSend(nil)
		return nil, errors.Wrap(errors.ErrDisposed, "subscription.Manager", "Subscribe", m.name)
	}
	m.subs[sub.id] = sub
	keySubs := m.byKey[key]
	if keySubs == nil {
		keySubs = make(map[string]*Subscription[K, V])
		m.byKey[key] = keySubs
	}
	keySubs[sub.id] = sub
	firstForKey := len(keySubs) == 1
	total := len(m.subs)
	m.mu.Unlock()

	if firstForKey && m.onFirstKey != nil {
		m.onFirstKey(key)
	}
	if m.metrics != nil {
		m.metrics.ActiveSubscriptions.WithLabelValues(m.name).Set(float64(total))
	}

	if m.poll != nil {
		if err := m.ensurePump(ctx); err != nil {
			m.Remove(sub)
			return nil, err
		}
	}

	m.log.Debug("subscriber added", "subscription_id", sub.id, "subscribers", total)
	return sub, nil
}

// Remove deregisters a subscription and completes its queue. Removing an
// already removed subscription is a no-op. When the last subscriber for a
// key leaves, the last-key hook fires so the upstream can stop producing
// that key.
func (m *Manager[K, V]) Remove(sub *Subscription[K, V]) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	_, present := m.subs[sub.id]
	if !present {
		m.mu.Unlock()
		return
	}
	delete(m.subs, sub.id)
	keySubs := m.byKey[sub.key]
	delete(keySubs, sub.id)
	lastForKey := len(keySubs) == 0
	if lastForKey {
		delete(m.byKey, sub.key)
	}
	total := len(m.subs)
	m.mu.Unlock()

	sub.queue.CloseSend(nil)

	if lastForKey && m.onLastKey != nil {
		m.onLastKey(sub.key)
	}
	if m.metrics != nil {
		m.metrics.ActiveSubscriptions.WithLabelValues(m.name).Set(float64(total))
	}
	m.log.Debug("subscriber removed", "subscription_id", sub.id, "subscribers", total)
}

// fail closes every subscriber queue with the terminal error and disposes
// the manager.
func (m *Manager[K, V]) fail(err error) {
	m.shutdown(err)
}

// Dispose cancels the pump, completes every subscriber queue, and releases
// the upstream keys. Dispose is idempotent and safe to call concurrently
// with in-flight operations, which observe it as a clean completion.
func (m *Manager[K, V]) Dispose() {
	m.shutdown(nil)
}

func (m *Manager[K, V]) shutdown(terminal error) {
	m.stateMu.Lock()
	if m.state == StateDisposed {
		m.stateMu.Unlock()
		return
	}
	m.state = StateDisposed
	cancel, done := m.pumpCancel, m.pumpDone
	m.pumpCancel, m.pumpDone = nil, nil
	m.stateMu.Unlock()

	if cancel != nil {
		cancel()
		// The pump may be the goroutine calling fail; only block on its exit
		// when shutting down from outside.
		if terminal == nil && done != nil {
			<-done
		}
	}

	m.mu.Lock()
	m.disposed = true
	subs := make([]*Subscription[K, V], 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	keys := make([]K, 0, len(m.byKey))
	for k := range m.byKey {
		keys = append(keys, k)
	}
	m.subs = make(map[string]*Subscription[K, V])
	m.byKey = make(map[K]map[string]*Subscription[K, V])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.queue.CloseSend(terminal)
	}
	if m.onLastKey != nil {
		for _, k := range keys {
			m.onLastKey(k)
		}
	}
	if m.metrics != nil {
		m.metrics.ActiveSubscriptions.WithLabelValues(m.name).Set(0)
	}

	if terminal != nil {
		m.log.Error("manager disposed after pump failure", "error", terminal)
	} else {
		m.log.Debug("manager disposed")
	}
}

// SubscriberCount returns the number of live subscriptions.
func (m *Manager[K, V]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
