package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/metric"
)

// PoolOptions configures a bounded scheduler pool.
type PoolOptions struct {
	// MaxConcurrent bounds the number of simultaneously running tasks.
	// Defaults to 256 (pumps are cheap; the bound exists to catch leaks).
	MaxConcurrent int

	// Logger used for task start/panic reporting. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultPoolOptions returns sensible defaults.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MaxConcurrent: 256}
}

// PoolOption configures optional pool behavior.
type PoolOption func(*Pool)

// WithMetricsRegistry exports pool statistics as Prometheus metrics under
// the given component prefix.
func WithMetricsRegistry(registry *metric.MetricsRegistry, prefix string) PoolOption {
	return func(p *Pool) {
		if registry != nil && prefix != "" {
			p.metricsRegistry = registry
			p.metricsPrefix = prefix
		}
	}
}

// Pool is a bounded Scheduler. Each running task holds one slot; Schedule
// is non-blocking and rejects work when every slot is busy.
type Pool struct {
	opts   PoolOptions
	logger *slog.Logger

	slots chan struct{}

	rootCtx    context.Context
	rootCancel context.CancelFunc

	lifecycleMu sync.Mutex
	stopped     bool
	wg          sync.WaitGroup

	// Statistics (atomic)
	scheduled atomic.Int64
	active    atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64

	// Optional metrics
	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
	activeGauge     prometheus.Gauge
	rejectedCounter prometheus.Counter
}

// NewPool creates a bounded scheduler pool.
func NewPool(opts PoolOptions, poolOpts ...PoolOption) *Pool {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		opts:       opts,
		logger:     logger,
		slots:      make(chan struct{}, opts.MaxConcurrent),
		rootCtx:    ctx,
		rootCancel: cancel,
	}

	for _, o := range poolOpts {
		o(p)
	}

	if p.metricsRegistry != nil {
		p.initializeMetrics()
	}

	return p
}

func (p *Pool) initializeMetrics() {
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: p.metricsPrefix + "_active_tasks",
		Help: "Currently running background tasks",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: p.metricsPrefix + "_rejected_total",
		Help: "Tasks rejected because the pool was at capacity",
	})

	if err := p.metricsRegistry.RegisterGauge(p.metricsPrefix, "active_tasks", active); err != nil {
		p.logger.Warn("scheduler metrics registration failed", "error", err)
		return
	}
	if err := p.metricsRegistry.RegisterCounter(p.metricsPrefix, "rejected_total", rejected); err != nil {
		p.logger.Warn("scheduler metrics registration failed", "error", err)
		p.metricsRegistry.Unregister(p.metricsPrefix, "active_tasks")
		return
	}

	p.activeGauge = active
	p.rejectedCounter = rejected
}

// Schedule starts task in the background, bounded by MaxConcurrent. It
// returns ErrSchedulerStopped after Stop and ErrResourceExhausted when every
// slot is busy.
func (p *Pool) Schedule(ctx context.Context, name string, task Task) error {
	if task == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Pool", "Schedule", "nil task")
	}

	p.lifecycleMu.Lock()
	if p.stopped {
		p.lifecycleMu.Unlock()
		return errors.ErrSchedulerStopped
	}

	select {
	case p.slots <- struct{}{}:
	default:
		p.lifecycleMu.Unlock()
		p.rejected.Add(1)
		if p.rejectedCounter != nil {
			p.rejectedCounter.Inc()
		}
		return errors.ErrResourceExhausted
	}

	p.wg.Add(1)
	p.lifecycleMu.Unlock()

	p.scheduled.Add(1)

	// Compose the caller's context with the pool lifetime.
	taskCtx, taskCancel := context.WithCancel(ctx)
	stopWatch := context.AfterFunc(p.rootCtx, taskCancel)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("scheduled task panicked", "task", name, "panic", r)
			}
			stopWatch()
			taskCancel()
			<-p.slots
			p.active.Add(-1)
			if p.activeGauge != nil {
				p.activeGauge.Dec()
			}
			p.completed.Add(1)
			p.wg.Done()
		}()

		p.active.Add(1)
		if p.activeGauge != nil {
			p.activeGauge.Inc()
		}
		p.logger.Debug("task started", "task", name)
		task(taskCtx)
		p.logger.Debug("task finished", "task", name)
	}()

	return nil
}

// Stop cancels every running task and waits up to timeout for them to
// return. Stop is idempotent.
func (p *Pool) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	p.lifecycleMu.Unlock()

	p.rootCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrResourceExhausted, "Pool", "Stop", "tasks did not finish before timeout")
	}
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Scheduled int64 `json:"scheduled"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Rejected  int64 `json:"rejected"`
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Scheduled: p.scheduled.Load(),
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
