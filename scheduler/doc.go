// Package scheduler provides the background-work collaborator used by every
// manager and subscription pump in AdapterKit.
//
// # Overview
//
// Long-running loops (subscription pumps, polling timers, lazy manager
// initialization) never spawn raw goroutines directly. They go through the
// Scheduler contract so a hosting process can centrally bound concurrency:
//
//	type Scheduler interface {
//	    Schedule(ctx context.Context, name string, task Task) error
//	}
//
// Two implementations are provided:
//
//   - Pool: a bounded scheduler. Each scheduled task occupies one slot until
//     it returns; Schedule is non-blocking and returns ErrResourceExhausted
//     when all slots are busy, which signals host overload rather than
//     queueing invisible work.
//   - Direct: unbounded, one goroutine per task. Useful in tests and small
//     embedded hosts.
//
// # Cancellation
//
// A task's context is the composition of the caller's context and the
// scheduler's own lifetime: stopping the pool cancels every running task.
// Tasks are expected to watch ctx.Done() and return promptly.
//
// # Observability
//
// The pool always tracks atomic statistics (scheduled, active, completed,
// rejected) and can optionally export them as Prometheus metrics via
// WithMetricsRegistry.
package scheduler
