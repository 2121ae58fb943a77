package stream

import (
	"context"
	"io"
	"sync"

	"github.com/c360/adapterkit/errors"
)

// OverflowPolicy defines how Push behaves when the queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest queued item to make room for the new one.
	DropOldest OverflowPolicy = iota

	// DropNewest discards the incoming item when the queue is full.
	DropNewest

	// Reject returns ErrQueueFull to the producer when the queue is full.
	Reject
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	case Reject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// DropCallback is called when an item is dropped due to overflow policy.
type DropCallback[T any] func(item T)

// Option configures queue behavior using the functional options pattern.
type Option[T any] func(*queueOptions[T])

type queueOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]
}

// WithOverflowPolicy sets the overflow behavior applied by Push.
// Defaults to DropOldest if not specified.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithDropCallback sets a callback invoked with each item dropped by Push.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.dropCallback = callback
	}
}

// Queue is a bounded FIFO delivery queue connecting one logical producer to
// one logical consumer. It is the uniform streaming surface of the SDK:
// producers Write or Push and finish with CloseSend; consumers Recv until
// io.EOF or a terminal error.
//
// All methods are safe for concurrent use.
type Queue[T any] struct {
	ch   chan T
	done chan struct{}

	mu     sync.Mutex
	closed bool
	err    error

	opts  queueOptions[T]
	stats Statistics
}

// NewQueue creates a queue with the given capacity. Capacity must be at
// least 1; smaller values are clamped.
func NewQueue[T any](capacity int, options ...Option[T]) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}

	opts := queueOptions[T]{overflowPolicy: DropOldest}
	for _, o := range options {
		o(&opts)
	}

	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
		opts: opts,
	}
}

// FromSlice returns a completed queue pre-loaded with items. Synchronous
// feature implementations use this to expose a finite result set through the
// uniform streaming contract.
func FromSlice[T any](items []T) *Queue[T] {
	q := NewQueue[T](len(items))
	for _, item := range items {
		q.ch <- item
		q.stats.Write()
	}
	q.CloseSend(nil)
	return q
}

// Write adds an item, blocking while the queue is full. It returns
// ErrSubscriptionClosed once CloseSend has been called and ctx.Err() if the
// context is cancelled while waiting. This is the backpressure-aware path:
// a producer writing to a full queue stops until the consumer reads.
func (q *Queue[T]) Write(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return errors.ErrSubscriptionClosed
	default:
	}

	select {
	case q.ch <- item:
		q.stats.Write()
		return nil
	case <-q.done:
		return errors.ErrSubscriptionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push adds an item without blocking, applying the queue's overflow policy
// when full. Fan-out delivery uses Push so a slow consumer affects only its
// own queue.
func (q *Queue[T]) Push(item T) error {
	select {
	case <-q.done:
		return errors.ErrSubscriptionClosed
	default:
	}

	select {
	case q.ch <- item:
		q.stats.Write()
		return nil
	default:
	}

	switch q.opts.overflowPolicy {
	case DropOldest:
		// Evict one, then retry once. The consumer may have raced us and
		// made room already, which is fine either way.
		select {
		case old := <-q.ch:
			q.drop(old)
		default:
		}
		select {
		case q.ch <- item:
			q.stats.Write()
			return nil
		default:
			q.drop(item)
			return nil
		}
	case DropNewest:
		q.drop(item)
		return nil
	case Reject:
		q.stats.Overflow()
		return errors.ErrQueueFull
	default:
		q.drop(item)
		return nil
	}
}

func (q *Queue[T]) drop(item T) {
	q.stats.Drop()
	if q.opts.dropCallback != nil {
		q.opts.dropCallback(item)
	}
}

// Recv returns the next item in FIFO order. After the producer calls
// CloseSend, remaining buffered items are still delivered; once drained,
// Recv returns io.EOF for a clean completion or the terminal error passed to
// CloseSend. Recv returns ctx.Err() if the context is cancelled while
// waiting.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	// Fast path: buffered item available.
	select {
	case item := <-q.ch:
		q.stats.Read()
		return item, nil
	default:
	}

	select {
	case item := <-q.ch:
		q.stats.Read()
		return item, nil
	case <-q.done:
		// Drain anything that landed before the close.
		select {
		case item := <-q.ch:
			q.stats.Read()
			return item, nil
		default:
		}
		if err := q.Err(); err != nil {
			return zero, err
		}
		return zero, io.EOF
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CloseSend completes the stream. A nil err marks clean completion (the
// consumer sees io.EOF after draining); a non-nil err becomes the terminal
// error surfaced by Recv. CloseSend is idempotent: only the first call has
// any effect.
func (q *Queue[T]) CloseSend(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	close(q.done)
}

// Err returns the terminal error set by CloseSend, or nil.
func (q *Queue[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Closed reports whether CloseSend has been called.
func (q *Queue[T]) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the stream has been completed.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Stats returns the queue's statistics tracker.
func (q *Queue[T]) Stats() *Statistics {
	return &q.stats
}
