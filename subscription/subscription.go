package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/c360/adapterkit/stream"
)

// Subscription is one caller's registration for push delivery of values
// matching a single key. Values arrive on a private bounded queue in
// upstream emission order. The caller owns the subscription and must Close
// it when done; the manager only holds it for fan-out.
type Subscription[K comparable, V any] struct {
	id    string
	key   K
	queue *stream.Queue[V]
	mgr   *Manager[K, V]
}

func newSubscription[K comparable, V any](mgr *Manager[K, V], key K, queue *stream.Queue[V]) *Subscription[K, V] {
	return &Subscription[K, V]{
		id:    uuid.NewString(),
		key:   key,
		queue: queue,
		mgr:   mgr,
	}
}

// ID returns the surrogate handle identifying this subscription.
func (s *Subscription[K, V]) ID() string {
	return s.id
}

// Key returns the key this subscription was registered for.
func (s *Subscription[K, V]) Key() K {
	return s.key
}

// Recv returns the next delivered value in FIFO order. It returns io.EOF
// after the subscription completes cleanly (Close or manager disposal) and
// the terminal error after a pump failure, once buffered values are drained.
func (s *Subscription[K, V]) Recv(ctx context.Context) (V, error) {
	return s.queue.Recv(ctx)
}

// Queue exposes the underlying delivery queue for stream adaptation.
func (s *Subscription[K, V]) Queue() *stream.Queue[V] {
	return s.queue
}

// Close deregisters the subscription and completes its queue. Buffered
// values remain readable. Close is idempotent and safe to call concurrently
// with delivery.
func (s *Subscription[K, V]) Close() {
	s.mgr.Remove(s)
}
