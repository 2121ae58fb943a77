// Package stream provides the single lazy, cancellable value-sequence
// abstraction used by every streaming feature in AdapterKit.
//
// # Overview
//
// Feature implementations produce results in one of two shapes: a producer
// loop that pushes into a bounded queue, or a synchronous routine that emits
// a finite result set. Both shapes are expressed through one type, Queue[T],
// so callers always consume results the same way:
//
//	q, err := feature.SearchTags(ctx, call, req)
//	if err != nil { ... }
//	for {
//	    tag, err := q.Recv(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break // clean completion
//	    }
//	    if err != nil {
//	        return err // terminal stream error or cancellation
//	    }
//	    use(tag)
//	}
//
// # Producer Contract
//
// Producers call Write (blocking, backpressure-aware) or Push (non-blocking,
// overflow-policy-driven) and finish the stream with CloseSend. A nil
// CloseSend error completes the stream cleanly (consumers see io.EOF after
// draining); a non-nil error is surfaced to the consumer as a terminal error.
// CloseSend is idempotent; the first call wins.
//
// # Overflow Policies
//
// Push applies a configurable overflow policy when the queue is full:
//
//   - DropOldest: evict the oldest queued item to make room (default for
//     fan-out delivery; latest-value semantics)
//   - DropNewest: discard the incoming item
//   - Reject: return ErrQueueFull to the producer
//
// Write always blocks until space is available, the consumer stops reading,
// or the context is cancelled. Fan-out paths use Push so one slow consumer
// can never stall delivery to the others.
//
// # Ordering
//
// Items are delivered strictly FIFO per queue. Statistics (written, received,
// dropped) are always collected with atomic counters.
package stream
