package stream

import (
	"context"
	"errors"
	"io"
)

// Pipe relays items from src to dst until src completes, the consumer of dst
// goes away, or ctx is cancelled. The source's completion state (clean EOF or
// terminal error) is propagated to dst via CloseSend. Pipe uses the blocking
// Write path, so it applies backpressure: when the dst consumer stops
// reading, the relay stops pulling from src.
//
// Pipe returns nil on clean completion, the source's terminal error, or the
// cancellation error. Feature implementations that produce into a queue of
// their own use it to bridge onto the caller-facing queue; results returned
// directly from a manager need no relay.
func Pipe[T any](ctx context.Context, src, dst *Queue[T]) error {
	for {
		item, err := src.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				dst.CloseSend(nil)
				return nil
			}
			dst.CloseSend(err)
			return err
		}

		if err := dst.Write(ctx, item); err != nil {
			// Consumer is gone or caller cancelled; stop pulling promptly.
			dst.CloseSend(err)
			return err
		}
	}
}

// Collect drains q into a slice, stopping at clean completion. It returns
// the items received so far plus the terminal error if the stream failed.
// Useful for finite result streams (searches, gets) and in tests.
func Collect[T any](ctx context.Context, q *Queue[T]) ([]T, error) {
	var items []T
	for {
		item, err := q.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return items, nil
			}
			return items, err
		}
		items = append(items, item)
	}
}
