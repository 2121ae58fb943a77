package subscription_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/stream"
	"github.com/c360/adapterkit/subscription"
	"github.com/c360/adapterkit/tags"
)

func tagKey(v tags.Value) string { return v.TagID }

func pushManager(t *testing.T, opts ...subscription.Option[string, tags.Value]) *subscription.Manager[string, tags.Value] {
	t.Helper()
	m := subscription.NewManager("test", tagKey, subscription.DefaultOptions(), opts...)
	t.Cleanup(m.Dispose)
	return m
}

func TestPublishReachesMatchingSubscribers(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t)

	subA, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	subB, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	subOther, err := m.Subscribe(ctx, "t2")
	require.NoError(t, err)

	v := tags.NewValue("t1", time.UnixMilli(1000), 42.0)
	require.NoError(t, m.Publish(v))

	for _, sub := range []*subscription.Subscription[string, tags.Value]{subA, subB} {
		got, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Zero(t, subOther.Queue().Len(), "non-matching key must receive nothing")
}

func TestPerSubscriberFIFO(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t)

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)

	for i := range 10 {
		require.NoError(t, m.Publish(tags.NewValue("t1", time.UnixMilli(int64(i)), float64(i))))
	}
	for i := range 10 {
		got, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(i), got.Value)
	}
}

func TestSlowSubscriberIsolation(t *testing.T) {
	ctx := context.Background()
	opts := subscription.DefaultOptions()
	opts.QueueCapacity = 4
	m := subscription.NewManager("test", tagKey, opts)
	defer m.Dispose()

	slow, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	fast, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)

	// The slow subscriber never drains. Far more values than its capacity
	// still reach the fast subscriber, in order and without delay.
	const n = 50
	for i := range n {
		require.NoError(t, m.Publish(tags.NewValue("t1", time.UnixMilli(int64(i)), float64(i))))

		got, err := fast.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(i), got.Value)
	}

	assert.LessOrEqual(t, slow.Queue().Len(), 4, "slow queue stays bounded")
}

func TestDropOldestOnOverflow(t *testing.T) {
	ctx := context.Background()
	opts := subscription.DefaultOptions()
	opts.QueueCapacity = 2
	opts.Overflow = stream.DropOldest
	m := subscription.NewManager("test", tagKey, opts)
	defer m.Dispose()

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, m.Publish(tags.NewValue("t1", time.UnixMilli(int64(i)), float64(i))))
	}

	// Oldest values were evicted; the newest survive in order.
	got, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Value)
	got, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Value)
}

func TestValidatorRejectsUnknownKey(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t, subscription.WithValidator[string, tags.Value](
		func(_ context.Context, key string) error {
			if key != "known" {
				return errors.ErrKeyNotFound
			}
			return nil
		}))

	_, err := m.Subscribe(ctx, "unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSubscriptionRejected)

	_, err = m.Subscribe(ctx, "known")
	require.NoError(t, err)
}

func TestKeyHooksFireOnFirstAndLast(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var acquired, released []string
	m := pushManager(t, subscription.WithKeyHooks[string, tags.Value](
		func(key string) {
			mu.Lock()
			acquired = append(acquired, key)
			mu.Unlock()
		},
		func(key string) {
			mu.Lock()
			released = append(released, key)
			mu.Unlock()
		}))

	subA, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	subB, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"t1"}, acquired, "hook fires only for the first subscriber")
	mu.Unlock()

	subA.Close()
	mu.Lock()
	assert.Empty(t, released, "a remaining subscriber keeps the key alive")
	mu.Unlock()

	subB.Close()
	mu.Lock()
	assert.Equal(t, []string{"t1"}, released)
	mu.Unlock()
}

func TestPollingPumpPollsOnlySubscribedKeys(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	polled := make(map[string]int)
	poll := func(_ context.Context, keys []string) ([]tags.Value, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]tags.Value, 0, len(keys))
		for _, k := range keys {
			polled[k]++
			out = append(out, tags.NewValue(k, time.UnixMilli(1000), 42.0))
		}
		return out, nil
	}

	opts := subscription.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	m := subscription.NewManager("test", tagKey, opts,
		subscription.WithPoller(poll))
	defer m.Dispose()

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StateRunning, m.State(), "first subscriber starts the pump")

	got, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TagID)
	assert.Equal(t, 42.0, got.Value)

	// After the last subscriber leaves, polling for that key stops.
	sub.Close()
	time.Sleep(15 * time.Millisecond)
	mu.Lock()
	baseline := polled["t1"]
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, baseline, polled["t1"], "no further upstream calls reference the key")
	assert.Zero(t, polled["t2"], "never-subscribed keys are never polled")
	mu.Unlock()
}

func TestTransientPollErrorsAreRetried(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	poll := func(_ context.Context, keys []string) ([]tags.Value, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, errors.WrapTransient(errors.ErrStorageUnavailable, "test", "poll", "read")
		}
		return []tags.Value{tags.NewValue("t1", time.UnixMilli(1000), 1.0)}, nil
	}

	opts := subscription.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	m := subscription.NewManager("test", tagKey, opts, subscription.WithPoller(poll))
	defer m.Dispose()

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)

	got, err := sub.Recv(ctx)
	require.NoError(t, err, "pump survives a transient poll failure")
	assert.Equal(t, 1.0, got.Value)
}

func TestTerminalPollErrorReachesAllSubscribers(t *testing.T) {
	ctx := context.Background()

	// Fail only once both subscribers are registered, so neither Subscribe
	// races the disposal.
	poll := func(_ context.Context, keys []string) ([]tags.Value, error) {
		if len(keys) < 2 {
			return nil, nil
		}
		return nil, errors.WrapFatal(errors.ErrDataCorrupted, "backend", "poll", "decode")
	}

	opts := subscription.DefaultOptions()
	opts.PollInterval = time.Millisecond
	m := subscription.NewManager("test", tagKey, opts, subscription.WithPoller(poll))
	defer m.Dispose()

	subA, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	subB, err := m.Subscribe(ctx, "t2")
	require.NoError(t, err)

	for _, sub := range []*subscription.Subscription[string, tags.Value]{subA, subB} {
		_, err := sub.Recv(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrDataCorrupted)
		assert.NotErrorIs(t, err, io.EOF)
	}
	assert.Equal(t, subscription.StateDisposed, m.State())
}

func TestDisposeCompletesQueuesCleanly(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t)

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, m.Publish(tags.NewValue("t1", time.UnixMilli(1), 1.0)))

	m.Dispose()
	m.Dispose() // idempotent

	// Buffered value still drains, then clean EOF, not an error.
	got, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Value)
	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.Subscribe(ctx, "t1")
	require.Error(t, err, "disposed manager rejects new subscribers")
	assert.ErrorIs(t, err, errors.ErrDisposed)

	assert.ErrorIs(t, m.Publish(tags.NewValue("t1", time.UnixMilli(2), 2.0)), errors.ErrDisposed)
}

func TestDisposeDuringSubscribeRejectsNewSubscriber(t *testing.T) {
	// Disposal landing between Subscribe's state check and its map insert
	// must not leave a live subscription on a disposed manager. The
	// validator runs exactly in that window, so disposing from it forces
	// the interleaving deterministically.
	var m *subscription.Manager[string, tags.Value]
	m = subscription.NewManager("race", tagKey, subscription.DefaultOptions(),
		subscription.WithValidator[string, tags.Value](func(context.Context, string) error {
			m.Dispose()
			return nil
		}))

	sub, err := m.Subscribe(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDisposed)
	assert.Nil(t, sub)
	assert.Zero(t, m.SubscriberCount())
	assert.Equal(t, subscription.StateDisposed, m.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t)

	sub, err := m.Subscribe(ctx, "t1")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	assert.Zero(t, m.SubscriberCount())
	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConcurrentSubscribeUnsubscribeDuringFanOut(t *testing.T) {
	ctx := context.Background()
	m := pushManager(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = m.Publish(tags.NewValue("t1", time.UnixMilli(int64(i)), float64(i)))
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				sub, err := m.Subscribe(ctx, "t1")
				if err != nil {
					return
				}
				_, _ = sub.Recv(ctx)
				sub.Close()
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()
	assert.Zero(t, m.SubscriberCount())
}
