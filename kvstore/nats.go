package kvstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/pkg/retry"
)

// NATSOptions configures the JetStream KV backed store.
type NATSOptions struct {
	URL              string        // NATS server URL (default nats.DefaultURL)
	Bucket           string        // KV bucket name (required)
	CreateBucket     bool          // Create the bucket if it does not exist
	ConnectTimeout   time.Duration // Dial timeout (default 5s)
	OperationTimeout time.Duration // Per-operation timeout (default 5s)
	MaxReconnects    int           // NATS reconnect attempts (-1 for infinite)
	ReconnectWait    time.Duration // Wait between reconnect attempts
	Retry            retry.Config  // Backoff for transient operation failures
	Logger           *slog.Logger
}

// DefaultNATSOptions returns sensible defaults for a local NATS server.
func DefaultNATSOptions(bucket string) NATSOptions {
	return NATSOptions{
		URL:              nats.DefaultURL,
		Bucket:           bucket,
		CreateBucket:     true,
		ConnectTimeout:   5 * time.Second,
		OperationTimeout: 5 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		Retry:            retry.DefaultConfig(),
	}
}

// NATS is a Store backed by a JetStream key-value bucket. Keys using the
// manager colon convention ("nodes:{id}") are mapped to JetStream-legal dot
// form transparently.
type NATS struct {
	conn   *nats.Conn
	kv     jetstream.KeyValue
	opts   NATSOptions
	logger *slog.Logger
}

// ConnectNATS dials the server and binds (or creates) the KV bucket.
func ConnectNATS(ctx context.Context, opts NATSOptions) (*NATS, error) {
	if opts.Bucket == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "NATS", "ConnectNATS", "bucket name")
	}
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(opts.URL,
		nats.Timeout(opts.ConnectTimeout),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
	)
	if err != nil {
		return nil, errors.WrapTransient(err, "NATS", "ConnectNATS", "dial "+opts.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "NATS", "ConnectNATS", "jetstream init")
	}

	kv, err := js.KeyValue(ctx, opts.Bucket)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrBucketNotFound) && opts.CreateBucket {
			kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: opts.Bucket})
		}
		if err != nil {
			conn.Close()
			return nil, errors.WrapTransient(err, "NATS", "ConnectNATS", "bind bucket "+opts.Bucket)
		}
	}

	logger.Info("kvstore connected", "url", opts.URL, "bucket", opts.Bucket)

	return &NATS{conn: conn, kv: kv, opts: opts, logger: logger}, nil
}

// Read returns the value stored under key.
func (n *NATS) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := n.applyTimeout(ctx)
	defer cancel()

	entry, err := retry.DoWithResult(ctx, n.opts.Retry, func() (jetstream.KeyValueEntry, error) {
		e, err := n.kv.Get(ctx, sanitizeKey(key))
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, retry.NonRetryable(errors.ErrKeyNotFound)
		}
		return e, err
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.WrapTransient(err, "NATS", "Read", "get "+key)
	}
	return entry.Value(), nil
}

// Write stores value under key, creating or replacing it.
func (n *NATS) Write(ctx context.Context, key string, value []byte) error {
	ctx, cancel := n.applyTimeout(ctx)
	defer cancel()

	err := retry.Do(ctx, n.opts.Retry, func() error {
		_, err := n.kv.Put(ctx, sanitizeKey(key), value)
		return err
	})
	if err != nil {
		return errors.WrapTransient(err, "NATS", "Write", "put "+key)
	}
	return nil
}

// Delete removes key, reporting ErrKeyNotFound if it was absent.
func (n *NATS) Delete(ctx context.Context, key string) error {
	ctx, cancel := n.applyTimeout(ctx)
	defer cancel()

	sane := sanitizeKey(key)
	if _, err := n.kv.Get(ctx, sane); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return errors.ErrKeyNotFound
		}
		return errors.WrapTransient(err, "NATS", "Delete", "get "+key)
	}

	// Purge rather than Delete so the bucket does not accumulate tombstones
	// for entity churn.
	if err := n.kv.Purge(ctx, sane); err != nil {
		return errors.WrapTransient(err, "NATS", "Delete", "purge "+key)
	}
	return nil
}

// Close releases the underlying NATS connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *NATS) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.opts.OperationTimeout > 0 {
		return context.WithTimeout(ctx, n.opts.OperationTimeout)
	}
	return ctx, func() {}
}

// sanitizeKey maps the manager colon convention onto JetStream-legal keys.
func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}
