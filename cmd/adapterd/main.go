// Package main implements adapterd, a small host that runs one simulated
// adapter end to end: a tag catalog and asset model persisted to a key-value
// store, a snapshot push feed fed by a random-walk poller, and the guarded
// feature surface, with Prometheus metrics exposed over HTTP.
//
// It exists as a smoke host and wiring example; real deployments embed the
// adapter packages into their own hosting process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/c360/adapterkit/adapter"
	"github.com/c360/adapterkit/assetmodel"
	"github.com/c360/adapterkit/config"
	"github.com/c360/adapterkit/feature"
	"github.com/c360/adapterkit/health"
	"github.com/c360/adapterkit/kvstore"
	"github.com/c360/adapterkit/metric"
	"github.com/c360/adapterkit/scheduler"
	"github.com/c360/adapterkit/subscription"
	"github.com/c360/adapterkit/tags"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "adapterd"

	demoTagID = "rng-1"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	opts, err := loadOptions(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid", "adapter", opts.ID)
		return nil
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cliCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := metric.NewMetricsRegistry()
	pool := scheduler.NewPool(scheduler.DefaultPoolOptions(),
		scheduler.WithMetricsRegistry(registry, appName))
	defer func() { _ = pool.Stop(5 * time.Second) }()

	h, err := buildHost(opts, store, registry, pool)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}

	if err := h.seedCatalog(ctx); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	if err := h.adapter.Start(ctx); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}
	slog.Info("Adapter running",
		"adapter", h.adapter.ID(),
		"features", len(h.adapter.Registry().URIs()),
		"metrics_port", cliCfg.MetricsPort)

	stopMetrics := serveMetrics(cliCfg.MetricsPort, registry)
	defer stopMetrics()

	h.demoSubscriber(ctx)

	return waitForShutdown(h.adapter, cliCfg.ShutdownTimeout)
}

func loadOptions(cliCfg *CLIConfig) (config.Options, error) {
	if cliCfg.ConfigPath == "" {
		return config.DefaultOptions("demo-rng"), nil
	}
	opts, err := config.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return config.Options{}, fmt.Errorf("load config: %w", err)
	}
	return opts, nil
}

// openStore connects the key-value collaborator: a NATS JetStream bucket
// when a URL is configured, an in-memory store otherwise.
func openStore(ctx context.Context, cliCfg *CLIConfig) (kvstore.Store, func(), error) {
	if cliCfg.NATSURL == "" {
		slog.Info("Using in-memory key-value store")
		return kvstore.NewInMemory(), func() {}, nil
	}

	natsOpts := kvstore.DefaultNATSOptions(appName)
	natsOpts.URL = cliCfg.NATSURL
	store, err := kvstore.ConnectNATS(ctx, natsOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect NATS: %w", err)
	}
	slog.Info("Connected to NATS key-value store", "url", cliCfg.NATSURL)
	return store, store.Close, nil
}

// host ties the simulated adapter's pieces together.
type host struct {
	adapter   *adapter.Adapter
	tags      *tags.Manager
	nodes     *assetmodel.Manager
	snapshots *feature.SnapshotFeed
}

// buildHost assembles the simulated adapter: managers over the store, the
// capability registrations, and a random-walk snapshot poller.
func buildHost(
	opts config.Options,
	store kvstore.Store,
	registry *metric.MetricsRegistry,
	pool *scheduler.Pool,
) (*host, error) {
	a, err := adapter.New(opts, adapter.WithMetrics(registry.CoreMetrics()))
	if err != nil {
		return nil, err
	}

	scoped := kvstore.Scoped(store, opts.ID)
	tagMgr := tags.NewManager(scoped)
	nodeMgr := assetmodel.NewManager(scoped)

	subOpts := subscription.Options{
		QueueCapacity: opts.QueueCapacity,
		PollInterval:  opts.PollInterval,
	}

	walk := newRandomWalk()
	snapshots := feature.NewSnapshotFeed(tagMgr, subOpts,
		subscription.WithPoller(walk.poll),
		subscription.WithScheduler[string, tags.Value](pool),
		subscription.WithMetrics[string, tags.Value](registry.CoreMetrics()))
	changes := feature.NewChangeFeed(tagMgr, nodeMgr, subOpts,
		subscription.WithMetrics[string, feature.Change](registry.CoreMetrics()))
	healthFeed := feature.NewHealthFeed(a.Health(), subOpts,
		subscription.WithMetrics[string, health.Status](registry.CoreMetrics()))

	reg := a.Registry()
	registrations := []struct {
		uri  feature.URI
		impl any
	}{
		{feature.URITagSearch, feature.NewTagSearch(tagMgr)},
		{feature.URIAssetModelBrowse, feature.NewAssetModelBrowse(nodeMgr)},
		{feature.URISnapshotRead, feature.NewSnapshotRead(walk.read)},
		{feature.URISnapshotPush, snapshots},
		{feature.URIConfigChanges, changes},
		{feature.URIHealthPush, healthFeed},
	}
	for _, r := range registrations {
		if err := reg.Register(feature.StandardDescriptor(r.uri), r.impl); err != nil {
			return nil, err
		}
	}

	if opts.EagerPump {
		a.OnStart("snapshot-feed", snapshots.Start)
	}
	a.OnStop("snapshot-feed", func(context.Context) error {
		snapshots.Dispose()
		return nil
	})
	a.OnStop("change-feed", func(context.Context) error {
		changes.Dispose()
		return nil
	})
	a.OnStop("health-feed", func(context.Context) error {
		healthFeed.Dispose()
		return nil
	})

	return &host{adapter: a, tags: tagMgr, nodes: nodeMgr, snapshots: snapshots}, nil
}

// seedCatalog writes a handful of demo tags and a small asset tree, skipping
// records that already exist from a previous run.
func (h *host) seedCatalog(ctx context.Context) error {
	if _, ok, err := h.tags.Get(ctx, demoTagID); err != nil {
		return err
	} else if ok {
		return nil
	}

	def, err := tags.NewDefinition("Random Walk").
		WithID(demoTagID).
		WithDescription("simulated drifting measurement").
		WithDataType(tags.DataTypeFloat).
		WithProperty("unit", "none").
		WithSnapshotRead().
		WithSnapshotPush().
		Build()
	if err != nil {
		return err
	}
	if err := h.tags.AddOrUpdate(ctx, def); err != nil {
		return err
	}

	plant, err := assetmodel.NewNode("Demo Plant").WithID("plant").Build()
	if err != nil {
		return err
	}
	if err := h.nodes.AddOrUpdate(ctx, plant); err != nil {
		return err
	}

	unit, err := assetmodel.NewNode("RNG Unit").
		WithID("rng-unit").
		WithParent("plant").
		WithTag(demoTagID).
		Build()
	if err != nil {
		return err
	}
	return h.nodes.AddOrUpdate(ctx, unit)
}

// serveMetrics exposes the Prometheus registry over HTTP.
func serveMetrics(port int, registry *metric.MetricsRegistry) func() {
	if port <= 0 {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// demoSubscriber subscribes to the demo tag through the guarded feature
// surface and logs a few pushed values.
func (h *host) demoSubscriber(ctx context.Context) {
	cc := feature.CallContext{CallerID: appName}
	push, err := h.adapter.Features().SnapshotPush()
	if err != nil {
		slog.Warn("Snapshot push unavailable", "error", err)
		return
	}

	sub, err := push.SubscribeSnapshots(ctx, cc, demoTagID)
	if err != nil {
		slog.Warn("Demo subscription failed", "error", err)
		return
	}

	go func() {
		defer sub.Close()
		for range 5 {
			v, err := sub.Recv(ctx)
			if err != nil {
				return
			}
			slog.Info("Snapshot", "tag", v.TagID, "value", v.Value, "ts", v.Timestamp)
		}
	}()
}

func waitForShutdown(a *adapter.Adapter, timeout time.Duration) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig.String())

	if err := a.Stop(timeout); err != nil {
		return fmt.Errorf("stop adapter: %w", err)
	}
	return nil
}

// randomWalk simulates a backing system: each tag holds a drifting value.
type randomWalk struct {
	mu     sync.Mutex
	values map[string]float64
}

func newRandomWalk() *randomWalk {
	return &randomWalk{values: make(map[string]float64)}
}

func (w *randomWalk) step(tagID string) tags.Value {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values[tagID] += rand.Float64()*2 - 1
	return tags.NewValue(tagID, time.Now(), w.values[tagID])
}

func (w *randomWalk) poll(_ context.Context, keys []string) ([]tags.Value, error) {
	out := make([]tags.Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, w.step(k))
	}
	return out, nil
}

func (w *randomWalk) read(_ context.Context, tagIDs []string) ([]tags.Value, error) {
	return w.poll(context.Background(), tagIDs)
}
