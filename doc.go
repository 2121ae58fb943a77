// Package adapterkit is an SDK for building industrial process-data adapters:
// components that expose time-series tag values, event streams, and
// asset-model hierarchies from heterogeneous backing systems (historians,
// brokers, flat files) through one uniform feature contract.
//
// # Philosophy: Capabilities, Not Class Hierarchies
//
// An adapter does not inherit from a fixed base class that enumerates every
// possible operation. Instead it registers a dynamic set of typed features
// (capabilities) with its feature registry:
//
//   - Tag search: browse and filter the measurement catalog
//   - Snapshot poll/push: current values, by request or by subscription
//   - Event push: alarm and event message streams
//   - Asset model browse: the equipment hierarchy, linked to tags
//   - Health push: adapter health status changes
//
// A hosting application discovers what an adapter can do at runtime via the
// registry and invokes features through a wrapper layer that enforces call
// validation, authorization, and observability uniformly, so individual
// adapters never re-implement those concerns.
//
// AdapterKit MUST NOT contain:
//   - Transport bindings (HTTP, gRPC, SignalR-style hubs)
//   - Authorization policy engines (only the yes/no gate contract)
//   - Concrete adapter implementations for specific protocols
//
// Those belong to hosting layers and protocol-specific modules that consume
// the contracts defined here.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│         Hosting Application         │  Transports, DI, policy
//	│    (external, out of this module)   │
//	└─────────────────────────────────────┘
//	           ↓ resolves features via
//	┌─────────────────────────────────────┐
//	│   Adapter + Feature Registry        │  Lifecycle, capability
//	│  (adapter, feature packages)        │  lookup, wrapping
//	└─────────────────────────────────────┘
//	           ↓ dispatches to
//	┌─────────────────────────────────────┐
//	│  Managers and Subscriptions         │  Tag/asset indexes,
//	│ (tags, assetmodel, subscription)    │  push multiplexing
//	└─────────────────────────────────────┘
//	           ↓ persists through
//	┌─────────────────────────────────────┐
//	│        Key-Value Store              │  In-memory or NATS
//	│        (kvstore package)            │  JetStream KV
//	└─────────────────────────────────────┘
//
// # Core Packages
//
//   - adapter: the adapter lifecycle state machine, feature attachment,
//     and health aggregation
//   - feature: feature descriptors, the capability registry, extension
//     features with runtime-described operations, and the wrapper layer
//   - stream: the single bounded, cancellable value-sequence abstraction
//     used by every streaming feature
//   - subscription: the generic fan-out multiplexer behind every push
//     feature (snapshot, event, health, configuration changes)
//   - tags, assetmodel: persistent named-entity managers with glob search
//     and paging
//   - kvstore: the persistence collaborator contract plus in-memory and
//     NATS JetStream KV implementations
//   - scheduler: the background-work collaborator that bounds long-running
//     pump and initialization tasks
//
// # Fan-Out Pattern (Push Subscriptions)
//
// Every push feature shares one multiplexer design: a single background pump
// reads from one upstream source and distributes each value to every
// subscriber whose key matches, through private bounded queues.
//
//	                ┌─────────────┐
//	                │   Upstream  │
//	                │ (poll/push) │
//	                └──────┬──────┘
//	                       │ one pump task
//	     ┌─────────────────┼─────────────────┐
//	     ↓                 ↓                 ↓
//	┌────────┐       ┌──────────┐      ┌──────────┐
//	│ Queue A│       │ Queue B  │      │ Queue C  │
//	│ (sub 1)│       │ (sub 2)  │      │ (sub 3)  │
//	└────────┘       └──────────┘      └──────────┘
//
// Benefits:
//   - Upstream work is proportional to active interest, not subscriber count
//   - A slow subscriber never delays delivery to the others
//   - Subscribers attach and detach while the pump keeps running
//
// # Getting Started
//
//	store := kvstore.NewInMemory()
//
//	a, err := adapter.New(config.DefaultOptions("plant-a"))
//	if err != nil { ... }
//
//	tm := tags.NewManager(kvstore.Scoped(store, a.ID()))
//	err = a.Registry().Register(
//		feature.StandardDescriptor(feature.URITagSearch),
//		feature.NewTagSearch(tm))
//
//	if err := a.Start(ctx); err != nil { ... }
//	defer a.Stop(5 * time.Second)
//
//	search, ok := adapter.GetFeature[feature.TagSearch](a)
package adapterkit
