package feature

import (
	"context"

	"github.com/c360/adapterkit/assetmodel"
	"github.com/c360/adapterkit/events"
	"github.com/c360/adapterkit/health"
	"github.com/c360/adapterkit/stream"
	"github.com/c360/adapterkit/subscription"
	"github.com/c360/adapterkit/tags"
)

// TagSearch finds tag definitions by pattern or by reference.
type TagSearch interface {
	// SearchTags streams definitions whose name or description matches the
	// glob pattern, ordered by name, selecting the given 1-based page.
	SearchTags(ctx context.Context, pattern string, page, pageSize int) (*stream.Queue[tags.Definition], error)

	// GetTags streams the definitions for a mixed list of IDs and names.
	// Unresolvable references are omitted.
	GetTags(ctx context.Context, refs []string) (*stream.Queue[tags.Definition], error)
}

// SnapshotRead resolves the current value of tags on demand.
type SnapshotRead interface {
	ReadSnapshots(ctx context.Context, tagIDs []string) (*stream.Queue[tags.Value], error)
}

// SnapshotPush delivers ongoing snapshot value changes for one tag.
type SnapshotPush interface {
	SubscribeSnapshots(ctx context.Context, tagID string) (*subscription.Subscription[string, tags.Value], error)
}

// AssetModelBrowse navigates the asset-node forest.
type AssetModelBrowse interface {
	GetNode(ctx context.Context, id string) (assetmodel.Node, bool, error)
	BrowseNodes(ctx context.Context, parentID string, page, pageSize int) (*stream.Queue[assetmodel.Node], error)
	SearchNodes(ctx context.Context, pattern string, page, pageSize int) (*stream.Queue[assetmodel.Node], error)
}

// EventPush delivers ongoing alarm/event messages for one category.
type EventPush interface {
	SubscribeEvents(ctx context.Context, category string) (*subscription.Subscription[string, events.Message], error)
}

// HealthPush delivers ongoing health status changes for one component.
type HealthPush interface {
	SubscribeHealth(ctx context.Context, component string) (*subscription.Subscription[string, health.Status], error)
}

// Change describes one mutation to the adapter's tag or node catalog,
// delivered through the configuration-changes feature.
type Change struct {
	Entity string `json:"entity"` // "tag" or "node"
	Op     string `json:"op"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// ConfigurationChanges delivers ongoing catalog mutations for one entity
// kind ("tag" or "node").
type ConfigurationChanges interface {
	SubscribeChanges(ctx context.Context, entity string) (*subscription.Subscription[string, Change], error)
}

// Caller is the dispatch contract satisfied by extension features: named
// operations invoked with opaque JSON payloads.
type Caller interface {
	Descriptor() Descriptor
	CallOperation(ctx context.Context, operation string, input []byte) ([]byte, error)
}

// standardChecks verifies, at registration time, that an implementation
// really satisfies the interface behind a well-known URI.
var standardChecks = map[URI]func(impl any) bool{
	URITagSearch:        func(impl any) bool { _, ok := impl.(TagSearch); return ok },
	URISnapshotRead:     func(impl any) bool { _, ok := impl.(SnapshotRead); return ok },
	URISnapshotPush:     func(impl any) bool { _, ok := impl.(SnapshotPush); return ok },
	URIAssetModelBrowse: func(impl any) bool { _, ok := impl.(AssetModelBrowse); return ok },
	URIEventPush:        func(impl any) bool { _, ok := impl.(EventPush); return ok },
	URIHealthPush:       func(impl any) bool { _, ok := impl.(HealthPush); return ok },
	URIConfigChanges:    func(impl any) bool { _, ok := impl.(ConfigurationChanges); return ok },
}
