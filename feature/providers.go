package feature

import (
	"context"

	"github.com/c360/adapterkit/assetmodel"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/events"
	"github.com/c360/adapterkit/health"
	"github.com/c360/adapterkit/stream"
	"github.com/c360/adapterkit/subscription"
	"github.com/c360/adapterkit/tags"
)

// NewTagSearch adapts a tag manager to the TagSearch capability.
func NewTagSearch(m *tags.Manager) TagSearch {
	return &tagSearchProvider{m: m}
}

type tagSearchProvider struct {
	m *tags.Manager
}

func (p *tagSearchProvider) SearchTags(ctx context.Context, pattern string, page, pageSize int) (*stream.Queue[tags.Definition], error) {
	defs, err := p.m.Search(ctx, pattern, page, pageSize)
	if err != nil {
		return nil, err
	}
	return stream.FromSlice(defs), nil
}

func (p *tagSearchProvider) GetTags(ctx context.Context, refs []string) (*stream.Queue[tags.Definition], error) {
	defs, err := p.m.GetTags(ctx, refs)
	if err != nil {
		return nil, err
	}
	return stream.FromSlice(defs), nil
}

// NewAssetModelBrowse adapts an asset-model manager to the AssetModelBrowse
// capability.
func NewAssetModelBrowse(m *assetmodel.Manager) AssetModelBrowse {
	return &assetBrowseProvider{m: m}
}

type assetBrowseProvider struct {
	m *assetmodel.Manager
}

func (p *assetBrowseProvider) GetNode(ctx context.Context, id string) (assetmodel.Node, bool, error) {
	return p.m.Get(ctx, id)
}

func (p *assetBrowseProvider) BrowseNodes(ctx context.Context, parentID string, page, pageSize int) (*stream.Queue[assetmodel.Node], error) {
	nodes, err := p.m.GetChildren(ctx, parentID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return stream.FromSlice(nodes), nil
}

func (p *assetBrowseProvider) SearchNodes(ctx context.Context, pattern string, page, pageSize int) (*stream.Queue[assetmodel.Node], error) {
	nodes, err := p.m.Search(ctx, pattern, page, pageSize)
	if err != nil {
		return nil, err
	}
	return stream.FromSlice(nodes), nil
}

// SnapshotReadFunc resolves current values for the given tag IDs against the
// adapter's backing system.
type SnapshotReadFunc func(ctx context.Context, tagIDs []string) ([]tags.Value, error)

// NewSnapshotRead adapts a backend read function to the SnapshotRead
// capability.
func NewSnapshotRead(read SnapshotReadFunc) SnapshotRead {
	return &snapshotReadProvider{read: read}
}

type snapshotReadProvider struct {
	read SnapshotReadFunc
}

func (p *snapshotReadProvider) ReadSnapshots(ctx context.Context, tagIDs []string) (*stream.Queue[tags.Value], error) {
	values, err := p.read(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	return stream.FromSlice(values), nil
}

// SnapshotFeed implements the SnapshotPush capability over a subscription
// manager. Subscriptions are validated against the tag manager: the tag must
// exist and be flagged for snapshot push. Adapters either install a poller
// or publish values from their own domain logic.
type SnapshotFeed struct {
	mgr *subscription.Manager[string, tags.Value]
}

// NewSnapshotFeed creates a snapshot push feed over tagMgr's catalog.
func NewSnapshotFeed(tagMgr *tags.Manager, opts subscription.Options, options ...subscription.Option[string, tags.Value]) *SnapshotFeed {
	options = append(options, subscription.WithValidator[string, tags.Value](
		func(ctx context.Context, tagID string) error {
			def, ok, err := tagMgr.Get(ctx, tagID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.ErrKeyNotFound
			}
			if !def.Features.SnapshotPush {
				return errors.ErrFeatureUnsupported
			}
			return nil
		}))

	return &SnapshotFeed{
		mgr: subscription.NewManager("snapshot-push", func(v tags.Value) string { return v.TagID }, opts, options...),
	}
}

// SubscribeSnapshots implements SnapshotPush.
func (f *SnapshotFeed) SubscribeSnapshots(ctx context.Context, tagID string) (*subscription.Subscription[string, tags.Value], error) {
	return f.mgr.Subscribe(ctx, tagID)
}

// Publish feeds one value into the fan-out, for adapters that push from
// their own domain logic instead of polling.
func (f *SnapshotFeed) Publish(value tags.Value) error {
	return f.mgr.Publish(value)
}

// Start runs the polling pump eagerly when a poller is installed.
func (f *SnapshotFeed) Start(ctx context.Context) error {
	return f.mgr.Start(ctx)
}

// Dispose shuts the feed down, completing every subscriber queue.
func (f *SnapshotFeed) Dispose() {
	f.mgr.Dispose()
}

// EventFeed implements the EventPush capability. Messages are routed by
// category; subscribing to an empty category receives uncategorized
// messages only.
type EventFeed struct {
	mgr *subscription.Manager[string, events.Message]
}

// NewEventFeed creates an event push feed.
func NewEventFeed(opts subscription.Options, options ...subscription.Option[string, events.Message]) *EventFeed {
	return &EventFeed{
		mgr: subscription.NewManager("event-push", func(m events.Message) string { return m.Category }, opts, options...),
	}
}

// SubscribeEvents implements EventPush.
func (f *EventFeed) SubscribeEvents(ctx context.Context, category string) (*subscription.Subscription[string, events.Message], error) {
	return f.mgr.Subscribe(ctx, category)
}

// Publish feeds one event message into the fan-out.
func (f *EventFeed) Publish(msg events.Message) error {
	return f.mgr.Publish(msg)
}

// Dispose shuts the feed down, completing every subscriber queue.
func (f *EventFeed) Dispose() {
	f.mgr.Dispose()
}

// HealthFeed implements the HealthPush capability by forwarding every
// health.Monitor update to subscribers of the updated component.
type HealthFeed struct {
	mgr *subscription.Manager[string, health.Status]
}

// NewHealthFeed creates a health push feed wired to monitor's updates.
func NewHealthFeed(monitor *health.Monitor, opts subscription.Options, options ...subscription.Option[string, health.Status]) *HealthFeed {
	f := &HealthFeed{
		mgr: subscription.NewManager("health-push", func(s health.Status) string { return s.Component }, opts, options...),
	}
	monitor.OnChange(func(status health.Status) {
		_ = f.mgr.Publish(status)
	})
	return f
}

// SubscribeHealth implements HealthPush.
func (f *HealthFeed) SubscribeHealth(ctx context.Context, component string) (*subscription.Subscription[string, health.Status], error) {
	return f.mgr.Subscribe(ctx, component)
}

// Dispose shuts the feed down, completing every subscriber queue.
func (f *HealthFeed) Dispose() {
	f.mgr.Dispose()
}

// ChangeFeed implements the ConfigurationChanges capability by forwarding
// tag and node catalog mutations to subscribers of the matching entity
// kind.
type ChangeFeed struct {
	mgr *subscription.Manager[string, Change]
}

// Entity kinds routed by the change feed.
const (
	EntityTag  = "tag"
	EntityNode = "node"
)

// NewChangeFeed creates a configuration-change feed. Either manager may be
// nil when the adapter does not maintain that catalog.
func NewChangeFeed(tagMgr *tags.Manager, nodeMgr *assetmodel.Manager, opts subscription.Options, options ...subscription.Option[string, Change]) *ChangeFeed {
	options = append(options, subscription.WithValidator[string, Change](
		func(_ context.Context, entity string) error {
			if entity != EntityTag && entity != EntityNode {
				return errors.ErrValidation
			}
			return nil
		}))

	f := &ChangeFeed{
		mgr: subscription.NewManager("configuration-changes", func(c Change) string { return c.Entity }, opts, options...),
	}
	if tagMgr != nil {
		tagMgr.OnChange(func(op tags.ChangeOp, def tags.Definition) {
			_ = f.mgr.Publish(Change{Entity: EntityTag, Op: string(op), ID: def.ID, Name: def.Name})
		})
	}
	if nodeMgr != nil {
		nodeMgr.OnChange(func(op assetmodel.ChangeOp, node assetmodel.Node) {
			_ = f.mgr.Publish(Change{Entity: EntityNode, Op: string(op), ID: node.ID, Name: node.Name})
		})
	}
	return f
}

// SubscribeChanges implements ConfigurationChanges.
func (f *ChangeFeed) SubscribeChanges(ctx context.Context, entity string) (*subscription.Subscription[string, Change], error) {
	return f.mgr.Subscribe(ctx, entity)
}

// Dispose shuts the feed down, completing every subscriber queue.
func (f *ChangeFeed) Dispose() {
	f.mgr.Dispose()
}
