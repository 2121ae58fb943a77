package assetmodel

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/kvstore"
	"github.com/c360/adapterkit/pkg/wildcard"
)

const (
	indexKey = "nodes"

	rebuildConcurrency = 8
)

func entityKey(id string) string {
	return indexKey + ":" + id
}

// ChangeOp identifies what a change notification describes.
type ChangeOp string

// Change operations reported to listeners.
const (
	OpAdded   ChangeOp = "added"
	OpUpdated ChangeOp = "updated"
	OpMoved   ChangeOp = "moved"
	OpDeleted ChangeOp = "deleted"
)

// ChangeListener receives a notification after a mutation has been persisted.
// Listeners run synchronously on the mutating goroutine and must not block.
type ChangeListener func(op ChangeOp, node Node)

// Manager is a persistent, mutable index of asset-model nodes. Nodes are
// cached in memory and mirrored to a key-value store under "nodes" (the ID
// index) and "nodes:{id}" (one record per node). Supply a scoped store via
// kvstore.Scoped to namespace multiple managers in one bucket.
//
// Every mutating operation re-derives the HasChildren flag of the parents it
// affects, so node.HasChildren always reflects the current parent pointers.
type Manager struct {
	store kvstore.Store
	log   *slog.Logger

	initMu sync.Mutex
	ready  atomic.Bool

	// writeMu serializes mutations so node records and the index key cannot
	// diverge under concurrent writers.
	writeMu sync.Mutex

	mu   sync.RWMutex
	byID map[string]Node

	listMu    sync.Mutex
	listeners []ChangeListener
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates an asset-model manager over the given store. The store
// is not touched until the first public operation.
func NewManager(store kvstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		log:   slog.Default(),
		byID:  make(map[string]Node),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "assetmodel.Manager")
	return m
}

// OnChange registers a listener notified after every successful mutation.
func (m *Manager) OnChange(fn ChangeListener) {
	m.listMu.Lock()
	defer m.listMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(op ChangeOp, node Node) {
	m.listMu.Lock()
	listeners := make([]ChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listMu.Unlock()

	for _, fn := range listeners {
		fn(op, node.clone())
	}
}

func (m *Manager) ensureReady(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.ready.Load() {
		return nil
	}

	byID, err := m.rebuild(ctx)
	if err != nil {
		return errors.WrapTransient(err, "assetmodel.Manager", "ensureReady", "index rebuild")
	}

	// Re-derive HasChildren in memory: skipped orphans or a crash between a
	// node write and its parent's flag update can leave stale flags behind.
	for id, node := range byID {
		node.HasChildren = hasChildrenIn(byID, id)
		byID[id] = node
	}

	m.mu.Lock()
	m.byID = byID
	m.mu.Unlock()
	m.ready.Store(true)

	m.log.Info("node index rebuilt", "nodes", len(byID))
	return nil
}

func (m *Manager) rebuild(ctx context.Context) (map[string]Node, error) {
	ids, err := kvstore.ReadJSON[[]string](ctx, m.store, indexKey)
	if err != nil {
		if kvstore.IsNotFound(err) {
			return make(map[string]Node), nil
		}
		return nil, err
	}

	var (
		resMu sync.Mutex
		byID  = make(map[string]Node, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			node, err := kvstore.ReadJSON[Node](gctx, m.store, entityKey(id))
			if err != nil {
				if kvstore.IsNotFound(err) || errors.IsFatal(err) {
					m.log.Warn("skipping unreadable node record", "node_id", id, "error", err)
					return nil
				}
				return err
			}

			resMu.Lock()
			byID[node.ID] = node
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byID, nil
}

func hasChildrenIn(byID map[string]Node, id string) bool {
	for _, n := range byID {
		if n.ParentID == id {
			return true
		}
	}
	return false
}

// AddOrUpdate persists node, replacing any existing node with the same ID.
// The parent, when set, must exist. Reparenting through an update is subject
// to the same ancestor-cycle check as Move. The index key is only rewritten
// when the set of IDs changes.
func (m *Manager) AddOrUpdate(ctx context.Context, node Node) error {
	if node.ID == "" || node.Name == "" {
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "AddOrUpdate", "node validation")
	}
	if node.ParentID == node.ID {
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "AddOrUpdate", "parent validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	prev, existed := m.byID[node.ID]
	if node.ParentID != "" {
		if _, ok := m.byID[node.ParentID]; !ok {
			m.mu.RUnlock()
			return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "AddOrUpdate", "parent lookup")
		}
		if m.isAncestorLocked(node.ID, node.ParentID) {
			m.mu.RUnlock()
			return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "AddOrUpdate", "cycle check")
		}
	}
	node.HasChildren = existed && hasChildrenIn(m.byID, node.ID)
	m.mu.RUnlock()

	node = node.clone()

	// Node record first: a crash before the index write leaves an orphan
	// that the next rebuild simply skips.
	if err := kvstore.WriteJSON(ctx, m.store, entityKey(node.ID), node); err != nil {
		return errors.WrapTransient(err, "assetmodel.Manager", "AddOrUpdate", "record write")
	}

	if !existed {
		if err := m.writeIndex(ctx, node.ID, nil); err != nil {
			return errors.WrapTransient(err, "assetmodel.Manager", "AddOrUpdate", "index write")
		}
	}

	m.mu.Lock()
	m.byID[node.ID] = node
	m.mu.Unlock()

	if err := m.refreshParent(ctx, node.ParentID); err != nil {
		return err
	}
	if existed && prev.ParentID != node.ParentID {
		if err := m.refreshParent(ctx, prev.ParentID); err != nil {
			return err
		}
	}

	op := OpUpdated
	if !existed {
		op = OpAdded
	}
	m.log.Debug("node stored", "node_id", node.ID, "name", node.Name, "op", string(op))
	m.notify(op, node)
	return nil
}

// Delete removes the node and, recursively, every descendant found by
// scanning current parent pointers. The former parent's HasChildren flag is
// re-derived afterwards. Deleting an unknown ID is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Delete", "id validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	root, existed := m.byID[id]
	var doomed []Node
	if existed {
		doomed = m.collectSubtreeLocked(id)
	}
	m.mu.RUnlock()
	if !existed {
		return nil
	}

	for _, node := range doomed {
		if err := m.store.Delete(ctx, entityKey(node.ID)); err != nil && !kvstore.IsNotFound(err) {
			return errors.WrapTransient(err, "assetmodel.Manager", "Delete", "record delete")
		}
	}

	removing := make(map[string]bool, len(doomed))
	for _, node := range doomed {
		removing[node.ID] = true
	}
	if err := m.writeIndex(ctx, "", removing); err != nil {
		return errors.WrapTransient(err, "assetmodel.Manager", "Delete", "index write")
	}

	m.mu.Lock()
	for _, node := range doomed {
		delete(m.byID, node.ID)
	}
	m.mu.Unlock()

	if err := m.refreshParent(ctx, root.ParentID); err != nil {
		return err
	}

	m.log.Debug("node deleted", "node_id", id, "descendants", len(doomed)-1)
	for _, node := range doomed {
		m.notify(OpDeleted, node)
	}
	return nil
}

// Move reparents a node. Moving to the current parent is a no-op that
// succeeds without a write. Moves to a nonexistent parent, to the node
// itself, or to any of the node's own descendants are rejected. Both the old
// and new parent get their HasChildren flag re-derived.
func (m *Manager) Move(ctx context.Context, id, newParentID string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Move", "id validation")
	}
	if id == newParentID {
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Move", "parent validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	node, ok := m.byID[id]
	if !ok {
		m.mu.RUnlock()
		return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Move", "node lookup")
	}
	if node.ParentID == newParentID {
		m.mu.RUnlock()
		return nil
	}
	if newParentID != "" {
		if _, ok := m.byID[newParentID]; !ok {
			m.mu.RUnlock()
			return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Move", "parent lookup")
		}
		if m.isAncestorLocked(id, newParentID) {
			m.mu.RUnlock()
			return errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Move", "cycle check")
		}
	}
	m.mu.RUnlock()

	oldParent := node.ParentID
	node.ParentID = newParentID

	if err := kvstore.WriteJSON(ctx, m.store, entityKey(node.ID), node); err != nil {
		return errors.WrapTransient(err, "assetmodel.Manager", "Move", "record write")
	}

	m.mu.Lock()
	m.byID[node.ID] = node
	m.mu.Unlock()

	if err := m.refreshParent(ctx, oldParent); err != nil {
		return err
	}
	if err := m.refreshParent(ctx, newParentID); err != nil {
		return err
	}

	m.log.Debug("node moved", "node_id", id, "old_parent", oldParent, "new_parent", newParentID)
	m.notify(OpMoved, node)
	return nil
}

// isAncestorLocked reports whether candidate is id itself or sits below id in
// the forest, by walking candidate's ancestor chain. Callers hold mu.
func (m *Manager) isAncestorLocked(id, candidate string) bool {
	seen := make(map[string]bool)
	for cur := candidate; cur != ""; {
		if cur == id {
			return true
		}
		if seen[cur] {
			return false // pre-existing cycle, treat as unreachable
		}
		seen[cur] = true
		node, ok := m.byID[cur]
		if !ok {
			return false
		}
		cur = node.ParentID
	}
	return false
}

// collectSubtreeLocked gathers id and all its descendants breadth-first. The
// visited set guards against pre-existing cycles in stored data. Callers
// hold mu.
func (m *Manager) collectSubtreeLocked(id string) []Node {
	visited := map[string]bool{id: true}
	out := []Node{m.byID[id]}

	for i := 0; i < len(out); i++ {
		for _, n := range m.byID {
			if n.ParentID == out[i].ID && !visited[n.ID] {
				visited[n.ID] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// refreshParent re-derives the parent's HasChildren flag, persisting the
// record only when the flag actually changed. Callers hold writeMu.
func (m *Manager) refreshParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}

	m.mu.RLock()
	parent, ok := m.byID[parentID]
	var has bool
	if ok {
		has = hasChildrenIn(m.byID, parentID)
	}
	m.mu.RUnlock()
	if !ok || parent.HasChildren == has {
		return nil
	}

	parent.HasChildren = has
	if err := kvstore.WriteJSON(ctx, m.store, entityKey(parentID), parent); err != nil {
		return errors.WrapTransient(err, "assetmodel.Manager", "refreshParent", "record write")
	}

	m.mu.Lock()
	m.byID[parentID] = parent
	m.mu.Unlock()
	return nil
}

// writeIndex persists the current ID set, applying the pending add or
// removals. Callers hold writeMu.
func (m *Manager) writeIndex(ctx context.Context, adding string, removing map[string]bool) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byID)+1)
	for id := range m.byID {
		if !removing[id] {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	if adding != "" {
		ids = append(ids, adding)
	}
	sort.Strings(ids)
	return kvstore.WriteJSON(ctx, m.store, indexKey, ids)
}

// Get returns the node with the given ID. The second return is false when no
// such node exists.
func (m *Manager) Get(ctx context.Context, id string) (Node, bool, error) {
	if err := m.ensureReady(ctx); err != nil {
		return Node{}, false, err
	}

	m.mu.RLock()
	node, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return Node{}, false, nil
	}
	return node.clone(), true, nil
}

// GetChildren returns the direct children of parentID ordered by name. An
// empty parentID returns the forest roots. Pages are 1-based; a pageSize of
// 0 disables paging.
func (m *Manager) GetChildren(ctx context.Context, parentID string, page, pageSize int) ([]Node, error) {
	if page < 1 || pageSize < 0 {
		return nil, errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "GetChildren", "paging validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	children := make([]Node, 0)
	for _, n := range m.byID {
		if n.ParentID == parentID {
			children = append(children, n.clone())
		}
	}
	m.mu.RUnlock()

	sortNodes(children)
	return paginate(children, page, pageSize), nil
}

// GetRoots returns the forest roots ordered by name.
func (m *Manager) GetRoots(ctx context.Context) ([]Node, error) {
	return m.GetChildren(ctx, "", 1, 0)
}

// Search returns nodes whose name or description matches the glob pattern
// ('*' and '?'), ordered case-insensitively by name. Pages are 1-based; a
// pageSize of 0 disables paging and returns every match.
func (m *Manager) Search(ctx context.Context, pattern string, page, pageSize int) ([]Node, error) {
	if page < 1 || pageSize < 0 {
		return nil, errors.WrapInvalid(errors.ErrValidation, "assetmodel.Manager", "Search", "paging validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matched := make([]Node, 0, len(m.byID))
	for _, n := range m.byID {
		if wildcard.Match(pattern, n.Name) || wildcard.Match(pattern, n.Description) {
			matched = append(matched, n.clone())
		}
	}
	m.mu.RUnlock()

	sortNodes(matched)
	return paginate(matched, page, pageSize), nil
}

// Count returns the number of indexed nodes.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if err := m.ensureReady(ctx); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		ni, nj := strings.ToLower(nodes[i].Name), strings.ToLower(nodes[j].Name)
		if ni != nj {
			return ni < nj
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize == 0 {
		if page == 1 {
			return items
		}
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
