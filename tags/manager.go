package tags

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
	indexKey = "tags"

	// rebuildConcurrency bounds parallel store reads during index rebuild.
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
	OpDeleted ChangeOp = "deleted"
)

// ChangeListener receives a notification after a mutation has been persisted.
// Listeners run synchronously on the mutating goroutine and must not block.
type ChangeListener func(op ChangeOp, def Definition)

// Manager is a persistent, mutable index of tag definitions. Definitions are
// cached in memory and mirrored to a key-value store under "tags" (the ID
// index) and "tags:{id}" (one record per tag). Supply a scoped store via
// kvstore.Scoped to namespace multiple managers in one bucket.
//
// The in-memory index is rebuilt lazily from the store on the first public
// call. A failed rebuild is retried on the next call, never cached.
type Manager struct {
	store kvstore.Store
	log   *slog.Logger

	initMu sync.Mutex
	ready  atomic.Bool

	// writeMu serializes mutations so the entity records and the index key
	// cannot diverge under concurrent writers.
	writeMu sync.Mutex

	mu     sync.RWMutex
	byID   map[string]Definition
	byName map[string]string // lower-cased name -> ID

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

// NewManager creates a tag manager over the given store. The store is not
// touched until the first public operation.
func NewManager(store kvstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		log:    slog.Default(),
		byID:   make(map[string]Definition),
		byName: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "tags.Manager")
	return m
}

// OnChange registers a listener notified after every successful mutation.
func (m *Manager) OnChange(fn ChangeListener) {
	m.listMu.Lock()
	defer m.listMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(op ChangeOp, def Definition) {
	m.listMu.Lock()
	listeners := make([]ChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listMu.Unlock()

	for _, fn := range listeners {
		fn(op, def.clone())
	}
}

// ensureReady rebuilds the in-memory index from the store exactly once.
// Concurrent first callers serialize on initMu; only a successful rebuild
// flips ready, so a store outage during rebuild is retryable.
func (m *Manager) ensureReady(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.ready.Load() {
		return nil
	}

	byID, byName, err := m.rebuild(ctx)
	if err != nil {
		return errors.WrapTransient(err, "tags.Manager", "ensureReady", "index rebuild")
	}

	m.mu.Lock()
	m.byID = byID
	m.byName = byName
	m.mu.Unlock()
	m.ready.Store(true)

	m.log.Info("tag index rebuilt", "tags", len(byID))
	return nil
}

// rebuild reads the ID index and then every listed record. Orphaned or
// corrupt individual records are skipped so one bad entry cannot poison the
// whole index; store-level failures abort the rebuild.
func (m *Manager) rebuild(ctx context.Context) (map[string]Definition, map[string]string, error) {
	ids, err := kvstore.ReadJSON[[]string](ctx, m.store, indexKey)
	if err != nil {
		if kvstore.IsNotFound(err) {
			return make(map[string]Definition), make(map[string]string), nil
		}
		return nil, nil, err
	}

	var (
		resMu  sync.Mutex
		byID   = make(map[string]Definition, len(ids))
		byName = make(map[string]string, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			def, err := kvstore.ReadJSON[Definition](gctx, m.store, entityKey(id))
			if err != nil {
				if kvstore.IsNotFound(err) || errors.IsFatal(err) {
					m.log.Warn("skipping unreadable tag record", "tag_id", id, "error", err)
					return nil
				}
				return err
			}

			resMu.Lock()
			byID[def.ID] = def
			byName[strings.ToLower(def.Name)] = def.ID
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return byID, byName, nil
}

// AddOrUpdate persists def, replacing any existing definition with the same
// ID. The index key is only rewritten when the set of IDs changes; a pure
// value update writes a single record.
func (m *Manager) AddOrUpdate(ctx context.Context, def Definition) error {
	if def.ID == "" || def.Name == "" {
		return errors.WrapInvalid(errors.ErrValidation, "tags.Manager", "AddOrUpdate", "definition validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	def = def.clone()

	// Entity record first: a crash before the index write leaves an orphan
	// that the next rebuild simply skips.
	if err := kvstore.WriteJSON(ctx, m.store, entityKey(def.ID), def); err != nil {
		return errors.WrapTransient(err, "tags.Manager", "AddOrUpdate", "record write")
	}

	m.mu.Lock()
	prev, existed := m.byID[def.ID]
	m.mu.Unlock()

	if !existed {
		if err := m.writeIndex(ctx, def.ID, ""); err != nil {
			return errors.WrapTransient(err, "tags.Manager", "AddOrUpdate", "index write")
		}
	}

	m.mu.Lock()
	if existed && !strings.EqualFold(prev.Name, def.Name) {
		delete(m.byName, strings.ToLower(prev.Name))
	}
	m.byID[def.ID] = def
	m.byName[strings.ToLower(def.Name)] = def.ID
	m.mu.Unlock()

	op := OpUpdated
	if !existed {
		op = OpAdded
	}
	m.log.Debug("tag stored", "tag_id", def.ID, "name", def.Name, "op", string(op))
	m.notify(op, def)
	return nil
}

// Delete removes the tag with the given ID. Deleting an unknown ID is a
// no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrValidation, "tags.Manager", "Delete", "id validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	def, existed := m.byID[id]
	m.mu.RUnlock()
	if !existed {
		return nil
	}

	if err := m.store.Delete(ctx, entityKey(id)); err != nil && !kvstore.IsNotFound(err) {
		return errors.WrapTransient(err, "tags.Manager", "Delete", "record delete")
	}
	if err := m.writeIndex(ctx, "", id); err != nil {
		return errors.WrapTransient(err, "tags.Manager", "Delete", "index write")
	}

	m.mu.Lock()
	delete(m.byID, id)
	if m.byName[strings.ToLower(def.Name)] == id {
		delete(m.byName, strings.ToLower(def.Name))
	}
	m.mu.Unlock()

	m.log.Debug("tag deleted", "tag_id", id, "name", def.Name)
	m.notify(OpDeleted, def)
	return nil
}

// writeIndex persists the current ID set, applying the pending add/remove.
// Callers hold writeMu.
func (m *Manager) writeIndex(ctx context.Context, adding, removing string) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.byID)+1)
	for id := range m.byID {
		if id != removing {
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

// Get returns the definition with the given ID. The second return is false
// when no such tag exists.
func (m *Manager) Get(ctx context.Context, id string) (Definition, bool, error) {
	if err := m.ensureReady(ctx); err != nil {
		return Definition{}, false, err
	}

	m.mu.RLock()
	def, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return Definition{}, false, nil
	}
	return def.clone(), true, nil
}

// GetByName returns the definition with the given name, case-insensitively.
func (m *Manager) GetByName(ctx context.Context, name string) (Definition, bool, error) {
	if err := m.ensureReady(ctx); err != nil {
		return Definition{}, false, err
	}

	m.mu.RLock()
	id, ok := m.byName[strings.ToLower(name)]
	var def Definition
	if ok {
		def = m.byID[id]
	}
	m.mu.RUnlock()
	if !ok {
		return Definition{}, false, nil
	}
	return def.clone(), true, nil
}

// GetTags resolves a mixed list of tag IDs and names. Each reference is tried
// as an ID first, then as a case-insensitive name. Unresolvable references
// are skipped rather than failing the whole call.
func (m *Manager) GetTags(ctx context.Context, refs []string) ([]Definition, error) {
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Definition, 0, len(refs))
	for _, ref := range refs {
		def, ok := m.byID[ref]
		if !ok {
			var id string
			if id, ok = m.byName[strings.ToLower(ref)]; ok {
				def = m.byID[id]
			}
		}
		if ok {
			out = append(out, def.clone())
		}
	}
	return out, nil
}

// List returns every definition ordered by name.
func (m *Manager) List(ctx context.Context) ([]Definition, error) {
	return m.Search(ctx, "*", 1, 0)
}

// Search returns definitions whose name or description matches the glob
// pattern ('*' and '?'), ordered case-insensitively by name. Pages are
// 1-based; a pageSize of 0 disables paging and returns every match.
func (m *Manager) Search(ctx context.Context, pattern string, page, pageSize int) ([]Definition, error) {
	if page < 1 || pageSize < 0 {
		return nil, errors.WrapInvalid(errors.ErrValidation, "tags.Manager", "Search", "paging validation")
	}
	if err := m.ensureReady(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matched := make([]Definition, 0, len(m.byID))
	for _, def := range m.byID {
		if wildcard.Match(pattern, def.Name) || wildcard.Match(pattern, def.Description) {
			matched = append(matched, def.clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		ni, nj := strings.ToLower(matched[i].Name), strings.ToLower(matched[j].Name)
		if ni != nj {
			return ni < nj
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, page, pageSize), nil
}

// Count returns the number of indexed tags.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if err := m.ensureReady(ctx); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
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
