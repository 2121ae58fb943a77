package health

import (
	"sync"
	"time"
)

// Listener receives the updated status of a single component every time the
// monitor changes. The health-push feature feeds its subscription manager
// from this hook. Listeners are invoked synchronously and must not block.
type Listener func(Status)

// Monitor tracks per-component health for one adapter. All methods are safe
// for concurrent use.
type Monitor struct {
	mu        sync.RWMutex
	byName    map[string]Status
	listeners []Listener
}

// NewMonitor returns an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{byName: make(map[string]Status)}
}

// OnChange registers a listener invoked after every status update.
func (m *Monitor) OnChange(fn Listener) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Update records the status for a named component. The component field and
// a missing timestamp are filled in from the arguments. Listeners fire
// outside the lock.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	m.byName[name] = status
	notify := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range notify {
		fn(status)
	}
}

// UpdateHealthy records a healthy status for name.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded records a degraded status for name.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy records an unhealthy status for name.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns the last recorded status for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.byName[name]
	return status, ok
}

// GetAll returns a copy of every tracked status keyed by component name.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.byName))
	for name, status := range m.byName {
		out[name] = status
	}
	return out
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	delete(m.byName, name)
	m.mu.Unlock()
}

// AggregateHealth rolls every tracked component up into one adapter-level
// status via Aggregate.
func (m *Monitor) AggregateHealth(adapterName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.byName))
	for _, status := range m.byName {
		subs = append(subs, status)
	}
	m.mu.RUnlock()

	return Aggregate(adapterName, subs)
}

// ListComponents returns the names of every tracked component.
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	return names
}

// Count returns the number of tracked components.
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byName)
}

// Clear drops every tracked component. Listeners stay registered.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.byName = make(map[string]Status)
	m.mu.Unlock()
}
