package health

import (
	"time"
)

// Well-known status values. Status.Status always holds one of these.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Status is a point-in-time health report for one component. The zero value
// is not meaningful; build statuses through the New* constructors so the
// state string and timestamp are always set.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries optional activity counters alongside a status.
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	ErrorCount   int           `json:"error_count"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
}

func newStatus(state, component, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewHealthy reports component as healthy.
func NewHealthy(component, message string) Status {
	return newStatus(StateHealthy, component, message)
}

// NewDegraded reports component as degraded: still serving, but impaired.
func NewDegraded(component, message string) Status {
	return newStatus(StateDegraded, component, message)
}

// NewUnhealthy reports component as unhealthy.
func NewUnhealthy(component, message string) Status {
	return newStatus(StateUnhealthy, component, message)
}

// IsHealthy reports whether the status is healthy.
func (s Status) IsHealthy() bool { return s.Status == StateHealthy }

// IsDegraded reports whether the status is degraded.
func (s Status) IsDegraded() bool { return s.Status == StateDegraded }

// IsUnhealthy reports whether the status is unhealthy.
func (s Status) IsUnhealthy() bool { return s.Status == StateUnhealthy }

// WithMetrics returns a copy of the status with metrics attached.
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of the status with sub appended. The
// sub-status slice is never shared between copies.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, 0, len(s.SubStatuses)+1)
	subs = append(subs, s.SubStatuses...)
	s.SubStatuses = append(subs, sub)
	return s
}

// Aggregate rolls sub-statuses up into one component status: any unhealthy
// member makes the aggregate unhealthy, otherwise any degraded member makes
// it degraded. An empty set aggregates to healthy.
func Aggregate(component string, subStatuses []Status) Status {
	worst := StateHealthy
	for _, sub := range subStatuses {
		switch {
		case sub.IsUnhealthy():
			worst = StateUnhealthy
		case sub.IsDegraded() && worst == StateHealthy:
			worst = StateDegraded
		}
	}

	var agg Status
	switch worst {
	case StateUnhealthy:
		agg = NewUnhealthy(component, "one or more components unhealthy")
	case StateDegraded:
		agg = NewDegraded(component, "one or more components degraded")
	default:
		agg = NewHealthy(component, "all components healthy")
	}
	agg.SubStatuses = append([]Status(nil), subStatuses...)
	return agg
}
