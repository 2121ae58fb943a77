// Package health provides health monitoring for adapters and their features.
//
// The Monitor tracks per-component statuses (healthy, degraded, unhealthy)
// and aggregates them into one adapter-level status: any unhealthy component
// makes the adapter unhealthy, otherwise any degraded component makes it
// degraded.
//
// Features and managers attached to an adapter report through the adapter's
// monitor; the health-push feature subscribes to monitor changes via
// OnChange and streams aggregated statuses to remote callers.
package health
