package stream

import (
	"sync/atomic"
)

// Statistics tracks queue throughput with atomic counters. Stats are always
// collected; callers inspect them through Queue.Stats.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	drops     atomic.Int64
	overflows atomic.Int64
}

// Write records a successful enqueue.
func (s *Statistics) Write() {
	s.writes.Add(1)
}

// Read records a successful dequeue.
func (s *Statistics) Read() {
	s.reads.Add(1)
}

// Drop records an item dropped by overflow policy.
func (s *Statistics) Drop() {
	s.drops.Add(1)
}

// Overflow records a rejected Push (Reject policy).
func (s *Statistics) Overflow() {
	s.overflows.Add(1)
}

// Writes returns the number of items enqueued.
func (s *Statistics) Writes() int64 {
	return s.writes.Load()
}

// Reads returns the number of items dequeued.
func (s *Statistics) Reads() int64 {
	return s.reads.Load()
}

// Drops returns the number of items dropped.
func (s *Statistics) Drops() int64 {
	return s.drops.Load()
}

// Overflows returns the number of rejected pushes.
func (s *Statistics) Overflows() int64 {
	return s.overflows.Load()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Writes    int64 `json:"writes"`
	Reads     int64 `json:"reads"`
	Drops     int64 `json:"drops"`
	Overflows int64 `json:"overflows"`
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Writes:    s.Writes(),
		Reads:     s.Reads(),
		Drops:     s.Drops(),
		Overflows: s.Overflows(),
	}
}
