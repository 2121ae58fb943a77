package testutil

import (
	"context"
	"sync"

	"github.com/c360/adapterkit/kvstore"
)

// CountingStore wraps a kvstore.Store and counts operations per key. All
// counters are safe for concurrent use.
type CountingStore struct {
	inner kvstore.Store

	mu      sync.Mutex
	reads   map[string]int
	writes  map[string]int
	deletes map[string]int

	failRead  error
	failWrite error
}

// NewCountingStore wraps inner, defaulting to a fresh in-memory store when
// inner is nil.
func NewCountingStore(inner kvstore.Store) *CountingStore {
	if inner == nil {
		inner = kvstore.NewInMemory()
	}
	return &CountingStore{
		inner:   inner,
		reads:   make(map[string]int),
		writes:  make(map[string]int),
		deletes: make(map[string]int),
	}
}

// FailReads makes every subsequent Read return err until cleared with nil.
func (s *CountingStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = err
}

// FailWrites makes every subsequent Write return err until cleared with nil.
func (s *CountingStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = err
}

func (s *CountingStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.reads[key]++
	failErr := s.failRead
	s.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	return s.inner.Read(ctx, key)
}

func (s *CountingStore) Write(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes[key]++
	failErr := s.failWrite
	s.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	return s.inner.Write(ctx, key, value)
}

func (s *CountingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deletes[key]++
	s.mu.Unlock()
	return s.inner.Delete(ctx, key)
}

// Reads returns how many times key has been read.
func (s *CountingStore) Reads(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[key]
}

// Writes returns how many times key has been written.
func (s *CountingStore) Writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

// Deletes returns how many times key has been deleted.
func (s *CountingStore) Deletes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[key]
}
