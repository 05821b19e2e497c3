package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process BucketStore guarded by a single mutex.
// Suitable for single-instance deployments and tests; multi-instance
// deployments should use the SQL-backed store so the counter is shared.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
}

type memBucket struct {
	windowStart time.Time
	count       int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*memBucket)}
}

func (s *MemoryStore) Increment(_ context.Context, key string, windowStart time.Time, _ int, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !b.windowStart.Equal(windowStart) {
		// New bucket, or the window rolled over: count resets to zero
		// exactly at the boundary.
		b = &memBucket{windowStart: windowStart}
		s.buckets[key] = b
	}

	if b.count >= limit {
		return b.count, false, nil
	}
	b.count++
	return b.count, true, nil
}
