package cache

import (
	"log/slog"
	"sync/atomic"
)

// loggingStore counts hits and misses and logs the running hit ratio on
// every read, the cache-layer analogue of dialect/sql's QueryStats.
type loggingStore struct {
	delegate Store
	hits     atomic.Int64
	misses   atomic.Int64
}

// Logging wraps delegate, counting hits/misses and logging the hit ratio at
// debug level on every Get.
func Logging(delegate Store) Store {
	return &loggingStore{delegate: delegate}
}

func (s *loggingStore) ID() string { return s.delegate.ID() }
func (s *loggingStore) Size() int  { return s.delegate.Size() }

func (s *loggingStore) Put(key, value any) { s.delegate.Put(key, value) }

func (s *loggingStore) Get(key any) (any, bool) {
	v, ok := s.delegate.Get(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	slog.Debug("cache read", "cache", s.delegate.ID(), "hit", ok, "ratio", s.HitRatio())
	return v, ok
}

func (s *loggingStore) Remove(key any) (any, bool) { return s.delegate.Remove(key) }
func (s *loggingStore) Clear()                     { s.delegate.Clear() }

// HitRatio returns hits / (hits + misses), or 0 before any read.
func (s *loggingStore) HitRatio() float64 {
	hits, misses := s.hits.Load(), s.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats returns the raw hit/miss counters.
func (s *loggingStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
