package cache

import (
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// ristrettoStore is a high-throughput, admission-policy-backed base store
// option for a namespace cache: unlike the hand-rolled lruStore (whose
// eviction order must be exactly "bump on Put, evict strict least-recent"),
// ristretto trades strict
// ordering for a TinyLFU admission policy and sharded counters, the right
// tradeoff for a second-level cache under heavy concurrent read/write load
// where exact eviction order doesn't matter, only hit ratio and throughput.
// This is the same role ariga/entcache gives ristretto as ent's
// second-level cache store.
type ristrettoStore struct {
	id    string
	cache *ristretto.Cache
	size  int64
}

// RistrettoConfig configures NewRistrettoStore. Zero or negative values fall
// back to NumCounters 1e4, MaxCost 1e4, and BufferItems 64.
type RistrettoConfig struct {
	// NumCounters should be about 10x the expected number of distinct keys
	// the store will hold, per ristretto's own sizing guidance.
	NumCounters int64
	// MaxCost bounds the store's total cost (here, one unit per entry,
	// since this store doesn't weigh entries by size).
	MaxCost int64
	// BufferItems is ristretto's internal ring-buffer size per shard.
	BufferItems int64
}

// NewRistrettoStore returns a Store backed by a dgraph-io/ristretto cache,
// an alternative to NewMapStore+LRU for a namespace's base store.
func NewRistrettoStore(id string, cfg RistrettoConfig) (Store, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 1e4
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1e4
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoStore{id: id, cache: c}, nil
}

func (s *ristrettoStore) ID() string { return s.id }

func (s *ristrettoStore) Size() int { return int(atomic.LoadInt64(&s.size)) }

func (s *ristrettoStore) Put(key, value any) {
	if s.cache.Set(key, value, 1) {
		atomic.AddInt64(&s.size, 1)
	}
	s.cache.Wait()
}

func (s *ristrettoStore) Get(key any) (any, bool) {
	return s.cache.Get(key)
}

func (s *ristrettoStore) Remove(key any) (any, bool) {
	v, ok := s.cache.Get(key)
	if ok {
		s.cache.Del(key)
		atomic.AddInt64(&s.size, -1)
	}
	return v, ok
}

func (s *ristrettoStore) Clear() {
	s.cache.Clear()
	atomic.StoreInt64(&s.size, 0)
}
