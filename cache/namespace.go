package cache

import "time"

// NamespaceOptions configures NewNamespaceCache.
type NamespaceOptions struct {
	Capacity      int           // LRU capacity over the base store; 0 disables LRU
	ClearInterval time.Duration // Scheduled clear interval; 0 disables Scheduled
	NewValue      func() any    // required: factory for Serialized's decode target
	Base          Store         // optional: defaults to an in-process map store
}

// NewNamespaceCache builds the typical per-mapping-namespace chain:
// Synchronized -> Logging -> Serialized -> Scheduled ->
// LRU -> Base. Each layer is independently usable; this is just the
// chain most statement namespaces actually need.
func NewNamespaceCache(id string, opts NamespaceOptions) Store {
	base := opts.Base
	if base == nil {
		base = NewMapStore(id)
	}
	store := base
	if opts.Capacity > 0 {
		store = LRU(store, opts.Capacity)
	}
	if opts.ClearInterval > 0 {
		store = Scheduled(store, opts.ClearInterval)
	}
	store = Serialized(store, opts.NewValue)
	store = Logging(store)
	store = Synchronized(store)
	return store
}
