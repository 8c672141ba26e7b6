package cache

import (
	"runtime"
	"sync"
)

// refBox is a heap object wrapping a cached value. A finalizer attached to
// it pushes the owning key onto the store's reclaim queue the moment the
// garbage collector decides refBox is unreachable, which is what gives this
// package reference semantics close to Java's SoftReference/WeakReference:
// Go has no language-level soft/weak pointers, but "an indirection the GC
// can finalize, observed through a queue" is the same trick translated into
// Go's own primitives (runtime.SetFinalizer plus a channel).
type refBox struct {
	value any
}

// referenceStore backs both Soft and Weak: values live behind a
// finalized refBox, so they can be reclaimed by the GC once nothing else
// references them. strongCapacity entries are additionally kept alive in a
// most-recent deque of direct references — Soft uses a 256-entry deque to
// protect its hottest keys from reclamation; Weak uses a zero-capacity
// deque, so nothing holds a value alive beyond the box itself.
type referenceStore struct {
	mu             sync.Mutex
	delegate       Store // maps key -> *refBox
	strongCapacity int
	strongOrder    []any // most-recent-first
	strongByKey    map[any]any
	reclaimed      chan any
}

func newReferenceStore(delegate Store, strongCapacity int) *referenceStore {
	return &referenceStore{
		delegate:       delegate,
		strongCapacity: strongCapacity,
		strongByKey:    make(map[any]any),
		reclaimed:      make(chan any, 4096),
	}
}

// Soft wraps delegate so values may be reclaimed under memory pressure,
// protecting the 256 most recently touched entries from reclamation.
func Soft(delegate Store) Store {
	return newReferenceStore(delegate, 256)
}

// Weak wraps delegate so values may be reclaimed as soon as nothing else
// references them; no entry is protected.
func Weak(delegate Store) Store {
	return newReferenceStore(delegate, 0)
}

func (s *referenceStore) ID() string { return s.delegate.ID() }

func (s *referenceStore) Size() int {
	s.prune()
	return s.delegate.Size()
}

func (s *referenceStore) Put(key, value any) {
	box := &refBox{value: value}
	runtime.SetFinalizer(box, s.finalizerFor(key))
	s.delegate.Put(key, box)
	s.protect(key, value)
	s.prune()
}

func (s *referenceStore) Get(key any) (any, bool) {
	s.prune()
	v, ok := s.delegate.Get(key)
	if !ok {
		return nil, false
	}
	box := v.(*refBox)
	s.protect(key, box.value)
	return box.value, true
}

func (s *referenceStore) Remove(key any) (any, bool) {
	s.unprotect(key)
	v, ok := s.delegate.Remove(key)
	if !ok {
		return nil, false
	}
	return v.(*refBox).value, true
}

func (s *referenceStore) Clear() {
	s.mu.Lock()
	s.strongOrder = nil
	s.strongByKey = make(map[any]any)
	s.mu.Unlock()
	s.delegate.Clear()
}

func (s *referenceStore) finalizerFor(key any) func(*refBox) {
	return func(*refBox) {
		select {
		case s.reclaimed <- key:
		default:
		}
	}
}

// prune drains the reclaim queue, removing any key whose box has already
// been finalized. Called at the top of every operation, so reclaimed
// entries are pruned lazily rather than on a background goroutine.
func (s *referenceStore) prune() {
	for {
		select {
		case key := <-s.reclaimed:
			s.delegate.Remove(key)
		default:
			return
		}
	}
}

func (s *referenceStore) protect(key, value any) {
	if s.strongCapacity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strongByKey[key]; !ok {
		s.strongOrder = append([]any{key}, s.strongOrder...)
		if len(s.strongOrder) > s.strongCapacity {
			evicted := s.strongOrder[s.strongCapacity:]
			s.strongOrder = s.strongOrder[:s.strongCapacity]
			for _, k := range evicted {
				delete(s.strongByKey, k)
			}
		}
	}
	s.strongByKey[key] = value
}

func (s *referenceStore) unprotect(key any) {
	if s.strongCapacity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strongByKey[key]; !ok {
		return
	}
	delete(s.strongByKey, key)
	for i, k := range s.strongOrder {
		if k == key {
			s.strongOrder = append(s.strongOrder[:i], s.strongOrder[i+1:]...)
			break
		}
	}
}
