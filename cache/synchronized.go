package cache

import "sync"

// synchronizedStore puts a single mutex around every delegate operation
// — the coarse option for a delegate chain that
// isn't otherwise safe for concurrent use.
type synchronizedStore struct {
	mu       sync.Mutex
	delegate Store
}

// Synchronized wraps delegate with a single lock shared by all operations.
func Synchronized(delegate Store) Store {
	return &synchronizedStore{delegate: delegate}
}

func (s *synchronizedStore) ID() string { return s.delegate.ID() }

func (s *synchronizedStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delegate.Size()
}

func (s *synchronizedStore) Put(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate.Put(key, value)
}

func (s *synchronizedStore) Get(key any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delegate.Get(key)
}

func (s *synchronizedStore) Remove(key any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delegate.Remove(key)
}

func (s *synchronizedStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate.Clear()
}
