package cache

import (
	"sync"
	"time"

	"github.com/veloxsql/veloxsql/verrors"
)

// keyLock is a 1-token channel standing in for a per-key mutex that can be
// acquired with a timeout, acquired by one goroutine, and released by a
// different call (Put/Remove instead of the Get that acquired it) — a shape
// sync.Mutex doesn't support directly.
type keyLock struct {
	token chan struct{}
}

func newKeyLock() *keyLock {
	l := &keyLock{token: make(chan struct{}, 1)}
	l.token <- struct{}{}
	return l
}

func (l *keyLock) acquire(timeout time.Duration) error {
	if timeout <= 0 {
		<-l.token
		return nil
	}
	select {
	case <-l.token:
		return nil
	case <-time.After(timeout):
		return verrors.NewCacheError("", "", "acquire timed out", verrors.ErrBlockingTimeout)
	}
}

func (l *keyLock) release() {
	select {
	case l.token <- struct{}{}:
	default:
	}
}

// blockingStore associates a per-key lock with the delegate: Get acquires
// the key's lock, and if the delegate has no value yet, retains it — only a
// later Put or Remove for the same key releases other waiters, so exactly
// one caller computes a missing value while the rest block.
type blockingStore struct {
	delegate Store
	timeout  time.Duration
	mu       sync.Mutex
	locks    map[any]*keyLock
}

// Blocking wraps delegate so only one caller computes a value for a given
// key at a time; others calling Get for the same key wait until the
// computing caller stores the result (or removes the key). If timeout > 0,
// a waiter gives up after timeout and returns a CacheError wrapping
// verrors.ErrBlockingTimeout.
func Blocking(delegate Store, timeout time.Duration) Store {
	return &blockingStore{delegate: delegate, timeout: timeout, locks: make(map[any]*keyLock)}
}

func (s *blockingStore) lockFor(key any) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = newKeyLock()
		s.locks[key] = l
	}
	return l
}

func (s *blockingStore) ID() string { return s.delegate.ID() }
func (s *blockingStore) Size() int  { return s.delegate.Size() }

// Get acquires key's lock. On a hit, the lock is released immediately. On a
// miss, the lock is left held for the caller to release via Put or Remove.
// A timeout acquiring the lock surfaces as a miss; TryGet reports the
// timeout as an error for callers that need to distinguish the two.
func (s *blockingStore) Get(key any) (any, bool) {
	v, ok, _ := s.TryGet(key)
	return v, ok
}

// TryGet behaves like Get but returns the CacheError wrapping
// verrors.ErrBlockingTimeout when the key's lock could not be acquired
// within the configured timeout.
func (s *blockingStore) TryGet(key any) (any, bool, error) {
	l := s.lockFor(key)
	if err := l.acquire(s.timeout); err != nil {
		return nil, false, err
	}
	v, ok := s.delegate.Get(key)
	if ok {
		l.release()
	}
	return v, ok, nil
}

func (s *blockingStore) Put(key, value any) {
	s.delegate.Put(key, value)
	s.lockFor(key).release()
}

func (s *blockingStore) Remove(key any) (any, bool) {
	v, ok := s.delegate.Remove(key)
	s.lockFor(key).release()
	return v, ok
}

func (s *blockingStore) Clear() {
	s.mu.Lock()
	for _, l := range s.locks {
		l.release()
	}
	s.locks = make(map[any]*keyLock)
	s.mu.Unlock()
	s.delegate.Clear()
}
