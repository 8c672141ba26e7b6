package cache

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/veloxsql/veloxsql/verrors"
)

// serializedStore round-trips every value through msgpack on Put and Get,
// so a caller that mutates a returned value can never see that mutation
// reflected in the cache, and vice versa. msgpack does the actual
// encoding; a hand-rolled encoder would just reimplement what it already
// does well.
type serializedStore struct {
	delegate Store
	newValue func() any
}

// Serialized wraps delegate with msgpack-backed snapshot semantics.
// newValue must return a fresh pointer of the value's concrete type; it is
// used to decode each Get.
func Serialized(delegate Store, newValue func() any) Store {
	return &serializedStore{delegate: delegate, newValue: newValue}
}

func (s *serializedStore) ID() string { return s.delegate.ID() }
func (s *serializedStore) Size() int  { return s.delegate.Size() }

func (s *serializedStore) Put(key, value any) {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	s.delegate.Put(key, b)
}

func (s *serializedStore) Get(key any) (any, bool) {
	raw, ok := s.delegate.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := raw.([]byte)
	if !ok {
		return nil, false
	}
	dest := s.newValue()
	if err := msgpack.Unmarshal(b, dest); err != nil {
		return nil, false
	}
	return dest, true
}

// TryGet is like Get but surfaces a decode failure as a CacheError instead
// of silently treating it as a miss.
func (s *serializedStore) TryGet(key any) (any, bool, error) {
	raw, ok := s.delegate.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := raw.([]byte)
	if !ok {
		return nil, false, verrors.NewCacheError(s.delegate.ID(), "", "serialized value is not []byte", nil)
	}
	dest := s.newValue()
	if err := msgpack.Unmarshal(b, dest); err != nil {
		return nil, false, verrors.NewCacheError(s.delegate.ID(), "", "deserialize", err)
	}
	return dest, true, nil
}

func (s *serializedStore) Remove(key any) (any, bool) {
	raw, ok := s.delegate.Remove(key)
	if !ok {
		return nil, false
	}
	b, ok := raw.([]byte)
	if !ok {
		return nil, true
	}
	dest := s.newValue()
	if err := msgpack.Unmarshal(b, dest); err != nil {
		return nil, true
	}
	return dest, true
}

func (s *serializedStore) Clear() { s.delegate.Clear() }
