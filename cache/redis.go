package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

// redisStore is the distributed, second-level store option: a namespace
// cache configured with this as its base talks to Redis instead of an
// in-process map, so entries survive process restarts and are shared across
// instances. It sits at the same position in a decorator chain as
// NewMapStore.
type redisStore struct {
	id       string
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	newValue func() any
}

// NewRedisStore returns a Store backed by client, namespaced under prefix.
// newValue must return a fresh pointer of the value's concrete type, used
// to decode each Get. A zero ttl means entries never expire.
func NewRedisStore(id string, client redis.UniversalClient, prefix string, ttl time.Duration, newValue func() any) Store {
	return &redisStore{id: id, client: client, prefix: prefix, ttl: ttl, newValue: newValue}
}

func (s *redisStore) ID() string { return s.id }

func (s *redisStore) fullKey(key any) string {
	return s.prefix + ":" + toKeyString(key)
}

func toKeyString(key any) string {
	if str, ok := key.(string); ok {
		return str
	}
	if str, ok := key.(interface{ String() string }); ok {
		return str.String()
	}
	b, err := msgpack.Marshal(key)
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *redisStore) Size() int {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, s.prefix+":*").Result()
	if err != nil {
		return 0
	}
	return len(keys)
}

func (s *redisStore) Put(key, value any) {
	b, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	s.client.Set(context.Background(), s.fullKey(key), b, s.ttl)
}

func (s *redisStore) Get(key any) (any, bool) {
	b, err := s.client.Get(context.Background(), s.fullKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	dest := s.newValue()
	if err := msgpack.Unmarshal(b, dest); err != nil {
		return nil, false
	}
	return dest, true
}

func (s *redisStore) Remove(key any) (any, bool) {
	v, ok := s.Get(key)
	if ok {
		s.client.Del(context.Background(), s.fullKey(key))
	}
	return v, ok
}

func (s *redisStore) Clear() {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, s.prefix+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	s.client.Del(ctx, keys...)
}
