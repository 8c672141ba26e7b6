package cache

import (
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type redisRecord struct{ Name string }

func TestRedisStore_PutGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore("users", client, "users", time.Hour, func() any { return new(redisRecord) })

	b, err := msgpack.Marshal(&redisRecord{Name: "alice"})
	require.NoError(t, err)

	mock.ExpectSet("users:1", b, time.Hour).SetVal("OK")
	s.Put("1", &redisRecord{Name: "alice"})
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectGet("users:1").SetVal(string(b))
	v, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, &redisRecord{Name: "alice"}, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore("users", client, "users", 0, func() any { return new(redisRecord) })

	mock.ExpectGet("users:missing").RedisNil()
	_, ok := s.Get("missing")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Remove(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore("users", client, "users", 0, func() any { return new(redisRecord) })

	b, err := msgpack.Marshal(&redisRecord{Name: "bob"})
	require.NoError(t, err)

	mock.ExpectGet("users:2").SetVal(string(b))
	mock.ExpectDel("users:2").SetVal(1)
	v, ok := s.Remove("2")
	require.True(t, ok)
	assert.Equal(t, &redisRecord{Name: "bob"}, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ClearDeletesAllPrefixedKeys(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore("users", client, "users", 0, func() any { return new(redisRecord) })

	mock.ExpectKeys("users:*").SetVal([]string{"users:1", "users:2"})
	mock.ExpectDel("users:1", "users:2").SetVal(2)
	s.Clear()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Size(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore("users", client, "users", 0, func() any { return new(redisRecord) })

	mock.ExpectKeys("users:*").SetVal([]string{"users:1", "users:2", "users:3"})
	assert.Equal(t, 3, s.Size())
	require.NoError(t, mock.ExpectationsWereMet())
}

type stringerKey struct{ id int }

func (k stringerKey) String() string { return "k" }

func TestRedisStore_KeyStringUsesStringerForNonStringKeys(t *testing.T) {
	assert.Equal(t, "k", toKeyString(stringerKey{id: 5}))
}
