package redisstore

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test"), mr
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestStoreLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	require.NoError(t, s.InsertOne(ctx, "users", docstore.Document{"_id": "u1", "createdAt": ts}))

	assert.True(t, mr.Exists("test:users"))
	raw := mr.HGet("test:users", "u1")
	assert.Contains(t, raw, `"$date":"2026-01-02T03:04:05.000000006Z"`)

	doc, err := s.FindOne(ctx, "users", docstore.Filter{"_id": "u1"})
	require.NoError(t, err)
	got, ok := doc.Time("createdAt")
	require.True(t, ok)
	assert.True(t, got.Equal(ts))
}

type commandLog struct {
	mu    sync.Mutex
	names []string
}

func (l *commandLog) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (l *commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		l.mu.Lock()
		l.names = append(l.names, cmd.Name())
		l.mu.Unlock()
		return next(ctx, cmd)
	}
}

func (l *commandLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (l *commandLog) reset() {
	l.mu.Lock()
	l.names = nil
	l.mu.Unlock()
}

func (l *commandLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func TestWritesByIDSkipCollectionScan(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log := &commandLog{}
	rdb.AddHook(log)
	s := New(rdb, "test")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertOne(ctx, "login_attempts", docstore.Document{"_id": id, "count": int64(1)}))
	}
	log.reset()

	n, err := s.UpdateOne(ctx, "login_attempts", docstore.Filter{"_id": "b"}, docstore.Update{Set: map[string]any{"count": int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.UpdateOne(ctx, "login_attempts", docstore.Filter{"_id": "b", "count": int64(99)}, docstore.Update{Set: map[string]any{"count": int64(2)}})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.DeleteOne(ctx, "login_attempts", docstore.Filter{"_id": "missing"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.DeleteOne(ctx, "login_attempts", docstore.Filter{"_id": "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.NotContains(t, log.seen(), "hgetall")

	doc, err := s.FindOne(ctx, "login_attempts", docstore.Filter{"_id": "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc["count"])
	_, err = s.FindOne(ctx, "login_attempts", docstore.Filter{"_id": "c"})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStoreUnavailable(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Find(context.Background(), "users", docstore.Filter{}, docstore.FindOptions{})
	assert.ErrorIs(t, err, ErrRedisUnavailable)

	_, err = s.UpdateOne(context.Background(), "users", docstore.Filter{}, docstore.Update{})
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestDecodeNumbers(t *testing.T) {
	doc, err := decode([]byte(`{"_id":"x","n":3,"f":1.5,"nested":{"k":[1,"a"]}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc["n"])
	assert.Equal(t, 1.5, doc["f"])
	assert.Equal(t, []any{int64(1), "a"}, doc.Map("nested")["k"])
}
