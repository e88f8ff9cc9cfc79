package redisstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rda/internal/store"
)

func newTestBackend(t *testing.T, opts ...Option) (*Backend, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	backend, err := New(client, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		srv.Close()
	})
	return backend, srv
}

func TestBackend_WriteRead(t *testing.T) {
	b, srv := newTestBackend(t)
	ctx := context.Background()

	rec := store.Record{Data: `|\|3|4`, Sum: store.Checksum(`|\|3|4`)}
	require.NoError(t, b.Write(ctx, "p", rec))

	got, err := b.Read(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	assert.Equal(t, `|\|3|4`, srv.HGet("rda:p", "data"))
	assert.Equal(t, fmt.Sprintf("%x", rec.Sum), srv.HGet("rda:p", "sum"))
}

func TestBackend_Missing(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Read(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(b.Remove(ctx, "missing"), store.ErrNotFound))
}

func TestBackend_Corrupt(t *testing.T) {
	b, srv := newTestBackend(t)
	ctx := context.Background()

	srv.HSet("rda:nodata", "sum", "1")
	_, err := b.Read(ctx, "nodata")
	assert.True(t, errors.Is(err, ErrCorrupt))

	srv.HSet("rda:badsum", "data", "x", "sum", "not-hex")
	_, err = b.Read(ctx, "badsum")
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestBackend_ListWithPrefix(t *testing.T) {
	b, srv := newTestBackend(t, WithPrefix("app:"))
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, b.Write(ctx, fmt.Sprintf("k%03d", i), store.Record{Data: "x"}))
	}
	require.NoError(t, srv.Set("other:key", "ignored"))

	keys, err := b.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 250)
	assert.Contains(t, keys, "k042")

	require.NoError(t, b.Remove(ctx, "k042"))
	assert.False(t, srv.Exists("app:k042"))
}

func TestBackend_Store(t *testing.T) {
	b, _ := newTestBackend(t)
	s, err := store.New(b)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", &pair{A: "x;y", B: "z"}))

	var out pair
	require.NoError(t, s.Get(ctx, "a", &out))
	assert.Equal(t, pair{A: "x;y", B: "z"}, out)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func TestDial(t *testing.T) {
	srv := miniredis.RunT(t)

	b, err := Dial(srv.Addr())
	require.NoError(t, err)
	require.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Close())

	_, err = Dial("")
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}
