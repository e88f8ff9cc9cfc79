package store_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rda/examples/people"
	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/internal/store"
	"github.com/zeusync/rda/internal/store/localfs"
	"github.com/zeusync/rda/pkg/encoding"
	"github.com/zeusync/rda/pkg/rda"
)

func newStore(t *testing.T, opts ...store.Option) (*store.Store, *localfs.Backend) {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	s, err := store.New(backend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, backend
}

func TestStore_PutGet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "p1", &people.Point{X: 3, Y: 4}))

	var p people.Point
	require.NoError(t, s.Get(ctx, "p1", &p))
	assert.Equal(t, people.Point{X: 3, Y: 4}, p)

	raw, err := s.Raw(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, `|\|3|4`, raw)
}

func TestStore_CustomCodec(t *testing.T) {
	codec, err := rda.NewCodec(rda.WithDelimiters("/+"), rda.WithEscape('%'))
	require.NoError(t, err)
	s, _ := newStore(t, store.WithCodec(codec))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "p", &people.Point{X: 1, Y: 2}))
	raw, err := s.Raw(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "/%/1/2", raw)

	var p people.Point
	require.NoError(t, s.Get(ctx, "p", &p))
	assert.Equal(t, people.Point{X: 1, Y: 2}, p)
}

func TestStore_Missing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	target := people.Point{X: 9, Y: 9}
	err := s.Get(ctx, "nope", &target)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Equal(t, people.Point{X: 9, Y: 9}, target)

	assert.True(t, errors.Is(s.Delete(ctx, "nope"), store.ErrNotFound))
}

func TestStore_ChecksumMismatch(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	require.NoError(t, backend.Write(ctx, "bad", store.Record{Data: `|\|3|4`, Sum: 1}))

	target := people.Point{X: 1, Y: 1}
	err := s.Get(ctx, "bad", &target)
	require.Error(t, err)
	assert.True(t, encoding.IsDecodingError(err))
	assert.True(t, errors.Is(err, store.ErrChecksum))
	assert.Equal(t, people.Point{X: 1, Y: 1}, target)
}

func TestStore_DecodeFailureIsDecodingError(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	text := `|\|3`
	require.NoError(t, backend.Write(ctx, "short", store.Record{Data: text, Sum: store.Checksum(text)}))

	var p people.Point
	err := s.Get(ctx, "short", &p)
	assert.True(t, encoding.IsDecodingError(err))
	assert.True(t, errors.Is(err, encoding.ErrMissing))
}

func TestStore_InvalidKeys(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, ".hidden", "with space", "tab\tkey"} {
		err := s.Put(ctx, key, &people.Point{})
		assert.True(t, errors.Is(err, store.ErrInvalidKey), "key %q", key)
	}
	assert.NoError(t, store.ValidateKey(store.NewKey()))
}

func TestStore_DeleteAndKeys(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(ctx, key, &people.Point{}))
	}
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, s.Delete(ctx, "b"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestStore_EncodeFailureWritesNothing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	var nilPoint *people.Point
	err := s.Put(ctx, "nil", nilPoint)
	assert.True(t, encoding.IsEncodingError(err))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_SaveLoadNeedsRegistry(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, "x", &people.Point{}), store.ErrNoRegistry)
	_, err := s.Load(ctx, "x")
	assert.ErrorIs(t, err, store.ErrNoRegistry)
}

func TestStore_SaveLoadHeterogeneous(t *testing.T) {
	reg := encoding.NewRegistry()
	require.NoError(t, people.Register(reg))
	s, _ := newStore(t, store.WithRegistry(reg))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "point", &people.Point{X: 1, Y: 2}))
	require.NoError(t, s.Save(ctx, "addr", &people.Address{Lines: "x|y", Zip: "z"}))

	out, err := s.Load(ctx, "point")
	require.NoError(t, err)
	assert.Equal(t, &people.Point{X: 1, Y: 2}, out)

	out, err = s.Load(ctx, "addr")
	require.NoError(t, err)
	assert.Equal(t, &people.Address{Lines: "x|y", Zip: "z"}, out)
}

func TestStore_Logs(t *testing.T) {
	var buf bytes.Buffer
	s, backend := newStore(t, store.WithLogger(log.NewWriter(&buf, log.LevelDebug)))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "p", &people.Point{X: 1, Y: 2}))
	assert.Contains(t, buf.String(), `"logger":"store"`)
	assert.Contains(t, buf.String(), `"key":"p"`)

	require.NoError(t, backend.Write(ctx, "bad", store.Record{Data: "x", Sum: 0}))
	_ = s.Get(ctx, "bad", &people.Point{})
	assert.Contains(t, buf.String(), "checksum mismatch")
}

func TestPutAll(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	items := make(map[string]encoding.Serializable)
	for i := 0; i < 25; i++ {
		items[fmt.Sprintf("p%02d", i)] = &people.Point{X: i, Y: -i}
	}
	require.NoError(t, store.PutAll(ctx, s, items, 4))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 25)

	var p people.Point
	require.NoError(t, s.Get(ctx, "p17", &p))
	assert.Equal(t, people.Point{X: 17, Y: -17}, p)
}

func TestPutAll_StopsOnError(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	var nilPoint *people.Point
	items := map[string]encoding.Serializable{
		"good": &people.Point{X: 1},
		"bad":  nilPoint,
	}
	err := store.PutAll(ctx, s, items, 1)
	assert.True(t, encoding.IsEncodingError(err))

	err = store.PutAll(ctx, s, map[string]encoding.Serializable{"a/b": &people.Point{}}, 1)
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestLoadAll(t *testing.T) {
	reg := encoding.NewRegistry()
	require.NoError(t, people.Register(reg))
	s, _ := newStore(t, store.WithRegistry(reg))
	ctx := context.Background()

	values, _ := people.Samples()
	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = fmt.Sprintf("v%d", i)
		require.NoError(t, s.Save(ctx, keys[i], v))
	}

	out, err := store.LoadAll(ctx, s, keys, 2)
	require.NoError(t, err)
	require.Len(t, out, len(values))
	for i := range values {
		assert.Equal(t, values[i], out[i])
	}
}

func TestLoadAll_Errors(t *testing.T) {
	reg := encoding.NewRegistry()
	require.NoError(t, people.Register(reg))
	s, _ := newStore(t, store.WithRegistry(reg))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "here", &people.Point{X: 1}))

	out, err := store.LoadAll(ctx, s, []string{"here", "gone"}, 1)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = store.LoadAll(ctx, s, []string{"here", "../x"}, 1)
	assert.ErrorIs(t, err, store.ErrInvalidKey)

	bare, _ := newStore(t)
	_, err = store.LoadAll(ctx, bare, []string{"here"}, 1)
	assert.ErrorIs(t, err, store.ErrNoRegistry)
}

func TestStore_PutRejectsInvalidUTF8(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.Put(ctx, "bad", &people.Address{Lines: "a\xffb"})
	assert.True(t, encoding.IsEncodingError(err))
	assert.ErrorIs(t, err, rda.ErrInvalidText)

	_, err = s.Raw(ctx, "bad")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNew_NilBackend(t *testing.T) {
	_, err := store.New(nil)
	assert.ErrorIs(t, err, store.ErrNilBackend)
}
