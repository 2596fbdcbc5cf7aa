package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newDBStorageForTest(t *testing.T) ListStorage {
	t.Helper()
	bdb, err := bbolt.Open(filepath.Join(t.TempDir(), "storage.bolt"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, bdb.Close())
	})
	return NewDBStorage(bdb, []byte("blobs")).(ListStorage)
}

func TestDBStoragePutGetDel(t *testing.T) {
	ctx := context.Background()
	s := newDBStorageForTest(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a", []byte("hello")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, s.Del(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDBStorageList(t *testing.T) {
	ctx := context.Background()
	s := newDBStorageForTest(t)

	require.NoError(t, s.Put(ctx, "a", []byte("1")))
	require.NoError(t, s.Put(ctx, "b", []byte("22")))

	seen := map[string]string{}
	err := s.List(ctx, func(id string, b []byte) error {
		seen[id] = string(b)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "22"}, seen)
}

type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string][]byte{}} }

func (m *memStorage) Get(_ context.Context, id string) ([]byte, error) {
	b, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memStorage) Put(_ context.Context, id string, data []byte) error {
	m.objects[id] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) Del(_ context.Context, id string) error {
	delete(m.objects, id)
	return nil
}

func TestCachedStorageServesFromPermanentOnMiss(t *testing.T) {
	ctx := context.Background()
	cache := newDBStorageForTest(t)
	permanent := newMemStorage()
	require.NoError(t, permanent.Put(ctx, "a", []byte("from permanent")))

	cs, err := NewCachedStorage(cache, permanent, 1<<20)
	require.NoError(t, err)

	got, err := cs.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("from permanent"), got)

	// now served from cache.
	cached, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("from permanent"), cached)
}

func TestCachedStoragePutWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	cache := newDBStorageForTest(t)
	permanent := newMemStorage()

	cs, err := NewCachedStorage(cache, permanent, 1<<20)
	require.NoError(t, err)

	require.NoError(t, cs.Put(ctx, "a", []byte("hello")))

	fromPermanent, err := permanent.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), fromPermanent)

	fromCache, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), fromCache)
}

func TestCachedStorageGetMissing(t *testing.T) {
	ctx := context.Background()
	cache := newDBStorageForTest(t)
	permanent := newMemStorage()

	cs, err := NewCachedStorage(cache, permanent, 1<<20)
	require.NoError(t, err)

	_, err = cs.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
