package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the Store contract every backend must satisfy.
func exercise(t *testing.T, store Store) {
	t.Helper()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	entry := Entry{Summary: "模型发布了新版本", IsTech: true}
	require.NoError(t, store.Put("abc123", entry))

	got, err := store.Get("abc123")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	// Overwrite wins.
	require.NoError(t, store.Put("abc123", Entry{Summary: "更新后的摘要"}))
	got, err = store.Get("abc123")
	require.NoError(t, err)
	assert.Equal(t, "更新后的摘要", got.Summary)
	assert.False(t, got.IsTech)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	defer store.Close()
	exercise(t, store)
	assert.Equal(t, 1, store.Len())
}

func TestBadgerStore(t *testing.T) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)

	store := NewBadgerFromDB(db)
	defer store.Close()
	exercise(t, store)
}

func TestBadgerCorruptValueIsMiss(t *testing.T) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("bad"), []byte("not json"))
	}))

	store := NewBadgerFromDB(db)
	_, err = store.Get("bad")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)

	store, err := NewRedis(srv.Addr())
	require.NoError(t, err)
	defer store.Close()
	exercise(t, store)

	// Keys are namespaced so other users of the same server stay
	// untangled.
	assert.True(t, srv.Exists("summary:abc123"))
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedis("127.0.0.1:1")
	assert.Error(t, err)
}
