package hashcache

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "phash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGet(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put("p1", 0xDEADBEEFCAFEBABE))
	hash, ok, err := store.Get("p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xDEADBEEFCAFEBABE), hash)
}

func TestStore_HighBitRoundTrip(t *testing.T) {
	store := openTestStore(t)

	// Hashes with the top bit set must survive the signed column.
	for _, h := range []uint64{math.MaxUint64, 1 << 63, 0} {
		require.NoError(t, store.Put("p", h))
		got, ok, err := store.Get("p")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, h, got)
	}
}

func TestStore_Replace(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put("p1", 1))
	require.NoError(t, store.Put("p1", 2))

	hash, ok, err := store.Get("p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), hash)

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Clear(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put("p1", 1))
	require.NoError(t, store.Put("p2", 2))
	require.NoError(t, store.Clear())

	n, err := store.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}
