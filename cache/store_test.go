package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreRoundtrip(t *testing.T, store Store) {
	const url = "http://example.com/page"

	_, ok := store.Lookup(url)
	assert.False(t, ok)
	_, ok = store.Load(url)
	assert.False(t, ok)

	modified := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	body := []byte("<html>hello</html>")
	require.NoError(t, store.Put(url, body, modified))

	got, ok := store.Lookup(url)
	require.True(t, ok)
	assert.Equal(t, modified.Unix(), got.Unix())

	loaded, ok := store.Load(url)
	require.True(t, ok)
	assert.Equal(t, body, loaded)

	// Overwrite wins.
	require.NoError(t, store.Put(url, []byte("new"), modified.Add(time.Hour)))
	loaded, _ = store.Load(url)
	assert.Equal(t, []byte("new"), loaded)
}

func TestMemStore(t *testing.T) {
	testStoreRoundtrip(t, NewMemStore())
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenBolt(path)
	require.NoError(t, err)
	defer store.Close()

	testStoreRoundtrip(t, store)
}

func TestBoltStoreEmptyBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenBolt(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("u", nil, time.Unix(100, 0)))

	body, ok := store.Load("u")
	require.True(t, ok)
	assert.Empty(t, body)
}
