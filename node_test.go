package tripe

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ianloic/tripe.go/store"
)

func newTestStore(t *testing.T) *store.Store {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.tripe"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNodeAddSearch(t *testing.T) {
	s := newTestStore(t)
	root, err := newNode(s)
	require.NoError(t, err)

	require.NoError(t, nodeAdd(s, root, "hello", 42))

	found, err := nodeSearch(s, root, "hello")
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, found)

	// interior nodes along the key exist but hold no matches
	found, err = nodeSearch(s, root, "hel")
	require.NoError(t, err)
	require.Empty(t, found)

	// descending past the key misses
	found, err = nodeSearch(s, root, "helloo")
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = nodeSearch(s, root, "world")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestNodeAddDuplicateKey(t *testing.T) {
	s := newTestStore(t)
	root, err := newNode(s)
	require.NoError(t, err)

	require.NoError(t, nodeAdd(s, root, "this", 10))
	require.NoError(t, nodeAdd(s, root, "this", 11))
	require.NoError(t, nodeAdd(s, root, "this", 12))

	// duplicates accumulate in insertion order
	found, err := nodeSearch(s, root, "this")
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 11, 12}, found)
}

func TestNodeEmptyKey(t *testing.T) {
	s := newTestStore(t)
	root, err := newNode(s)
	require.NoError(t, err)

	require.NoError(t, nodeAdd(s, root, "", 7))
	found, err := nodeSearch(s, root, "")
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, found)
}

func TestNodeChildrenSorted(t *testing.T) {
	s := newTestStore(t)
	root, err := newNode(s)
	require.NoError(t, err)

	for i, key := range []string{"m", "c", "x", "a", "t"} {
		require.NoError(t, nodeAdd(s, root, key, uint64(100+i)))
	}

	edges, err := nodeChildren(s, root)
	require.NoError(t, err)
	require.Len(t, edges, 5)
	keys := make([]byte, len(edges))
	for i, e := range edges {
		keys[i] = e.key
	}
	require.Equal(t, []byte("acmtx"), keys)
}

func TestNodeDescend(t *testing.T) {
	s := newTestStore(t)
	root, err := newNode(s)
	require.NoError(t, err)
	require.NoError(t, nodeAdd(s, root, "ab", 1))

	child, err := nodeDescend(s, root, 'a')
	require.NoError(t, err)
	require.NotZero(t, child)

	missing, err := nodeDescend(s, root, 'b')
	require.NoError(t, err)
	require.Zero(t, missing)

	grandchild, err := nodeDescend(s, child, 'b')
	require.NoError(t, err)
	require.NotZero(t, grandchild)

	found, err := nodeMatches(s, grandchild)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, found)
}
