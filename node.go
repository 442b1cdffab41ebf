package tripe

import (
	"sort"

	"golang.org/x/xerrors"

	"github.com/ianloic/tripe.go/store"
)

// Trie node layer. A node is a handle whose 16 byte payload holds two
// handles: the matches array (TermInstance handles sharing this node's
// stemmed key, in insertion order) and the children array (byte key and
// child node handle pairs, sorted ascending by key). Either may be 0.
//
// The node block itself is updated in place and never reallocated; only the
// matches and children array blocks churn as they grow.

// childEdge is one entry of a children array
type childEdge struct {
	key  byte
	node uint64
}

// newNode allocates an empty trie node and returns its handle
func newNode(s *store.Store) (uint64, error) {
	return s.StoreNumbers([]uint64{0, 0})
}

// loadNode fetches a node's matches and children array handles
func loadNode(s *store.Store, node uint64) (matches, children uint64, err error) {
	numbers, err := s.LoadNumbers(node)
	if err != nil {
		return 0, 0, err
	}
	if len(numbers) != 2 {
		return 0, 0, xerrors.Errorf("trie node at %d has %d fields: %w", node, len(numbers), store.ErrCorrupt)
	}
	return numbers[0], numbers[1], nil
}

// nodeChildren loads a node's children as (key, handle) pairs
func nodeChildren(s *store.Store, node uint64) ([]childEdge, error) {
	_, childrenHandle, err := loadNode(s, node)
	if err != nil {
		return nil, err
	}
	if childrenHandle == 0 {
		return nil, nil
	}
	flat, err := s.LoadNumbers(childrenHandle)
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, xerrors.Errorf("children array at %d has odd length %d: %w", childrenHandle, len(flat), store.ErrCorrupt)
	}
	edges := make([]childEdge, len(flat)/2)
	for i := range edges {
		key := flat[2*i]
		if key > 0xff {
			return nil, xerrors.Errorf("children array at %d has key %d: %w", childrenHandle, key, store.ErrCorrupt)
		}
		edges[i] = childEdge{key: byte(key), node: flat[2*i+1]}
	}
	return edges, nil
}

// nodeMatches loads a node's matches array, empty if none
func nodeMatches(s *store.Store, node uint64) ([]uint64, error) {
	matchesHandle, _, err := loadNode(s, node)
	if err != nil {
		return nil, err
	}
	if matchesHandle == 0 {
		return nil, nil
	}
	return s.LoadNumbers(matchesHandle)
}

// findChild binary-searches edges for key
func findChild(edges []childEdge, key byte) (uint64, bool) {
	i := sort.Search(len(edges), func(i int) bool { return edges[i].key >= key })
	if i < len(edges) && edges[i].key == key {
		return edges[i].node, true
	}
	return 0, false
}

// nodeDescend follows the child edge for one byte of a stemmed key.
// Returns 0 if the node has no such child.
func nodeDescend(s *store.Store, node uint64, key byte) (uint64, error) {
	edges, err := nodeChildren(s, node)
	if err != nil {
		return 0, err
	}
	child, _ := findChild(edges, key)
	return child, nil
}

// nodeSearch descends from node along every byte of key and returns the
// matches stored at the final node. Any missed descent returns nil.
func nodeSearch(s *store.Store, node uint64, key string) ([]uint64, error) {
	for i := 0; i < len(key); i++ {
		child, err := nodeDescend(s, node, key[i])
		if err != nil {
			return nil, err
		}
		if child == 0 {
			return nil, nil
		}
		node = child
	}
	return nodeMatches(s, node)
}

// nodeAdd files instance under key, descending from node and creating child
// nodes as needed. Inserting the same key twice appends a second match;
// every instance is a distinct occurrence. The empty key files the instance
// at node itself.
func nodeAdd(s *store.Store, node uint64, key string, instance uint64) error {
	for i := 0; i < len(key); i++ {
		edges, err := nodeChildren(s, node)
		if err != nil {
			return err
		}
		child, ok := findChild(edges, key[i])
		if !ok {
			child, err = addChild(s, node, edges, key[i])
			if err != nil {
				return err
			}
		}
		node = child
	}
	return appendMatch(s, node, instance)
}

// addChild creates a new empty child under node for key, rewriting the
// children array with the new pair spliced in sorted position. The old
// array block is freed.
func addChild(s *store.Store, node uint64, edges []childEdge, key byte) (uint64, error) {
	child, err := newNode(s)
	if err != nil {
		return 0, err
	}
	at := sort.Search(len(edges), func(i int) bool { return edges[i].key >= key })
	flat := make([]uint64, 0, 2*(len(edges)+1))
	for _, e := range edges[:at] {
		flat = append(flat, uint64(e.key), e.node)
	}
	flat = append(flat, uint64(key), child)
	for _, e := range edges[at:] {
		flat = append(flat, uint64(e.key), e.node)
	}
	newChildren, err := s.StoreNumbers(flat)
	if err != nil {
		return 0, err
	}
	matchesHandle, oldChildren, err := loadNode(s, node)
	if err != nil {
		return 0, err
	}
	if err := s.UpdateNumbers(node, []uint64{matchesHandle, newChildren}); err != nil {
		return 0, err
	}
	if oldChildren != 0 {
		if err := s.Free(oldChildren); err != nil {
			return 0, err
		}
	}
	return child, nil
}

// appendMatch rewrites node's matches array with instance appended. The old
// array block is freed.
func appendMatch(s *store.Store, node uint64, instance uint64) error {
	oldMatches, childrenHandle, err := loadNode(s, node)
	if err != nil {
		return err
	}
	var matches []uint64
	if oldMatches != 0 {
		if matches, err = s.LoadNumbers(oldMatches); err != nil {
			return err
		}
	}
	matches = append(matches, instance)
	newMatches, err := s.StoreNumbers(matches)
	if err != nil {
		return err
	}
	if err := s.UpdateNumbers(node, []uint64{newMatches, childrenHandle}); err != nil {
		return err
	}
	if oldMatches != 0 {
		return s.Free(oldMatches)
	}
	return nil
}
