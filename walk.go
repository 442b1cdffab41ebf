package tripe

import (
	"fmt"
	"io"
)

// NodeVisit describes one trie node during a Walk
type NodeVisit struct {
	// Handle of the node block
	Handle uint64
	// Prefix is the stemmed key accumulated from the root to this node
	Prefix string
	// Matches holds the node's TermInstance handles, in insertion order
	Matches []uint64
	// Children holds the node's child edges, sorted by key byte
	Children []ChildEdge
}

// ChildEdge is one labelled edge out of a trie node
type ChildEdge struct {
	Key  byte
	Node uint64
}

// Walk visits every trie node breadth-first, children in key order, starting
// at the root. Visiting order is deterministic for a given file. An error
// from fn aborts the walk.
func (ix *Index) Walk(fn func(v *NodeVisit) error) error {
	if ix.root == 0 {
		return nil
	}
	type item struct {
		node   uint64
		prefix string
	}
	queue := []item{{node: ix.root}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		matches, err := nodeMatches(ix.store, cur.node)
		if err != nil {
			return err
		}
		edges, err := nodeChildren(ix.store, cur.node)
		if err != nil {
			return err
		}
		visit := &NodeVisit{
			Handle:   cur.node,
			Prefix:   cur.prefix,
			Matches:  matches,
			Children: make([]ChildEdge, len(edges)),
		}
		for i, e := range edges {
			visit.Children[i] = ChildEdge{Key: e.key, Node: e.node}
			queue = append(queue, item{node: e.node, prefix: cur.prefix + string([]byte{e.key})})
		}
		if err := fn(visit); err != nil {
			return err
		}
	}
	return nil
}

// WriteDot emits the trie and its term chains as a graphviz digraph: trie
// nodes labelled with their stemmed prefix, edges labelled with the child
// byte, match boxes labelled with the raw token and chained with dashed
// edges.
func (ix *Index) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph Tripe {"); err != nil {
		return err
	}
	err := ix.Walk(func(v *NodeVisit) error {
		if _, err := fmt.Fprintf(w, "  N%d[label=%q]\n", v.Handle, v.Prefix); err != nil {
			return err
		}
		for _, c := range v.Children {
			if _, err := fmt.Fprintf(w, "  N%d -> N%d [label=%q]\n", v.Handle, c.Node, string([]byte{c.Key})); err != nil {
				return err
			}
		}
		for _, m := range v.Matches {
			inst, err := loadTermInstance(ix.store, m)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  N%d -> M%d\n", v.Handle, m); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  M%d [label=%q shape=box]\n", m, inst.raw); err != nil {
				return err
			}
			if inst.next != 0 {
				if _, err := fmt.Fprintf(w, "  M%d -> M%d [style=dashed]\n", m, inst.next); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "}")
	return err
}
