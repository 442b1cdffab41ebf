package tripe

import (
	"golang.org/x/xerrors"

	"github.com/ianloic/tripe.go/store"
)

// Stats summarizes a Verify pass over an index file
type Stats struct {
	Nodes      int // trie node blocks reachable from the root
	Instances  int // term instance blocks
	TextBlocks int // raw token text blocks
	FreeBlocks int // blocks on the free list
	LiveBytes  uint64
	FreeBytes  uint64
}

// Verify walks everything reachable from the root and the free list and
// checks the structural invariants of the file: block sizes consistent with
// their role, children arrays strictly sorted, instance chains staying in
// one document with increasing offsets, stemmed keys matching the stored
// raw tokens, and no block both reachable and free. Detection of corruption
// is best-effort. Returns index statistics on success.
func (ix *Index) Verify() (*Stats, error) {
	stats := &Stats{}
	reachable := make(map[uint64]struct{})
	instances := make(map[uint64]*termInstance)

	mark := func(h uint64) error {
		size, err := ix.store.PayloadSize(h)
		if err != nil {
			return err
		}
		reachable[h] = struct{}{}
		stats.LiveBytes += size
		return nil
	}
	markSized := func(h, want uint64, role string) error {
		size, err := ix.store.PayloadSize(h)
		if err != nil {
			return err
		}
		if size != want {
			return xerrors.Errorf("%s at %d has size %d, want %d: %w", role, h, size, want, store.ErrCorrupt)
		}
		reachable[h] = struct{}{}
		stats.LiveBytes += size
		return nil
	}

	err := ix.Walk(func(v *NodeVisit) error {
		if err := markSized(v.Handle, 16, "trie node"); err != nil {
			return err
		}
		stats.Nodes++
		matchesHandle, childrenHandle, err := loadNode(ix.store, v.Handle)
		if err != nil {
			return err
		}
		if matchesHandle != 0 {
			if err := mark(matchesHandle); err != nil {
				return err
			}
		}
		if childrenHandle != 0 {
			if err := mark(childrenHandle); err != nil {
				return err
			}
		}
		for i := 1; i < len(v.Children); i++ {
			if v.Children[i-1].Key >= v.Children[i].Key {
				return xerrors.Errorf("node at %d: children keys not strictly sorted: %w",
					v.Handle, store.ErrCorrupt)
			}
		}
		for _, m := range v.Matches {
			if err := markSized(m, 32, "term instance"); err != nil {
				return err
			}
			stats.Instances++
			inst, err := loadTermInstance(ix.store, m)
			if err != nil {
				return err
			}
			instances[m] = inst
			fields, err := ix.store.LoadNumbers(m)
			if err != nil {
				return err
			}
			if _, seen := reachable[fields[2]]; !seen {
				if err := mark(fields[2]); err != nil {
					return err
				}
				stats.TextBlocks++
			}
			if got := Stem(inst.raw); got != v.Prefix {
				return xerrors.Errorf("instance at %d: raw %q stems to %q under key %q: %w",
					m, inst.raw, got, v.Prefix, store.ErrCorrupt)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// every chain pointer must land on an indexed instance of the same
	// document, strictly later in the text
	for h, inst := range instances {
		if inst.next == 0 {
			continue
		}
		next, ok := instances[inst.next]
		if !ok {
			return nil, xerrors.Errorf("instance at %d: next %d is not an indexed instance: %w",
				h, inst.next, store.ErrCorrupt)
		}
		if next.doc != inst.doc || next.offset <= inst.offset {
			return nil, xerrors.Errorf("instance at %d: chain leaves document %d at offset %d: %w",
				h, inst.doc, inst.offset, store.ErrCorrupt)
		}
	}

	err = ix.store.FreeBlocks(func(handle, size uint64) error {
		if _, ok := reachable[handle]; ok {
			return xerrors.Errorf("block at %d is both reachable and free: %w", handle, store.ErrCorrupt)
		}
		stats.FreeBlocks++
		stats.FreeBytes += size
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
