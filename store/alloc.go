// The storage space management: a first-fit allocator over a singly linked
// free list threaded through the payloads of freed blocks. The list head
// lives in header slot 2; a free block's first 8 payload bytes hold the
// handle of the next free block, 0 at the end.

package store

import (
	"golang.org/x/xerrors"
)

// allocate hands out a block with a payload of exactly size bytes and
// returns its handle.
//
// The free list is searched first-fit with a strict greater-than comparison:
// a free block whose payload size exactly equals the request is skipped.
// On reuse the block's size prefix is rewritten to the requested size, so
// the slack bytes at its tail are orphaned. If no free block fits, the file
// grows by 8+size bytes at the tail.
func (s *Store) allocate(size uint64) (uint64, error) {
	if !s.writable {
		return 0, xerrors.Errorf("store: %s is read-only: %w", s.path, ErrIO)
	}
	Assert(size > 0, "store: allocate of empty block")

	// prev is the offset holding the link to the current free block: the
	// header slot for the first, the previous block's payload after that.
	prev := uint64(offFirstFree)
	free := s.loadNumber(offFirstFree)
	for free != 0 {
		if err := s.checkHandle(free); err != nil {
			return 0, err
		}
		freeSize := s.loadNumber(free - intSize)
		if freeSize > size {
			// unlink and reuse, shrinking the recorded size
			s.storeNumber(prev, s.loadNumber(free))
			s.storeNumber(free-intSize, size)
			return free, nil
		}
		prev = free
		free = s.loadNumber(free)
	}

	// no free block fits, grow the file
	offset := uint64(len(s.data))
	if err := s.grow(intSize + size); err != nil {
		return 0, err
	}
	s.storeNumber(offset, size)
	return offset + intSize, nil
}

// Free pushes the block at h onto the head of the free list. The block
// keeps its size prefix; its payload beyond the next-pointer keeps whatever
// bytes it held.
func (s *Store) Free(h uint64) error {
	if !s.writable {
		return xerrors.Errorf("store: %s is read-only: %w", s.path, ErrIO)
	}
	size, err := s.PayloadSize(h)
	if err != nil {
		return err
	}
	if size < intSize {
		return xerrors.Errorf("store: free of %d byte block at %d: %w", size, h, ErrCorrupt)
	}
	s.storeNumber(h, s.loadNumber(offFirstFree))
	s.storeNumber(offFirstFree, h)
	return nil
}

// FreeBlocks calls fn for every block on the free list with its handle and
// payload size. A cycle or an implausible link fails with ErrCorrupt.
func (s *Store) FreeBlocks(fn func(handle, size uint64) error) error {
	seen := make(map[uint64]struct{})
	for h := s.FirstFree(); h != 0; {
		if _, ok := seen[h]; ok {
			return xerrors.Errorf("store: free list cycle at %d: %w", h, ErrCorrupt)
		}
		seen[h] = struct{}{}
		size, err := s.PayloadSize(h)
		if err != nil {
			return err
		}
		if err := fn(h, size); err != nil {
			return err
		}
		h = s.loadNumber(h)
	}
	return nil
}
