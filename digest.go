package tripe

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Digest hashes a canonical traversal of the index with blake2b-256: for
// every trie node that holds occurrences, in walk order, the stemmed prefix
// and each occurrence's document id, offset and raw token. Nodes without
// occurrences contribute nothing. Two indexes holding the same content
// in the same insertion order digest equal regardless of block placement,
// so a digest taken before closing a file must match one taken after
// reopening it.
func (ix *Index) Digest() ([blake2b.Size256]byte, error) {
	var sum [blake2b.Size256]byte
	h, err := blake2b.New256(nil)
	if err != nil {
		return sum, err
	}
	var scratch [8]byte
	writeNumber := func(n uint64) {
		binary.LittleEndian.PutUint64(scratch[:], n)
		h.Write(scratch[:])
	}
	err = ix.Walk(func(v *NodeVisit) error {
		if len(v.Matches) == 0 {
			return nil
		}
		writeNumber(uint64(len(v.Prefix)))
		h.Write([]byte(v.Prefix))
		for _, m := range v.Matches {
			inst, err := loadTermInstance(ix.store, m)
			if err != nil {
				return err
			}
			writeNumber(inst.doc)
			writeNumber(inst.offset)
			writeNumber(uint64(len(inst.raw)))
			h.Write([]byte(inst.raw))
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
