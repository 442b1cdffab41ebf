// Package tripe is a persistent full-text phrase index over small to medium
// document corpora. Documents are added one at a time under an integer id;
// searches return every position at which a phrase occurs. The whole index
// lives in a single memory-mapped file managed by the store package: a
// character trie over stemmed terms whose leaves hold per-document linked
// chains of term occurrences, so phrases match without scanning document
// text.
package tripe

import (
	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/xerrors"

	"github.com/ianloic/tripe.go/store"
)

// ErrEmptyPhrase means Search was called with a phrase that yields no tokens
var ErrEmptyPhrase = xerrors.New("empty phrase")

// Bloom prefilter sizing; corpora here are small enough that a fixed
// estimate is fine.
const (
	bloomEstimate = 100000
	bloomFP       = 0.01
)

// Index is a text index over a block store. It is not safe for concurrent
// use.
type Index struct {
	store *store.Store
	root  uint64
	// terms prefilters Search: a stemmed term absent from the filter is
	// absent from the trie. Rebuilt from a full walk on open, extended on
	// every Add. False positives only cost a trie descent.
	terms *bloom.BloomFilter
}

// Open adopts the root trie node recorded in the store's header, creating
// one first on a writable store that has none.
func Open(s *store.Store) (*Index, error) {
	root := s.Root()
	if root == 0 && s.Writable() {
		var err error
		if root, err = newNode(s); err != nil {
			return nil, err
		}
		if err = s.SetRoot(root); err != nil {
			return nil, err
		}
	}
	ix := &Index{
		store: s,
		root:  root,
		terms: bloom.NewWithEstimates(bloomEstimate, bloomFP),
	}
	if err := ix.Walk(func(v *NodeVisit) error {
		if len(v.Matches) > 0 {
			ix.terms.AddString(v.Prefix)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return ix, nil
}

// Store is the block store the index runs over
func (ix *Index) Store() *store.Store {
	return ix.store
}

// Add indexes text under the document id doc. Tokens are processed back to
// front so that each term instance is created after its successor and can
// carry the chain pointer from birth. Adding the same id twice is not
// deduplicated; both occurrences will be reported.
func (ix *Index) Add(text string, doc uint64) error {
	if !ix.store.Writable() {
		return xerrors.Errorf("index is read-only: %w", store.ErrIO)
	}
	tokens := Tokenize(text)
	next := uint64(0)
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		instance, err := newTermInstance(ix.store, doc, tok.Offset, tok.Raw, next)
		if err != nil {
			return err
		}
		if err := nodeAdd(ix.store, ix.root, tok.Stemmed, instance); err != nil {
			return err
		}
		ix.terms.AddString(tok.Stemmed)
		next = instance
	}
	return nil
}

// Match is one position at which a searched phrase occurs
type Match struct {
	// Doc is the id the document was added under
	Doc uint64
	// Offset is the byte offset of the phrase's first token in the document
	Offset uint64
	// Raw is the first token as it appeared in the document
	Raw string
}

// Search returns every position at which phrase occurs. With exact false,
// tokens are compared by stemmed form; with exact true, by their raw text.
// A phrase with no tokens fails with ErrEmptyPhrase.
func (ix *Index) Search(phrase string, exact bool) ([]Match, error) {
	tokens := Tokenize(phrase)
	if len(tokens) == 0 {
		return nil, ErrEmptyPhrase
	}
	if ix.root == 0 || !ix.terms.TestString(tokens[0].Stemmed) {
		return nil, nil
	}
	candidates, err := nodeSearch(ix.store, ix.root, tokens[0].Stemmed)
	if err != nil {
		return nil, err
	}
	var matches []Match
	for _, handle := range candidates {
		inst, err := loadTermInstance(ix.store, handle)
		if err != nil {
			return nil, err
		}
		if exact && !inst.matchesExact(tokens[0].Raw) {
			continue
		}
		ok, err := matchesPhrase(ix.store, inst, tokens[1:], exact)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, Match{Doc: inst.doc, Offset: inst.offset, Raw: inst.raw})
		}
	}
	return matches, nil
}
