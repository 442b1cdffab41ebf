package tripe

import (
	"golang.org/x/xerrors"

	"github.com/ianloic/tripe.go/store"
)

// Term instance layer. An instance is one occurrence of one token in one
// document, encoded as four u64s: document id, byte offset within the
// document text, the handle of the raw token text, and the handle of the
// next instance of the same document (0 for the last). The next pointer is
// written at creation and never mutated, which is why documents are indexed
// back to front.

// termInstance is the decoded form of an instance block
type termInstance struct {
	doc    uint64
	offset uint64
	raw    string
	next   uint64
}

// newTermInstance stores the raw token text and the instance record,
// returning the instance handle.
func newTermInstance(s *store.Store, doc, offset uint64, raw string, next uint64) (uint64, error) {
	rawHandle, err := s.StoreText(raw)
	if err != nil {
		return 0, err
	}
	return s.StoreNumbers([]uint64{doc, offset, rawHandle, next})
}

// loadTermInstance decodes the instance at handle, including its raw text
func loadTermInstance(s *store.Store, handle uint64) (*termInstance, error) {
	numbers, err := s.LoadNumbers(handle)
	if err != nil {
		return nil, err
	}
	if len(numbers) != 4 {
		return nil, xerrors.Errorf("term instance at %d has %d fields: %w", handle, len(numbers), store.ErrCorrupt)
	}
	raw, err := s.LoadText(numbers[2])
	if err != nil {
		return nil, err
	}
	return &termInstance{
		doc:    numbers[0],
		offset: numbers[1],
		raw:    raw,
		next:   numbers[3],
	}, nil
}

// matchesExact reports whether the instance's raw token equals raw
func (ti *termInstance) matchesExact(raw string) bool {
	return ti.raw == raw
}

// matchesPhrase walks the document chain from ti, comparing each following
// document term against the corresponding phrase token: raw forms when
// exact, stemmed forms otherwise. Running out of document before phrase
// fails the match.
func matchesPhrase(s *store.Store, ti *termInstance, phrase []Token, exact bool) (bool, error) {
	next := ti.next
	for _, tok := range phrase {
		if next == 0 {
			return false, nil
		}
		inst, err := loadTermInstance(s, next)
		if err != nil {
			return false, err
		}
		if exact {
			if inst.raw != tok.Raw {
				return false, nil
			}
		} else if Stem(inst.raw) != tok.Stemmed {
			return false, nil
		}
		next = inst.next
	}
	return true, nil
}
