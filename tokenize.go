package tripe

import (
	"regexp"
	"strings"
)

var stemRE = regexp.MustCompile(`\W`)

// Stem canonicalizes a term: lowercased with all non-word characters
// removed, where a word character is an ASCII letter, digit or underscore;
// non-ASCII characters, letters included, are removed. The same
// function runs at index time and at query time; "can't" stems to "cant".
func Stem(term string) string {
	return stemRE.ReplaceAllString(strings.ToLower(term), "")
}

// Token is one whitespace-delimited term of a document or phrase
type Token struct {
	// Offset is the byte position of the first character of the token
	Offset uint64
	// Stemmed is the form under which the token is filed in the trie
	Stemmed string
	// Raw is the token as it appears in the source, punctuation included
	Raw string
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// Tokenize splits text on runs of whitespace and yields one token per
// non-whitespace run, in order of appearance.
func Tokenize(text string) []Token {
	var tokens []Token
	i := 0
	for i < len(text) {
		for i < len(text) && isSpace(text[i]) {
			i++
		}
		start := i
		for i < len(text) && !isSpace(text[i]) {
			i++
		}
		if i > start {
			raw := text[start:i]
			tokens = append(tokens, Token{
				Offset:  uint64(start),
				Stemmed: Stem(raw),
				Raw:     raw,
			})
		}
	}
	return tokens
}
