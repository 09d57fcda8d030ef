// Package token turns raw text into the normalized word tokens that
// patterns and lookups operate on.
package token

import (
	"strings"
	"unicode"
)

// Token is a single normalized word, or one of the two wildcards.
type Token string

const (
	// Word matches exactly one token.
	Word = Token("_")

	// Phrase matches one or more contiguous tokens.  A phrase
	// wildcard never binds zero tokens.
	Phrase = Token("*")
)

// IsWildcard reports whether the token is Word or Phrase.
func (t Token) IsWildcard() bool {
	return t == Word || t == Phrase
}

// DefaultBoundaries is the punctuation treated as a token boundary
// when no other set is configured.
//
// Punctuation not in the configured set is discarded without ending
// the current token, so "don't" normalizes to DONT when "'" is
// removed from the set.
const DefaultBoundaries = "\"`~!@#$%^&*()-_=+[{]}\\|;:',<.>/?"

// A Normalizer converts raw text to Tokens.
//
// Normalization is total (it never fails) and stable: normalizing the
// same text twice gives identical output.
type Normalizer struct {
	// Boundaries is the set of punctuation runes that end a token.
	Boundaries string
}

// NewNormalizer makes a Normalizer with DefaultBoundaries.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		Boundaries: DefaultBoundaries,
	}
}

// Tokens normalizes raw text into an ordered sequence of upper-cased
// tokens.  Input text can never produce a wildcard token: '*' and '_'
// are punctuation here.
func (n *Normalizer) Tokens(s string) []Token {
	boundaries := n.Boundaries
	var (
		acc []Token
		cur strings.Builder
	)
	flush := func() {
		if 0 < cur.Len() {
			acc = append(acc, Token(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(unicode.ToUpper(r))
		case unicode.IsSpace(r) || strings.ContainsRune(boundaries, r):
			flush()
		default:
			// Punctuation that isn't a boundary is dropped.
		}
	}
	flush()
	return acc
}

// Text renders tokens back to a single normalized string.
func Text(ts []Token) string {
	ss := make([]string, len(ts))
	for i, t := range ts {
		ss[i] = string(t)
	}
	return strings.Join(ss, " ")
}

// Pattern tokenizes a rule pattern.  Fields are split on whitespace;
// "*" and "_" become wildcards; anything else is normalized to a
// literal token.  A field that normalizes to nothing (all punctuation)
// yields an empty literal, which Trie.Insert will reject.
func Pattern(s string) []Token {
	norm := NewNormalizer()
	fields := strings.Fields(s)
	acc := make([]Token, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "*":
			acc = append(acc, Phrase)
		case "_":
			acc = append(acc, Word)
		default:
			ts := norm.Tokens(f)
			if len(ts) == 0 {
				acc = append(acc, Token(""))
				continue
			}
			acc = append(acc, ts...)
		}
	}
	return acc
}

// SplitSentences splits raw input on sentence-terminal punctuation.
//
// If no terminator is found, the whole (trimmed) input is the single
// sentence.
func SplitSentences(s string) []string {
	var acc []string
	start := 0
	for i, r := range s {
		switch r {
		case '.', '?', '!':
			if sentence := strings.TrimSpace(s[start:i]); sentence != "" {
				acc = append(acc, sentence)
			}
			start = i + 1
		}
	}
	if sentence := strings.TrimSpace(s[start:]); sentence != "" {
		acc = append(acc, sentence)
	}
	if len(acc) == 0 {
		acc = append(acc, strings.TrimSpace(s))
	}
	return acc
}
