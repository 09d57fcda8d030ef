// Package subst implements one-pass, whole-word string substitution
// dictionaries: contraction expansion and pronoun swapping applied to
// text before normalization and after some template tags.
package subst

import (
	"regexp"
	"sort"
	"strings"
)

// A Subber rewrites whole words according to its dictionary.
//
// Matching is case-insensitive; replacements follow the case shape of
// the matched word (lower, Capitalized, or UPPER).
type Subber struct {
	pairs map[string]string
	re    *regexp.Regexp
	dirty bool
}

// NewSubber makes a Subber from before/after pairs.
func NewSubber(pairs map[string]string) *Subber {
	s := &Subber{
		pairs: make(map[string]string, len(pairs)),
		dirty: true,
	}
	for k, v := range pairs {
		s.Add(k, v)
	}
	return s
}

// Add installs (or replaces) a substitution.
func (s *Subber) Add(before, after string) {
	s.pairs[strings.ToLower(before)] = after
	s.dirty = true
}

// Len returns the number of substitutions.
func (s *Subber) Len() int {
	return len(s.pairs)
}

func (s *Subber) compile() {
	words := make([]string, 0, len(s.pairs))
	for w := range s.pairs {
		words = append(words, w)
	}
	// Longer alternatives first so "i was" beats "i".
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	s.re = regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	s.dirty = false
}

// Sub rewrites the text in a single pass.
func (s *Subber) Sub(text string) string {
	if len(s.pairs) == 0 {
		return text
	}
	if s.dirty {
		s.compile()
	}
	return s.re.ReplaceAllStringFunc(text, func(m string) string {
		after, have := s.pairs[strings.ToLower(m)]
		if !have {
			return m
		}
		return matchCase(m, after)
	})
}

// matchCase shapes the replacement like the matched text.
func matchCase(matched, replacement string) string {
	if matched == strings.ToUpper(matched) && matched != strings.ToLower(matched) {
		return strings.ToUpper(replacement)
	}
	r := []rune(matched)
	if 0 < len(r) && r[0] == []rune(strings.ToUpper(string(r[0])))[0] &&
		strings.ToLower(string(r[0])) != string(r[0]) {
		rep := []rune(replacement)
		if 0 < len(rep) {
			return strings.ToUpper(string(rep[0])) + string(rep[1:])
		}
	}
	return replacement
}

// The default dictionaries, in the spirit of common AIML
// substitutions.  Hosts can replace or extend them via configuration.

// Normal expands contractions and common abbreviations before
// matching.
func Normal() *Subber {
	return NewSubber(map[string]string{
		"can't":   "can not",
		"won't":   "will not",
		"don't":   "do not",
		"doesn't": "does not",
		"didn't":  "did not",
		"isn't":   "is not",
		"aren't":  "are not",
		"wasn't":  "was not",
		"weren't": "were not",
		"i'm":     "i am",
		"i'd":     "i would",
		"i'll":    "i will",
		"i've":    "i have",
		"you're":  "you are",
		"you'd":   "you would",
		"you'll":  "you will",
		"you've":  "you have",
		"he's":    "he is",
		"she's":   "she is",
		"it's":    "it is",
		"that's":  "that is",
		"there's": "there is",
		"what's":  "what is",
		"where's": "where is",
		"who's":   "who is",
		"we're":   "we are",
		"we'll":   "we will",
		"we've":   "we have",
		"they're": "they are",
		"they've": "they have",
		"wanna":   "want to",
		"gonna":   "going to",
	})
}

// Person swaps first and second person pronouns.
func Person() *Subber {
	return NewSubber(map[string]string{
		"i was":    "you were",
		"you were": "i was",
		"i am":     "you are",
		"you are":  "i am",
		"i":        "you",
		"me":       "you",
		"my":       "your",
		"mine":     "yours",
		"myself":   "yourself",
		"you":      "me",
		"your":     "my",
		"yours":    "mine",
		"yourself": "myself",
	})
}

// Person2 swaps first and third person pronouns.
func Person2() *Subber {
	return NewSubber(map[string]string{
		"i":      "he or she",
		"me":     "him or her",
		"my":     "his or her",
		"mine":   "his or hers",
		"myself": "himself or herself",
		"he":     "i",
		"she":    "i",
		"him":    "me",
		"her":    "me",
		"his":    "my",
		"hers":   "mine",
	})
}

// Gender swaps third person singular pronouns.
func Gender() *Subber {
	return NewSubber(map[string]string{
		"he":      "she",
		"him":     "her",
		"his":     "her",
		"himself": "herself",
		"she":     "he",
		"her":     "him",
		"hers":    "his",
		"herself": "himself",
	})
}
