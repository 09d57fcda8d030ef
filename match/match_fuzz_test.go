package match

// Fuzz patterns and inputs.  Look up and then verify non-error
// results.

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Comcast/banter/token"
)

// Fuzz has parameters used to generate random patterns and inputs.
type Fuzz struct {
	Alphabet   []token.Token
	PatWidth   int
	InputWidth int

	Words   float64
	Phrases float64

	// generated counts the number of tokens generated.
	generated int64
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		Alphabet:   []token.Token{"A", "B", "C", "D", "E"},
		PatWidth:   6,
		InputWidth: 8,
		Words:      0.15,
		Phrases:    0.15,
	}
}

// GenPattern generates a random pattern of at least one token.
func (f *Fuzz) GenPattern(r *rand.Rand) []token.Token {
	n := r.Intn(f.PatWidth) + 1
	acc := make([]token.Token, n)
	for i := range acc {
		f.generated++
		t := r.Float64()
		switch {
		case t < f.Words:
			acc[i] = token.Word
		case t < f.Words+f.Phrases:
			acc[i] = token.Phrase
		default:
			acc[i] = f.Alphabet[r.Intn(len(f.Alphabet))]
		}
	}
	return acc
}

// GenInput generates a random input: wildcard-free, possibly empty.
func (f *Fuzz) GenInput(r *rand.Rand) []token.Token {
	n := r.Intn(f.InputWidth)
	acc := make([]token.Token, n)
	for i := range acc {
		f.generated++
		acc[i] = f.Alphabet[r.Intn(len(f.Alphabet))]
	}
	return acc
}

// covers reports whether the pattern matches the input with the given
// wildcard spans: replaying the pattern against the spans must
// reproduce the input exactly.
func covers(pat, input []token.Token, spans [][]token.Token) bool {
	var replay []token.Token
	for _, t := range pat {
		if t.IsWildcard() {
			if len(spans) == 0 {
				return false
			}
			span := spans[0]
			spans = spans[1:]
			if t == token.Word && len(span) != 1 {
				return false
			}
			if t == token.Phrase && len(span) == 0 {
				return false
			}
			replay = append(replay, span...)
			continue
		}
		replay = append(replay, t)
	}
	if 0 < len(spans) {
		return false
	}
	if len(replay) != len(input) {
		return false
	}
	for i := range replay {
		if replay[i] != input[i] {
			return false
		}
	}
	return true
}

// TestLookupFuzz inserts a bunch of random patterns and looks up a
// bunch of random inputs.
//
// Verifies every hit's wildcard spans.
func TestLookupFuzz(t *testing.T) {
	var (
		tries        = 200
		patsPerTrie  = 20
		inputsPerPat = 50

		r = rand.New(rand.NewSource(42))
		f = NewFuzz()

		matched   = 0
		attempted = 0
	)

	then := time.Now()
	for i := 0; i < tries; i++ {
		trie := NewTrie()
		for j := 0; j < patsPerTrie; j++ {
			pat := f.GenPattern(r)
			rule := &Rule{
				Key:      Key{Input: pat},
				Template: pat,
			}
			if err := trie.Insert(rule); err != nil {
				t.Fatal(err)
			}

			// A wildcard-free pattern must match itself.
			wild := false
			for _, tok := range pat {
				wild = wild || tok.IsWildcard()
			}
			if !wild {
				if _, _, ok := trie.Lookup(pat, nil, nil); !ok {
					t.Fatalf("pattern %v does not match itself", pat)
				}
			}
		}
		for j := 0; j < inputsPerPat; j++ {
			input := f.GenInput(r)
			attempted++
			rule, ctx, ok := trie.Lookup(input, nil, nil)
			if !ok {
				continue
			}
			matched++
			pat := rule.Template.([]token.Token)
			if !covers(pat, input, ctx.Input) {
				t.Fatalf("pattern %v matched input %v with bad spans %v",
					pat, input, ctx.Input)
			}
		}
	}
	elapsed := time.Now().Sub(then)

	fmt.Printf(`fuzzed    %d
matched   %f%%
elapsed   %fms
generated %d
`,
		attempted,
		100*float64(matched)/float64(attempted),
		elapsed.Seconds()*1000,
		f.generated)
}
