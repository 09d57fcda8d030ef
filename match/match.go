/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package match implements the core pattern index: an ordered,
// wildcard-aware trie keyed on (input, that, topic) token patterns.
package match

import (
	"sync"

	"github.com/Comcast/banter/token"
)

// Key identifies a rule: an input pattern, the pattern for the bot's
// previous output ("that"), and the pattern for the conversation
// topic.
//
// That and Topic may be empty.  An empty component stores the rule at
// the enclosing level's leaf, where it matches any context -- but only
// after every non-empty candidate pattern at that level has failed.
type Key struct {
	Input []token.Token `json:"input"`
	That  []token.Token `json:"that,omitempty"`
	Topic []token.Token `json:"topic,omitempty"`
}

// Rule pairs a Key with the template evaluated when the Key is the
// best match for a query.
//
// The Template is opaque to this package; see package tmpl.
type Rule struct {
	Key      Key
	Template interface{}

	// Doc is optional documentation carried by some rule formats.
	Doc string

	// seq is the insertion sequence number, used to report rules
	// in a stable order.
	seq int
}

// Context records what the wildcards consumed during a successful
// lookup: for each key component, the literal token spans bound by
// that component's wildcards, left to right.
//
// Indexing by the template language is 1-based.  A Context is created
// per lookup and discarded after the following template evaluation.
type Context struct {
	Input [][]token.Token
	That  [][]token.Token
	Topic [][]token.Token
}

// Span returns the 1-indexed wildcard span for the given component
// ("input", "that", or "topic").
func (c *Context) Span(component string, index int) ([]token.Token, bool) {
	var spans [][]token.Token
	switch component {
	case "input":
		spans = c.Input
	case "that":
		spans = c.That
	case "topic":
		spans = c.Topic
	}
	if index < 1 || len(spans) < index {
		return nil, false
	}
	return spans[index-1], true
}

// MalformedPatternError is returned by Insert for structurally invalid
// keys.  It never occurs at query time.
type MalformedPatternError struct {
	Key    Key
	Reason string
}

func (e *MalformedPatternError) Error() string {
	return "malformed pattern: " + e.Reason
}

// layers of the trie, outermost first.
const (
	layerInput = iota
	layerThat
	layerTopic
)

// node is a trie node.  Children are explored in priority order:
// literal, then word wildcard, then phrase wildcard.  The that and
// topic links descend to the next key component.
type node struct {
	lits   map[token.Token]*node
	word   *node
	phrase *node

	that  *node
	topic *node

	rule *Rule
}

func (n *node) child(t token.Token) *node {
	switch t {
	case token.Word:
		if n.word == nil {
			n.word = &node{}
		}
		return n.word
	case token.Phrase:
		if n.phrase == nil {
			n.phrase = &node{}
		}
		return n.phrase
	default:
		if n.lits == nil {
			n.lits = make(map[token.Token]*node, 4)
		}
		c, have := n.lits[t]
		if !have {
			c = &node{}
			n.lits[t] = c
		}
		return c
	}
}

// Trie is the rule index.
//
// Inserts take the write lock; lookups take the read lock, so
// concurrent lookups never observe a partially inserted rule.  The
// intended use is a bulk load phase before queries, but interleaving
// is safe.
type Trie struct {
	mu    sync.RWMutex
	root  node
	rules []*Rule
	size  int
}

// NewTrie makes an empty Trie.
func NewTrie() *Trie {
	return &Trie{}
}

// Size returns the number of rules currently indexed.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Rules returns the indexed rules in insertion order.  Overwritten
// rules do not appear.
func (t *Trie) Rules() []*Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	acc := make([]*Rule, 0, t.size)
	for _, r := range t.rules {
		if r != nil {
			acc = append(acc, r)
		}
	}
	return acc
}

func validate(key Key) error {
	if len(key.Input) == 0 {
		return &MalformedPatternError{key, "empty input pattern"}
	}
	for _, component := range [][]token.Token{key.Input, key.That, key.Topic} {
		for _, tok := range component {
			if tok == "" {
				return &MalformedPatternError{key, "empty literal token"}
			}
		}
	}
	return nil
}

// Insert indexes the rule under its Key.  Inserting a Key that is
// already present overwrites the previous rule: last write wins.
func (t *Trie) Insert(r *Rule) error {
	if err := validate(r.Key); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := &t.root
	for _, tok := range r.Key.Input {
		n = n.child(tok)
	}
	if 0 < len(r.Key.That) {
		if n.that == nil {
			n.that = &node{}
		}
		n = n.that
		for _, tok := range r.Key.That {
			n = n.child(tok)
		}
	}
	if 0 < len(r.Key.Topic) {
		if n.topic == nil {
			n.topic = &node{}
		}
		n = n.topic
		for _, tok := range r.Key.Topic {
			n = n.child(tok)
		}
	}

	if n.rule != nil {
		// Overwrite.  Drop the old rule from the ordered list.
		t.rules[n.rule.seq] = nil
	} else {
		t.size++
	}
	r.seq = len(t.rules)
	t.rules = append(t.rules, r)
	n.rule = r

	return nil
}

// query carries one lookup's context inputs and the span accumulators.
type query struct {
	that  []token.Token
	topic []token.Token

	spans [3][][]token.Token
}

// Lookup finds the single best rule for the given concrete token
// triple, along with the wildcard spans it consumed.
//
// Lookup never mutates the trie and is safe to call concurrently.
func (t *Trie) Lookup(input, that, topic []token.Token) (*Rule, *Context, bool) {
	if len(input) == 0 {
		return nil, nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	q := &query{that: that, topic: topic}
	r := descend(&t.root, input, layerInput, q)
	if r == nil {
		return nil, nil, false
	}

	ctx := &Context{
		Input: copySpans(q.spans[layerInput]),
		That:  copySpans(q.spans[layerThat]),
		Topic: copySpans(q.spans[layerTopic]),
	}
	return r, ctx, true
}

func copySpans(spans [][]token.Token) [][]token.Token {
	if spans == nil {
		return nil
	}
	acc := make([][]token.Token, len(spans))
	copy(acc, spans)
	return acc
}

// descend walks one key component.  It returns the first rule reached
// in literal-first depth order, or nil, leaving q's span accumulators
// describing the successful path.
func descend(n *node, words []token.Token, layer int, q *query) *Rule {
	if len(words) == 0 {
		return atEnd(n, layer, q)
	}

	first, rest := words[0], words[1:]

	// Literal child first.
	if c, have := n.lits[first]; have {
		if r := descend(c, rest, layer, q); r != nil {
			return r
		}
	}

	// Then the word wildcard, which binds exactly one token.
	if n.word != nil {
		q.push(layer, words[:1])
		if r := descend(n.word, rest, layer, q); r != nil {
			return r
		}
		q.pop(layer)
	}

	// Then the phrase wildcard: greedy, so longest span first,
	// backtracking to shorter spans on downstream failure.
	if n.phrase != nil {
		for k := len(words); 1 <= k; k-- {
			q.push(layer, words[:k])
			if r := descend(n.phrase, words[k:], layer, q); r != nil {
				return r
			}
			q.pop(layer)
		}
	}

	return nil
}

// atEnd handles the boundary between key components: a that-subtrie
// and then a topic-subtrie outrank the rule stored at this leaf.
func atEnd(n *node, layer int, q *query) *Rule {
	switch layer {
	case layerInput:
		if n.that != nil && 0 < len(q.that) {
			if r := descend(n.that, q.that, layerThat, q); r != nil {
				return r
			}
		}
		if n.topic != nil && 0 < len(q.topic) {
			if r := descend(n.topic, q.topic, layerTopic, q); r != nil {
				return r
			}
		}
	case layerThat:
		if n.topic != nil && 0 < len(q.topic) {
			if r := descend(n.topic, q.topic, layerTopic, q); r != nil {
				return r
			}
		}
	}
	return n.rule
}

func (q *query) push(layer int, span []token.Token) {
	q.spans[layer] = append(q.spans[layer], span)
}

func (q *query) pop(layer int) {
	q.spans[layer] = q.spans[layer][:len(q.spans[layer])-1]
}
