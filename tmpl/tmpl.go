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

// Package tmpl defines the template tag tree and its interpreter.
//
// A template is a tree of Nodes.  Eval walks the tree against an Env,
// which supplies everything turn-specific: wildcard spans, predicates,
// history, recursive re-matching, and the optional script and learn
// hooks.  Eval itself holds no state, so one template tree can serve
// any number of concurrent conversations.
package tmpl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Node is one template tag.  The set of Nodes is closed: Eval's switch
// is exhaustive, and an unknown Node is an evaluation error.
type Node interface {
	node()
}

// Text is literal output.
type Text string

// Seq evaluates its children in order and concatenates the results.
type Seq []Node

// Random evaluates exactly one child, chosen by Env.Choose.  The
// unchosen children are not evaluated.
type Random []Node

// Case is one branch of a Condition.  An empty Value marks the default
// branch, which matches unconditionally.
type Case struct {
	// Name overrides the Condition's predicate name for this
	// branch.  Used by the nameless block form.
	Name string

	Value string
	Body  Node
}

// Condition selects the first Case whose predicate value matches.
// Only the selected Case's Body is evaluated.
type Condition struct {
	// Name is the predicate to test.  Empty when every Case names
	// its own predicate.
	Name string

	Cases []Case
}

// Get substitutes a session predicate's value.
type Get struct {
	Name string
}

// Set evaluates its Value once, stores it under Name, and substitutes
// the stored value.
type Set struct {
	Name  string
	Value Node
}

// Star substitutes a wildcard span from the current match: Kind is
// "input", "that", or "topic", and Index is 1-based.
type Star struct {
	Kind  string
	Index int
}

// Rematch evaluates its child and feeds the result back through
// normalization and lookup, substituting that response.
type Rematch struct {
	Child Node
}

// ThatRef substitutes one of the bot's previous responses, 1-based
// from most recent.
type ThatRef struct {
	Index int
}

// InputRef substitutes one of the user's previous inputs, 1-based from
// most recent.  Index 1 is the input being responded to.
type InputRef struct {
	Index int
}

// TopicRef substitutes the current topic.
type TopicRef struct{}

// Think evaluates its child for side effects and substitutes nothing.
type Think struct {
	Child Node
}

// Upper, Lower, Formal, and Sentence reshape their child's case.
type Upper struct{ Child Node }
type Lower struct{ Child Node }

// Formal capitalizes the first letter of every word.
type Formal struct{ Child Node }

// Sentence capitalizes the first letter only.
type Sentence struct{ Child Node }

// Person, Person2, and Gender run their child's output through the
// corresponding substitution dictionary.  A nil Child is shorthand for
// the first input wildcard span.
type Person struct{ Child Node }
type Person2 struct{ Child Node }
type Gender struct{ Child Node }

// BotRef substitutes an engine-level bot predicate.  Bot predicates
// are set by the host and are read-only during conversation.
type BotRef struct {
	Name string
}

// Date substitutes the current time.  An empty Format means ANSI C
// asctime layout.
type Date struct {
	Format string
}

// Size substitutes the number of loaded rules.
type Size struct{}

// Version substitutes the engine version.
type Version struct{}

// ID substitutes the session identifier.
type ID struct{}

// Script evaluates its child and hands the result to the engine's
// Scripter, substituting what the script returns.
type Script struct {
	Child Node
}

// Learn evaluates its child as the name of a rule document and asks
// the engine to load it.
type Learn struct {
	Child Node
}

func (Text) node()      {}
func (Seq) node()       {}
func (Random) node()    {}
func (Condition) node() {}
func (Get) node()       {}
func (Set) node()       {}
func (Star) node()      {}
func (Rematch) node()   {}
func (ThatRef) node()   {}
func (InputRef) node()  {}
func (TopicRef) node()  {}
func (Think) node()     {}
func (Upper) node()     {}
func (Lower) node()     {}
func (Formal) node()    {}
func (Sentence) node()  {}
func (Person) node()    {}
func (Person2) node()   {}
func (Gender) node()    {}
func (BotRef) node()    {}
func (Date) node()      {}
func (Size) node()      {}
func (Version) node()   {}
func (ID) node()        {}
func (Script) node()    {}
func (Learn) node()     {}

// Env is what a template evaluation needs from its surroundings.  The
// engine provides one per turn; tests provide fakes.
type Env interface {
	// Star returns the 1-indexed wildcard span text for "input",
	// "that", or "topic".  Out-of-range indexes return an
	// *IndexOutOfRangeError.
	Star(kind string, index int) (string, error)

	// Get returns a session predicate's value, or the configured
	// default for unset predicates.
	Get(name string) string

	// Set stores a session predicate.
	Set(name, value string)

	// Bot returns an engine-level bot predicate.
	Bot(name string) string

	// Rematch re-enters matching with the given text.  The Env owns
	// the depth policy: when the recursion bound is exceeded it
	// substitutes the configured fallback and records the defect.
	Rematch(text string) (string, error)

	// That and Input return history entries, 1-based from most
	// recent.  Out-of-range indexes return an
	// *IndexOutOfRangeError.
	That(index int) (string, error)
	Input(index int) (string, error)

	// Substitute runs text through a named substitution dictionary
	// ("person", "person2", or "gender").
	Substitute(class, text string) string

	// Script runs code through the engine's Scripter, if any.
	Script(code string) (string, error)

	// Learn loads the named rule document.
	Learn(name string) error

	// Choose picks a branch index in [0, n).
	Choose(n int) int

	// RuleCount, SessionID, Version, and Now supply the trivially
	// substituted tags.
	RuleCount() int
	SessionID() string
	Version() string
	Now() time.Time

	// Report records a non-fatal evaluation defect.  Eval degrades
	// and continues after reporting.
	Report(err error)
}

// Eval evaluates a template tree against an Env.
//
// Degraded tags (out-of-range references, failed scripts) substitute
// the empty string after Env.Report; only structural defects return an
// error.
func Eval(n Node, env Env) (string, error) {
	switch n := n.(type) {
	case nil:
		return "", nil

	case Text:
		return string(n), nil

	case Seq:
		var acc strings.Builder
		for _, child := range n {
			s, err := Eval(child, env)
			if err != nil {
				return "", err
			}
			acc.WriteString(s)
		}
		return acc.String(), nil

	case Random:
		if len(n) == 0 {
			return "", nil
		}
		return Eval(n[env.Choose(len(n))], env)

	case Condition:
		for _, c := range n.Cases {
			name := c.Name
			if name == "" {
				name = n.Name
			}
			if c.Value == "" || strings.EqualFold(env.Get(name), c.Value) {
				return Eval(c.Body, env)
			}
		}
		return "", nil

	case Get:
		return env.Get(n.Name), nil

	case Set:
		v, err := Eval(n.Value, env)
		if err != nil {
			return "", err
		}
		env.Set(n.Name, v)
		return v, nil

	case Star:
		return degrade(env)(env.Star(n.Kind, n.Index))

	case Rematch:
		text, err := Eval(n.Child, env)
		if err != nil {
			return "", err
		}
		return env.Rematch(text)

	case ThatRef:
		return degrade(env)(env.That(n.Index))

	case InputRef:
		return degrade(env)(env.Input(n.Index))

	case TopicRef:
		return env.Get("topic"), nil

	case Think:
		if _, err := Eval(n.Child, env); err != nil {
			return "", err
		}
		return "", nil

	case Upper:
		s, err := Eval(n.Child, env)
		return strings.ToUpper(s), err

	case Lower:
		s, err := Eval(n.Child, env)
		return strings.ToLower(s), err

	case Formal:
		s, err := Eval(n.Child, env)
		if err != nil {
			return "", err
		}
		words := strings.Fields(strings.ToLower(s))
		for i, w := range words {
			words[i] = capitalize(w)
		}
		return strings.Join(words, " "), nil

	case Sentence:
		s, err := Eval(n.Child, env)
		if err != nil {
			return "", err
		}
		return capitalize(s), nil

	case Person:
		s, err := Eval(shorthand(n.Child), env)
		if err != nil {
			return "", err
		}
		return env.Substitute("person", s), nil

	case Person2:
		s, err := Eval(shorthand(n.Child), env)
		if err != nil {
			return "", err
		}
		return env.Substitute("person2", s), nil

	case Gender:
		s, err := Eval(shorthand(n.Child), env)
		if err != nil {
			return "", err
		}
		return env.Substitute("gender", s), nil

	case BotRef:
		return env.Bot(n.Name), nil

	case Date:
		format := n.Format
		if format == "" {
			format = time.ANSIC
		}
		return env.Now().Format(format), nil

	case Size:
		return strconv.Itoa(env.RuleCount()), nil

	case Version:
		return env.Version(), nil

	case ID:
		return env.SessionID(), nil

	case Script:
		code, err := Eval(n.Child, env)
		if err != nil {
			return "", err
		}
		return degrade(env)(env.Script(code))

	case Learn:
		name, err := Eval(n.Child, env)
		if err != nil {
			return "", err
		}
		if err := env.Learn(strings.TrimSpace(name)); err != nil {
			env.Report(err)
		}
		return "", nil
	}

	return "", fmt.Errorf("unknown template node %T", n)
}

// degrade turns a tag error into an empty substitution after
// reporting it.
func degrade(env Env) func(string, error) (string, error) {
	return func(s string, err error) (string, error) {
		if err != nil {
			env.Report(err)
			return "", nil
		}
		return s, nil
	}
}

// shorthand supplies the implicit first input wildcard for atomic
// person/person2/gender tags.
func shorthand(n Node) Node {
	if n == nil {
		return Star{Kind: "input", Index: 1}
	}
	return n
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
