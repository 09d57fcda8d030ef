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

// Package bot is the engine: it owns the rule index, the tokenizer,
// the substitution dictionaries, and the per-turn template evaluation
// environment, and it exposes the one public operation that matters:
// Respond.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/session"
	"github.com/Comcast/banter/subst"
	"github.com/Comcast/banter/tmpl"
	"github.com/Comcast/banter/token"
)

// Version is substituted for the version tag.
const Version = "banter 0.1.0"

// Config is the engine's static configuration.
type Config struct {
	// Name is the bot's name, exposed as the bot predicate "name".
	Name string `json:"name" yaml:"name"`

	// Boundaries is the tokenizer's boundary punctuation.  Empty
	// means token.DefaultBoundaries.
	Boundaries string `json:"boundaries,omitempty" yaml:"boundaries,omitempty"`

	// HistoryCapacity bounds each session's input and output
	// histories.
	HistoryCapacity int `json:"historyCapacity,omitempty" yaml:"historyCapacity,omitempty"`

	// RecursionLimit bounds rematch depth within one turn.
	RecursionLimit int `json:"recursionLimit,omitempty" yaml:"recursionLimit,omitempty"`

	// DefaultPredicate is substituted for unset session predicates.
	DefaultPredicate string `json:"defaultPredicate,omitempty" yaml:"defaultPredicate,omitempty"`

	// Fallback is the response when no rule matches or evaluation
	// fails.
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	// Seed seeds the random-branch chooser.  Zero means a
	// time-based seed.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Name:            "banter",
		Boundaries:      token.DefaultBoundaries,
		HistoryCapacity: session.DefaultHistoryCapacity,
		RecursionLimit:  100,
		Fallback:        "I do not understand.",
	}
}

// A Scripter executes script-tag code.  See package script for the
// goja-backed implementation.
type Scripter interface {
	Exec(ctx context.Context, code string) (string, error)
}

// A Bot holds the loaded rules and everything needed to answer.
//
// A Bot is safe for concurrent Respond calls with distinct sessions.
type Bot struct {
	cfg  Config
	norm *token.Normalizer

	rules *match.Trie
	subs  map[string]*subst.Subber

	botPreds map[string]string

	scripter Scripter
	learn    func(ctx context.Context, name string) error

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// New makes a Bot from the configuration.  Zero-valued Config fields
// fall back to DefaultConfig's values.
func New(cfg Config) *Bot {
	def := DefaultConfig()
	if cfg.Boundaries == "" {
		cfg.Boundaries = def.Boundaries
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = def.RecursionLimit
	}
	if cfg.Fallback == "" {
		cfg.Fallback = def.Fallback
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b := &Bot{
		cfg:  cfg,
		norm: &token.Normalizer{Boundaries: cfg.Boundaries},

		rules: match.NewTrie(),
		subs: map[string]*subst.Subber{
			"normal":  subst.Normal(),
			"person":  subst.Person(),
			"person2": subst.Person2(),
			"gender":  subst.Gender(),
		},

		botPreds: map[string]string{
			"name": cfg.Name,
		},

		rnd: rand.New(rand.NewSource(seed)),
	}
	return b
}

// Config returns the effective configuration.
func (b *Bot) Config() Config {
	return b.cfg
}

// Rules exposes the rule index, mainly for loaders.
func (b *Bot) Rules() *match.Trie {
	return b.rules
}

// NewSession makes a session with the configured history capacity.
func (b *Bot) NewSession(id string) *session.Session {
	return session.New(id, b.cfg.HistoryCapacity)
}

// AddRule indexes one rule.  Pattern syntax is the usual: whitespace
// separated tokens, "_" for a one-word wildcard, "*" for a phrase
// wildcard.  That and topic may be empty.
func (b *Bot) AddRule(pattern, that, topic string, template tmpl.Node) error {
	return b.rules.Insert(&match.Rule{
		Key: match.Key{
			Input: token.Pattern(pattern),
			That:  token.Pattern(that),
			Topic: token.Pattern(topic),
		},
		Template: template,
	})
}

// SetBotPredicate installs an engine-level read-only predicate,
// substituted by the bot tag.
func (b *Bot) SetBotPredicate(name, value string) {
	b.botPreds[strings.ToLower(name)] = value
}

// BotPredicate reads an engine-level predicate.
func (b *Bot) BotPredicate(name string) string {
	return b.botPreds[strings.ToLower(name)]
}

// SetScripter installs the script-tag executor.  Without one, script
// tags evaluate their children and substitute nothing.
func (b *Bot) SetScripter(s Scripter) {
	b.scripter = s
}

// OnLearn installs the learn-tag hook, which receives the rule
// document name to load.
func (b *Bot) OnLearn(f func(ctx context.Context, name string) error) {
	b.learn = f
}

// Subber returns the named substitution dictionary ("normal",
// "person", "person2", or "gender") so hosts can extend it.
func (b *Bot) Subber(class string) *subst.Subber {
	return b.subs[class]
}

// Turn is one Respond call's diagnostics.  Errors collects the
// non-fatal defects hit during evaluation; the response itself already
// reflects the degraded substitutions.
type Turn struct {
	Input    string
	Response string

	// Matched holds the key of each rule selected, one per input
	// sentence that found a rule.
	Matched []match.Key

	// NoMatches counts the sentences (and rematches) for which no
	// rule matched.
	NoMatches int

	Errors []error
}

func (t *Turn) report(err error) {
	t.Errors = append(t.Errors, err)
}

// Respond answers one user input.  It never fails: defects degrade to
// the configured fallback response.
func (b *Bot) Respond(ctx context.Context, text string, sess *session.Session) string {
	response, _ := b.RespondTurn(ctx, text, sess)
	return response
}

// RespondTurn is Respond plus the turn's diagnostics.
//
// The input is split into sentences, each matched and evaluated in
// order, and the responses joined.  The whole input lands in the
// session's input history sentence by sentence before matching, so
// input index 1 refers to the sentence being answered; the joined
// response is recorded once at turn completion.
func (b *Bot) RespondTurn(ctx context.Context, text string, sess *session.Session) (string, *Turn) {
	turn := &Turn{Input: text}

	var replies []string
	for _, sentence := range token.SplitSentences(text) {
		sess.RecordInput(sentence)
		if reply := b.reply(ctx, sentence, sess, turn, 0); reply != "" {
			replies = append(replies, reply)
		}
	}

	response := strings.Join(replies, "  ")
	if response == "" {
		response = b.cfg.Fallback
	}
	sess.RecordOutput(response)
	turn.Response = response

	return response, turn
}

// reply answers one sentence at the given rematch depth: substitute,
// normalize, look up, evaluate.  All failures degrade to the fallback.
func (b *Bot) reply(ctx context.Context, text string, sess *session.Session, turn *Turn, depth int) string {
	if b.cfg.RecursionLimit <= depth {
		turn.report(&tmpl.RecursionLimitExceededError{
			Limit: b.cfg.RecursionLimit,
			Text:  text,
		})
		return b.cfg.Fallback
	}

	input := b.norm.Tokens(b.subs["normal"].Sub(text))
	if len(input) == 0 {
		return ""
	}

	var thatToks []token.Token
	if that, ok := sess.Output(1); ok {
		thatToks = b.norm.Tokens(that)
	}
	topicToks := b.norm.Tokens(sess.Topic())

	rule, mctx, ok := b.rules.Lookup(input, thatToks, topicToks)
	if !ok {
		turn.NoMatches++
		return b.cfg.Fallback
	}
	turn.Matched = append(turn.Matched, rule.Key)

	node, ok := rule.Template.(tmpl.Node)
	if !ok {
		turn.report(fmt.Errorf("rule %v has no template", rule.Key))
		return b.cfg.Fallback
	}

	env := &turnEnv{
		ctx:   ctx,
		bot:   b,
		sess:  sess,
		mctx:  mctx,
		turn:  turn,
		depth: depth,
	}
	out, err := tmpl.Eval(node, env)
	if err != nil {
		turn.report(err)
		return b.cfg.Fallback
	}

	return collapse(out)
}

func (b *Bot) choose(n int) int {
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.rnd.Intn(n)
}

// collapse squeezes runs of spaces and tabs left behind by tags that
// substituted nothing.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
