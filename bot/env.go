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

package bot

import (
	"context"
	"errors"
	"time"

	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/session"
	"github.com/Comcast/banter/tmpl"
	"github.com/Comcast/banter/token"
)

// turnEnv is the tmpl.Env for one sentence's evaluation.  It carries
// the match context and the rematch depth; everything durable lives on
// the Bot and the Session.
type turnEnv struct {
	ctx   context.Context
	bot   *Bot
	sess  *session.Session
	mctx  *match.Context
	turn  *Turn
	depth int
}

func (e *turnEnv) Star(kind string, index int) (string, error) {
	span, ok := e.mctx.Span(kind, index)
	if !ok {
		have := 0
		switch kind {
		case "input":
			have = len(e.mctx.Input)
		case "that":
			have = len(e.mctx.That)
		case "topic":
			have = len(e.mctx.Topic)
		}
		return "", &tmpl.IndexOutOfRangeError{Kind: kind, Index: index, Have: have}
	}
	return token.Text(span), nil
}

func (e *turnEnv) Get(name string) string {
	v, have := e.sess.Get(name)
	if !have {
		return e.bot.cfg.DefaultPredicate
	}
	return v
}

func (e *turnEnv) Set(name, value string) {
	e.sess.Set(name, value)
}

func (e *turnEnv) Bot(name string) string {
	return e.bot.BotPredicate(name)
}

func (e *turnEnv) Rematch(text string) (string, error) {
	return e.bot.reply(e.ctx, text, e.sess, e.turn, e.depth+1), nil
}

func (e *turnEnv) That(index int) (string, error) {
	v, ok := e.sess.Output(index)
	if !ok {
		return "", &tmpl.IndexOutOfRangeError{
			Kind:  "history",
			Index: index,
			Have:  len(e.sess.Outputs()),
		}
	}
	return v, nil
}

func (e *turnEnv) Input(index int) (string, error) {
	v, ok := e.sess.Input(index)
	if !ok {
		return "", &tmpl.IndexOutOfRangeError{
			Kind:  "history",
			Index: index,
			Have:  len(e.sess.Inputs()),
		}
	}
	return v, nil
}

func (e *turnEnv) Substitute(class, text string) string {
	s, have := e.bot.subs[class]
	if !have {
		return text
	}
	return s.Sub(text)
}

func (e *turnEnv) Script(code string) (string, error) {
	// Without a scripter, the script tag degrades to think:
	// evaluated, substituting nothing.
	if e.bot.scripter == nil {
		return "", nil
	}
	return e.bot.scripter.Exec(e.ctx, code)
}

func (e *turnEnv) Learn(name string) error {
	if e.bot.learn == nil {
		return errors.New("no learn hook configured")
	}
	return e.bot.learn(e.ctx, name)
}

func (e *turnEnv) Choose(n int) int {
	return e.bot.choose(n)
}

func (e *turnEnv) RuleCount() int {
	return e.bot.rules.Size()
}

func (e *turnEnv) SessionID() string {
	return e.sess.ID
}

func (e *turnEnv) Version() string {
	return Version
}

func (e *turnEnv) Now() time.Time {
	return time.Now()
}

func (e *turnEnv) Report(err error) {
	e.turn.report(err)
}
