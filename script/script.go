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

// Package script runs script-tag code with Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Goja executes script-tag code.  It satisfies the engine's Scripter
// interface.
//
// The script's value becomes the tag's substitution: strings as-is,
// anything else JSON-encoded, null/undefined as the empty string.
type Goja struct {
	// Props are host values exposed to every script at _.props.
	Props map[string]interface{}
}

// New makes a Goja Scripter.
func New() *Goja {
	return &Goja{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec compiles and runs the code.
//
// The following properties are available from the runtime at _.
//
//	props: the host-provided property map.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time matching the cron expression,
//	  as an RFC 3339 string.
//	log(x): log the given value (as JSON).
//
// Cancel the ctx to interrupt a long-running script.
func (g *Goja) Exec(ctx context.Context, code string) (string, error) {
	p, err := goja.Compile("", wrapSrc(code), true)
	if err != nil {
		return "", err
	}

	props := g.Props
	if props == nil {
		props = map[string]interface{}{}
	}
	env := map[string]interface{}{
		"props": props,
	}

	o := goja.New()
	o.Set("_", env)

	env["esc"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		s, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["log"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("script.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually
		// interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return "", Interrupted
		}
		return "", err
	}

	return stringify(v.Export())
}

// stringify renders a script's value for substitution.
func stringify(x interface{}) (string, error) {
	switch vv := x.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	case int64:
		return fmt.Sprintf("%d", vv), nil
	case float64:
		js, err := json.Marshal(vv)
		return string(js), err
	default:
		js, err := json.Marshal(&x)
		if err != nil {
			return "", err
		}
		return string(js), nil
	}
}
