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

// Package main is a WebSocket chat service for a rule-driven bot.
//
//	banterd -listen :8080 -rules basics.aiml
//
// Each connection gets its own session.  Messages are JSON:
//
//	-> {"input":"hello"}
//	<- {"response":"Hi there!"}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/Comcast/banter/bot"
	"github.com/Comcast/banter/loader"
	"github.com/Comcast/banter/script"

	"github.com/gorilla/websocket"
)

// Request is one inbound chat message.
type Request struct {
	Input string `json:"input"`
}

// Response is one outbound chat message.  Errors lists the turn's
// non-fatal defects when diagnostics are enabled.
type Response struct {
	Response string   `json:"response"`
	Errors   []string `json:"errors,omitempty"`
}

type stringsFlag []string

func (ss *stringsFlag) String() string {
	return fmt.Sprintf("%v", []string(*ss))
}

func (ss *stringsFlag) Set(s string) error {
	*ss = append(*ss, s)
	return nil
}

func main() {
	var (
		ruleFiles stringsFlag
		listen    = flag.String("listen", ":8080", "listen address")
		name      = flag.String("name", "", "bot name")
		seed      = flag.Int64("seed", 0, "random seed (0 means time-based)")
		diag      = flag.Bool("diag", false, "include turn errors in responses")
	)
	flag.Var(&ruleFiles, "rules", "rule document filename (repeatable)")
	flag.Parse()

	ctx := context.Background()

	cfg := bot.DefaultConfig()
	if *name != "" {
		cfg.Name = *name
	}
	cfg.Seed = *seed

	b := bot.New(cfg)
	b.SetScripter(script.New())

	if len(ruleFiles) == 0 {
		log.Fatal("no rule documents (use -rules)")
	}
	n, err := loader.LoadFiles(ruleFiles, b.Rules())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d rules", n)

	var upgrader = websocket.Upgrader{} // use default options

	chat := func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		id := c.RemoteAddr().String()
		sess := b.NewSession(id)
		log.Printf("session %s connected", id)

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("session %s read error %v", id, err)
				break
			}

			var req Request
			if err := json.Unmarshal(message, &req); err != nil {
				msg := fmt.Sprintf(`{"error":%q}`, "can't parse: "+err.Error())
				if err = c.WriteMessage(mt, []byte(msg)); err != nil {
					log.Println("write (err)", err)
				}
				continue
			}

			response, turn := b.RespondTurn(ctx, req.Input, sess)
			resp := Response{Response: response}
			if *diag {
				for _, err := range turn.Errors {
					resp.Errors = append(resp.Errors, err.Error())
				}
			}

			js, err := json.Marshal(&resp)
			if err != nil {
				log.Printf("marshal error %v on %#v", err, resp)
				continue
			}
			if err = c.WriteMessage(mt, js); err != nil {
				log.Println("write error", err)
				break
			}
		}
	}

	http.HandleFunc("/ws/chat", chat)

	log.Printf("listening on %s", *listen)
	log.Fatal(http.ListenAndServe(*listen, nil))
}
