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

// Package main is an interactive console for a rule-driven bot.
//
//	banter -rules basics.aiml -rules extras.yaml
//
// Lines from stdin are inputs; responses go to stdout.  With -store,
// the session's predicates and history survive across runs.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Comcast/banter/bot"
	"github.com/Comcast/banter/loader"
	"github.com/Comcast/banter/script"
	"github.com/Comcast/banter/session"
	. "github.com/Comcast/banter/util/testutil"

	"gopkg.in/yaml.v2"
)

// FileConfig is the YAML configuration file's shape.
type FileConfig struct {
	Bot bot.Config `yaml:"bot"`

	// Rules lists rule documents to load at startup.
	Rules []string `yaml:"rules"`

	// BotPredicates are engine-level read-only predicates.
	BotPredicates map[string]string `yaml:"botPredicates"`

	// ScriptProps are host values exposed to script tags.
	ScriptProps map[string]interface{} `yaml:"scriptProps"`
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
		ruleFiles  stringsFlag
		configFile = flag.String("config", "", "optional YAML config filename")
		sessionID  = flag.String("session", "console", "session id")
		storeFile  = flag.String("store", "", "optional session database filename")
		seed       = flag.Int64("seed", 0, "random seed (0 means time-based)")
		verbose    = flag.Bool("v", false, "log turn diagnostics")
	)
	flag.Var(&ruleFiles, "rules", "rule document filename (repeatable)")
	flag.Parse()

	ctx := context.Background()

	fc := FileConfig{Bot: bot.DefaultConfig()}
	if *configFile != "" {
		bs, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatal(err)
		}
		if err := yaml.Unmarshal(bs, &fc); err != nil {
			log.Fatalf("%s: %v", *configFile, err)
		}
	}
	if *seed != 0 {
		fc.Bot.Seed = *seed
	}

	b := bot.New(fc.Bot)
	for name, value := range fc.BotPredicates {
		b.SetBotPredicate(name, value)
	}

	scripter := script.New()
	scripter.Props = fc.ScriptProps
	b.SetScripter(scripter)
	b.OnLearn(func(ctx context.Context, name string) error {
		n, err := loader.LoadFile(name, b.Rules())
		log.Printf("learned %d rules from %s", n, name)
		return err
	})

	files := append(fc.Rules, ruleFiles...)
	if len(files) == 0 {
		log.Fatal("no rule documents (use -rules or a config file)")
	}
	n, err := loader.LoadFiles(files, b.Rules())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d rules from %d documents", n, len(files))

	var store *session.Store
	if *storeFile != "" {
		store = session.NewStore(*storeFile)
		if err := store.Open(ctx); err != nil {
			log.Fatal(err)
		}
		defer store.Close(ctx)
	}

	sess, err := store.Load(ctx, *sessionID)
	if err != nil {
		log.Fatal(err)
	}
	if sess == nil {
		sess = b.NewSession(*sessionID)
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := in.Text()
		if line == "" {
			continue
		}

		response, turn := b.RespondTurn(ctx, line, sess)
		fmt.Println(response)

		if *verbose {
			log.Printf("matched %s", JS(turn.Matched))
			for _, err := range turn.Errors {
				log.Printf("turn error: %v", err)
			}
			if 0 < turn.NoMatches {
				log.Printf("no match for %d sentence(s)", turn.NoMatches)
			}
		}

		if err := store.Save(ctx, sess); err != nil {
			log.Printf("session save error: %v", err)
		}
	}
	if err := in.Err(); err != nil {
		log.Fatal(err)
	}
}
