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

// Package main is a little command-line utility to invoke rule lookup.
//
//	trymatch -rules basics.aiml -m "hello there" -that "hi" -topic ""
//
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/Comcast/banter/loader"
	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/token"
)

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

		input = flag.String("m", "", "input text")
		that  = flag.String("that", "", "previous bot response")
		topic = flag.String("topic", "", "conversation topic")

		bench = flag.Int("bench", 0, "number of times to run (and report time)")
	)
	flag.Var(&ruleFiles, "rules", "rule document filename (repeatable)")
	flag.Parse()

	trie := match.NewTrie()
	if _, err := loader.LoadFiles(ruleFiles, trie); err != nil {
		log.Fatal(err)
	}

	norm := token.NewNormalizer()
	in := norm.Tokens(*input)
	th := norm.Tokens(*that)
	to := norm.Tokens(*topic)

	if 0 < *bench {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		allocs := stats.TotalAlloc
		then := time.Now()
		for i := 0; i < *bench; i++ {
			trie.Lookup(in, th, to)
		}
		elapsed := time.Now().Sub(then)
		meanNanos := elapsed.Nanoseconds() / int64(*bench)

		runtime.ReadMemStats(&stats)
		allocated := (stats.TotalAlloc - allocs) / uint64(*bench)

		log.Printf("%d iterations, %d mean ns/Lookup, %d mean bytes allocated per Lookup",
			*bench, meanNanos, allocated)
	}

	rule, ctx, ok := trie.Lookup(in, th, to)
	if !ok {
		fmt.Println("no match")
		return
	}

	out := map[string]interface{}{
		"key":     rule.Key,
		"context": ctx,
	}
	js, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", js)
}
