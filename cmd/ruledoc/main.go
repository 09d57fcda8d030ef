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

// Package main renders HTML documentation for YAML rule documents.
//
//	ruledoc basics.yaml > basics.html
//
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Comcast/banter/tools"
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
	var cssFiles stringsFlag
	flag.Var(&cssFiles, "css", "CSS filename for the page (repeatable)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: ruledoc [-css FILE] RULES.yaml")
	}

	if err := tools.ReadAndRenderRulesPage(flag.Arg(0), cssFiles, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
