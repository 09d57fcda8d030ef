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

// Package loader reads rule documents into the rule index.
//
// Two formats: AIML XML documents, and YAML documents whose rules
// carry their templates as XML fragments.
package loader

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/tmpl"
)

// ParseTemplate parses a bare template fragment (the inside of a
// <template> element).
func ParseTemplate(fragment string) (tmpl.Node, error) {
	d := xml.NewDecoder(strings.NewReader("<template>" + fragment + "</template>"))

	// Consume the wrapper's start tag.
	for {
		t, err := d.Token()
		if err != nil {
			return nil, err
		}
		if _, is := t.(xml.StartElement); is {
			break
		}
	}
	return parseNodes(d)
}

// LoadFile loads one rule document, dispatching on the filename
// extension: .aiml and .xml are AIML; .yaml and .yml are YAML rule
// documents.  It returns the number of rules inserted.
func LoadFile(filename string, trie *match.Trie) (int, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".aiml", ".xml":
		return LoadXML(strings.NewReader(string(bs)), trie)
	case ".yaml", ".yml":
		return LoadYAML(bs, trie)
	default:
		return 0, fmt.Errorf("unknown rule document type %q", filename)
	}
}

// LoadFiles loads several rule documents, returning the total number
// of rules inserted.
func LoadFiles(filenames []string, trie *match.Trie) (int, error) {
	total := 0
	for _, filename := range filenames {
		n, err := LoadFile(filename, trie)
		total += n
		if err != nil {
			return total, fmt.Errorf("%s: %w", filename, err)
		}
	}
	return total, nil
}
