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

package loader

import (
	"fmt"
	"strings"

	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/token"

	"github.com/jsccast/yaml"
)

// RuleSpec is one rule in a YAML rule document.  The template is an
// XML fragment in the same tag language AIML templates use.
type RuleSpec struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	That     string `yaml:"that,omitempty" json:"that,omitempty"`
	Topic    string `yaml:"topic,omitempty" json:"topic,omitempty"`
	Template string `yaml:"template" json:"template"`

	// Doc is Markdown documentation for the rule; see package
	// tools.
	Doc string `yaml:"doc,omitempty" json:"doc,omitempty"`
}

// RuleDoc is a YAML rule document.
type RuleDoc struct {
	// Name and Doc describe the document as a whole.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Doc  string `yaml:"doc,omitempty" json:"doc,omitempty"`

	Rules []RuleSpec `yaml:"rules" json:"rules"`
}

// ParseYAML parses a YAML rule document.
func ParseYAML(bs []byte) (*RuleDoc, error) {
	var doc RuleDoc
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadYAML parses a YAML rule document and indexes its rules,
// returning the number inserted.
func LoadYAML(bs []byte, trie *match.Trie) (int, error) {
	doc, err := ParseYAML(bs)
	if err != nil {
		return 0, err
	}
	for i, spec := range doc.Rules {
		r, err := spec.Rule()
		if err != nil {
			return i, fmt.Errorf("rule %d (%q): %w", i, spec.Pattern, err)
		}
		if err := trie.Insert(r); err != nil {
			return i, fmt.Errorf("rule %d (%q): %w", i, spec.Pattern, err)
		}
	}
	return len(doc.Rules), nil
}

// Rule converts the spec into an indexable rule, parsing its template
// fragment.
func (spec RuleSpec) Rule() (*match.Rule, error) {
	template, err := ParseTemplate(spec.Template)
	if err != nil {
		return nil, err
	}
	return &match.Rule{
		Key: match.Key{
			Input: token.Pattern(spec.Pattern),
			That:  token.Pattern(spec.That),
			Topic: token.Pattern(spec.Topic),
		},
		Template: template,
		Doc:      strings.TrimSpace(spec.Doc),
	}, nil
}
