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
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/tmpl"
	"github.com/Comcast/banter/token"
)

// LoadXML parses an AIML document and indexes its categories.  It
// returns the number of rules inserted.
//
// A category inside a <topic name="..."> element gets that topic
// pattern unless the category carries its own.
func LoadXML(r io.Reader, trie *match.Trie) (int, error) {
	d := xml.NewDecoder(r)

	count := 0
	topic := ""
	depthTopic := false

	for {
		t, err := d.Token()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		switch t := t.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "aiml":
				// Container.
			case "topic":
				topic = attr(t, "name")
				depthTopic = true
			case "category":
				if err := loadCategory(d, trie, topic); err != nil {
					return count, err
				}
				count++
			default:
				if err := d.Skip(); err != nil {
					return count, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "topic" && depthTopic {
				topic = ""
				depthTopic = false
			}
		}
	}
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// index parses an index attribute.  AIML allows "n,m" pairs; only the
// first number matters here.
func index(e xml.StartElement) int {
	s := attr(e, "index")
	if s == "" {
		return 1
	}
	if i := strings.IndexByte(s, ','); 0 <= i {
		s = s[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func loadCategory(d *xml.Decoder, trie *match.Trie, topic string) error {
	var (
		pattern  string
		that     string
		template tmpl.Node
		haveTmpl bool
	)

	for {
		t, err := d.Token()
		if err != nil {
			return err
		}
		switch t := t.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pattern":
				if pattern, err = text(d); err != nil {
					return err
				}
			case "that":
				if that, err = text(d); err != nil {
					return err
				}
			case "topic":
				if topic, err = text(d); err != nil {
					return err
				}
			case "template":
				if template, err = parseNodes(d); err != nil {
					return err
				}
				haveTmpl = true
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local != "category" {
				continue
			}
			if !haveTmpl {
				return fmt.Errorf("category %q has no template", pattern)
			}
			return trie.Insert(&match.Rule{
				Key: match.Key{
					Input: token.Pattern(pattern),
					That:  token.Pattern(that),
					Topic: token.Pattern(topic),
				},
				Template: template,
			})
		}
	}
}

// text reads an element's character data through its end tag.
func text(d *xml.Decoder) (string, error) {
	var acc strings.Builder
	for {
		t, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := t.(type) {
		case xml.CharData:
			acc.Write(t)
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return strings.TrimSpace(acc.String()), nil
		}
	}
}

// parseNodes parses tag children up to the enclosing end tag.  A
// single child is returned bare; several become a Seq.
func parseNodes(d *xml.Decoder) (tmpl.Node, error) {
	var acc tmpl.Seq
	for {
		t, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := t.(type) {
		case xml.CharData:
			if s := squeeze(string(t)); s != "" {
				acc = append(acc, tmpl.Text(s))
			}
		case xml.StartElement:
			n, err := parseElement(d, t)
			if err != nil {
				return nil, err
			}
			if n != nil {
				acc = append(acc, n)
			}
		case xml.EndElement:
			switch len(acc) {
			case 0:
				return nil, nil
			case 1:
				return acc[0], nil
			default:
				return acc, nil
			}
		}
	}
}

// squeeze collapses whitespace runs to single spaces, keeping at most
// one leading and one trailing space.
func squeeze(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead, trail := "", ""
	if strings.IndexFunc(s, isSpace) == 0 {
		lead = " "
	}
	if strings.LastIndexFunc(s, isSpace) == len(s)-1 {
		trail = " "
	}
	return lead + strings.Join(strings.Fields(s), " ") + trail
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func parseElement(d *xml.Decoder, e xml.StartElement) (tmpl.Node, error) {
	switch e.Name.Local {

	case "star":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Star{Kind: "input", Index: index(e)}, nil

	case "thatstar":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Star{Kind: "that", Index: index(e)}, nil

	case "topicstar":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Star{Kind: "topic", Index: index(e)}, nil

	case "srai":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Rematch{Child: child}, nil

	case "sr":
		// <sr/> abbreviates <srai><star/></srai>.
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Rematch{Child: tmpl.Star{Kind: "input", Index: 1}}, nil

	case "random":
		return parseRandom(d)

	case "condition":
		return parseCondition(d, e)

	case "get":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Get{Name: attr(e, "name")}, nil

	case "set":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Set{Name: attr(e, "name"), Value: child}, nil

	case "think":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Think{Child: child}, nil

	case "uppercase":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Upper{Child: child}, nil

	case "lowercase":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Lower{Child: child}, nil

	case "formal":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Formal{Child: child}, nil

	case "sentence":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Sentence{Child: child}, nil

	case "person":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Person{Child: child}, nil

	case "person2":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Person2{Child: child}, nil

	case "gender":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Gender{Child: child}, nil

	case "bot":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.BotRef{Name: attr(e, "name")}, nil

	case "date":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Date{Format: attr(e, "format")}, nil

	case "size":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Size{}, nil

	case "version":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.Version{}, nil

	case "id":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.ID{}, nil

	case "input":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.InputRef{Index: index(e)}, nil

	case "that":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.ThatRef{Index: index(e)}, nil

	case "topic":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return tmpl.TopicRef{}, nil

	case "javascript", "script":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Script{Child: child}, nil

	case "learn":
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Learn{Child: child}, nil

	case "system":
		// Shell execution is not supported.  The tag's children
		// are still evaluated for side effects.
		child, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		return tmpl.Think{Child: child}, nil

	default:
		// Unknown tags pass their children through.
		return parseNodes(d)
	}
}

func parseRandom(d *xml.Decoder) (tmpl.Node, error) {
	var acc tmpl.Random
	for {
		t, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := t.(type) {
		case xml.StartElement:
			if t.Name.Local != "li" {
				return nil, fmt.Errorf("random contains <%s>", t.Name.Local)
			}
			n, err := parseNodes(d)
			if err != nil {
				return nil, err
			}
			acc = append(acc, n)
		case xml.EndElement:
			return acc, nil
		}
	}
}

func parseCondition(d *xml.Decoder, e xml.StartElement) (tmpl.Node, error) {
	cond := tmpl.Condition{Name: attr(e, "name")}

	// Single-case form: value attribute on the condition itself.
	if v := attr(e, "value"); v != "" {
		body, err := parseNodes(d)
		if err != nil {
			return nil, err
		}
		cond.Cases = []tmpl.Case{{Value: v, Body: body}}
		return cond, nil
	}

	for {
		t, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := t.(type) {
		case xml.StartElement:
			if t.Name.Local != "li" {
				return nil, fmt.Errorf("condition contains <%s>", t.Name.Local)
			}
			c := tmpl.Case{
				Name:  attr(t, "name"),
				Value: attr(t, "value"),
			}
			if c.Body, err = parseNodes(d); err != nil {
				return nil, err
			}
			cond.Cases = append(cond.Cases, c)
		case xml.EndElement:
			return cond, nil
		}
	}
}
