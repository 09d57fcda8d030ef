package loader

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Comcast/banter/bot"
	"github.com/Comcast/banter/match"
	"github.com/Comcast/banter/tmpl"
	"github.com/Comcast/banter/token"
)

const sampleAIML = `<?xml version="1.0" encoding="UTF-8"?>
<aiml version="1.0">

<category>
<pattern>HELLO</pattern>
<template>Hi there!</template>
</category>

<category>
<pattern>I AM *</pattern>
<template>Nice to hear you are <set name="mood"><star/></set>.</template>
</category>

<category>
<pattern>YES</pattern>
<that>DO YOU LIKE CHEESE</that>
<template>Me too!</template>
</category>

<topic name="CHEESE">
<category>
<pattern>TELL ME MORE</pattern>
<template>Cheddar ages well.</template>
</category>
</topic>

<category>
<pattern>PICK</pattern>
<template><random>
<li>one</li>
<li>two</li>
</random></template>
</category>

<category>
<pattern>HOW ARE YOU</pattern>
<template><condition name="mood">
<li value="happy">Great!</li>
<li>Not sure.</li>
</condition></template>
</category>

<category>
<pattern>WHO ARE YOU</pattern>
<template><srai>WHAT IS YOUR NAME</srai></template>
</category>

</aiml>
`

func TestLoadXML(t *testing.T) {
	trie := match.NewTrie()
	n, err := LoadXML(strings.NewReader(sampleAIML), trie)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 || trie.Size() != 7 {
		t.Fatalf("loaded %d rules, trie size %d", n, trie.Size())
	}

	find := func(pattern string) *match.Rule {
		t.Helper()
		for _, r := range trie.Rules() {
			if token.Text(r.Key.Input) == pattern {
				return r
			}
		}
		t.Fatalf("no rule for %q", pattern)
		return nil
	}

	r := find("HELLO")
	if r.Template != tmpl.Text("Hi there!") {
		t.Errorf("template %#v", r.Template)
	}

	r = find("I AM *")
	seq, is := r.Template.(tmpl.Seq)
	if !is || len(seq) != 3 {
		t.Fatalf("template %#v", r.Template)
	}
	set, is := seq[1].(tmpl.Set)
	if !is || set.Name != "mood" {
		t.Fatalf("middle node %#v", seq[1])
	}
	if set.Value != (tmpl.Star{Kind: "input", Index: 1}) {
		t.Errorf("set value %#v", set.Value)
	}

	r = find("YES")
	if len(r.Key.That) == 0 {
		t.Error("that pattern dropped")
	}

	r = find("TELL ME MORE")
	if got := token.Text(r.Key.Topic); got != "CHEESE" {
		t.Errorf("topic pattern %q", got)
	}

	r = find("PICK")
	random, is := r.Template.(tmpl.Random)
	if !is || len(random) != 2 {
		t.Fatalf("template %#v", r.Template)
	}

	r = find("HOW ARE YOU")
	cond, is := r.Template.(tmpl.Condition)
	if !is || cond.Name != "mood" || len(cond.Cases) != 2 {
		t.Fatalf("template %#v", r.Template)
	}
	if cond.Cases[0].Value != "happy" || cond.Cases[1].Value != "" {
		t.Errorf("cases %#v", cond.Cases)
	}

	r = find("WHO ARE YOU")
	if _, is := r.Template.(tmpl.Rematch); !is {
		t.Errorf("template %#v", r.Template)
	}
}

const sampleYAML = `
name: basics
doc: |
  A few rules for smoke tests.
rules:
  - pattern: HELLO
    doc: |
      Greets the **user**.
    template: Hi there!
  - pattern: WHAT IS YOUR NAME
    template: My name is <bot name="name"/>.
  - pattern: GOODBYE
    that: ""
    template: |
      <random><li>Bye!</li><li>See you.</li></random>
`

func TestLoadYAML(t *testing.T) {
	trie := match.NewTrie()
	n, err := LoadYAML([]byte(sampleYAML), trie)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || trie.Size() != 3 {
		t.Fatalf("loaded %d rules, trie size %d", n, trie.Size())
	}

	var docs int
	for _, r := range trie.Rules() {
		if r.Doc != "" {
			docs++
		}
	}
	if docs != 1 {
		t.Errorf("%d rules carry docs", docs)
	}
}

func TestParseTemplate(t *testing.T) {
	n, err := ParseTemplate(`Hi <star index="2"/>!`)
	if err != nil {
		t.Fatal(err)
	}
	want := tmpl.Seq{
		tmpl.Text("Hi "),
		tmpl.Star{Kind: "input", Index: 2},
		tmpl.Text("!"),
	}
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %#v", n)
	}

	if _, err := ParseTemplate(`<random><li>unclosed`); err == nil {
		t.Error("bad fragment parsed")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	aiml := filepath.Join(dir, "basics.aiml")
	if err := os.WriteFile(aiml, []byte(sampleAIML), 0644); err != nil {
		t.Fatal(err)
	}
	yaml := filepath.Join(dir, "extras.yaml")
	if err := os.WriteFile(yaml, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	trie := match.NewTrie()
	n, err := LoadFiles([]string{aiml, yaml}, trie)
	if err != nil {
		t.Fatal(err)
	}
	// HELLO appears in both documents, so one overwrite.
	if n != 10 || trie.Size() != 9 {
		t.Errorf("loaded %d rules, trie size %d", n, trie.Size())
	}

	if _, err := LoadFile(filepath.Join(dir, "nope.txt"), trie); err == nil {
		t.Error("unknown extension accepted")
	}
}

// End to end: loaded rules drive a conversation.
func TestLoadedConversation(t *testing.T) {
	ctx := context.Background()
	cfg := bot.DefaultConfig()
	cfg.Seed = 7
	b := bot.New(cfg)
	b.SetBotPredicate("name", "Banter")

	if _, err := LoadXML(strings.NewReader(sampleAIML), b.Rules()); err != nil {
		t.Fatal(err)
	}
	extra := `
rules:
  - pattern: WHAT IS YOUR NAME
    template: My name is <bot name="name"/>.
`
	if _, err := LoadYAML([]byte(extra), b.Rules()); err != nil {
		t.Fatal(err)
	}

	sess := b.NewSession("s-1")
	if got := b.Respond(ctx, "hello", sess); got != "Hi there!" {
		t.Errorf("got %q", got)
	}
	if got := b.Respond(ctx, "I am happy", sess); got != "Nice to hear you are HAPPY." {
		t.Errorf("got %q", got)
	}
	if got := b.Respond(ctx, "how are you?", sess); got != "Great!" {
		t.Errorf("got %q", got)
	}
	if got := b.Respond(ctx, "who are you", sess); got != "My name is Banter." {
		t.Errorf("got %q", got)
	}
}
