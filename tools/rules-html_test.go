package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Comcast/banter/loader"
)

func TestRenderRulesPage(t *testing.T) {
	doc := &loader.RuleDoc{
		Name: "basics",
		Doc:  "Some *basic* rules.",
		Rules: []loader.RuleSpec{
			{
				Pattern:  "HELLO",
				Template: "Hi there!",
				Doc:      "Greets the **user**.",
			},
			{
				Pattern:  "YES",
				That:     "DO YOU LIKE *",
				Template: "Me too!",
			},
		},
	}

	var out bytes.Buffer
	if err := RenderRulesPage(doc, &out, nil); err != nil {
		t.Fatal(err)
	}
	page := out.String()

	for _, want := range []string{
		"<title>basics</title>",
		"<em>basic</em>",
		"<strong>user</strong>",
		"HELLO",
		"DO YOU LIKE *",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page lacks %q", want)
		}
	}
}
