package tools

import (
	"fmt"
	"html"
	"io"
	"os"

	"github.com/Comcast/banter/loader"

	md "github.com/russross/blackfriday/v2"
)

// RenderRulesHTML renders a rule document's body: the document doc,
// then a table of rules with their keys, docs, and template sources.
func RenderRulesHTML(doc *loader.RuleDoc, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if doc.Doc != "" {
		f(`<div class="rulesDoc doc">%s</div>`, md.Run([]byte(doc.Doc)))
	}

	f(`<div class="rules"><table>`)
	for i, r := range doc.Rules {
		f(`<tr class="rule"><td><div class="ruleNum">%d</div></td><td>`, i)

		f(`<table>`)
		f(`<tr><td>pattern</td><td><code>%s</code></td></tr>`,
			html.EscapeString(r.Pattern))
		if r.That != "" {
			f(`<tr><td>that</td><td><code>%s</code></td></tr>`,
				html.EscapeString(r.That))
		}
		if r.Topic != "" {
			f(`<tr><td>topic</td><td><code>%s</code></td></tr>`,
				html.EscapeString(r.Topic))
		}
		if r.Doc != "" {
			f(`<tr><td>doc</td><td><div class="ruleDoc doc">%s</div></td></tr>`,
				md.Run([]byte(r.Doc)))
		}
		f(`<tr><td>template</td><td><div class="code"><pre>%s</pre></div></td></tr>`,
			html.EscapeString(r.Template))
		f(`</table>`)

		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderRulesPage renders a complete HTML page for a rule document.
func RenderRulesPage(doc *loader.RuleDoc, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/rules-html.css"}
	}

	title := doc.Name
	if title == "" {
		title = "rules"
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if err := RenderRulesHTML(doc, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderRulesPage reads a YAML rule document and renders its
// page.
func ReadAndRenderRulesPage(filename string, cssFiles []string, out io.Writer) error {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	doc, err := loader.ParseYAML(bs)
	if err != nil {
		return err
	}

	// Check that every template actually parses before rendering
	// documentation for it.
	for i, r := range doc.Rules {
		if _, err := r.Rule(); err != nil {
			return fmt.Errorf("rule %d (%q): %w", i, r.Pattern, err)
		}
	}

	return RenderRulesPage(doc, out, cssFiles)
}
