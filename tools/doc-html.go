package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	"github.com/xmlcord/xmlcord/config"
	"github.com/xmlcord/xmlcord/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderDocHTML writes a table for each kind of declaration.
// Descriptions are Markdown.
func RenderDocHTML(doc *core.Document, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	g := Analyze(doc)

	refs := func(n Node) {
		var edges []Edge
		for _, e := range g.Edges {
			if e.From == n {
				edges = append(edges, e)
			}
		}
		if len(edges) == 0 {
			return
		}
		f(`<div class="refs">`)
		for _, e := range edges {
			f(`<div><span class="action">%s</span> <a href="#%s">%s</a></div>`,
				html.EscapeString(e.Action), e.To.Id(), html.EscapeString(e.To.String()))
		}
		f(`</div>`)
	}

	for _, sk := range sectionKinds {
		f(`<div class="section %s"><h2>%s</h2><table>`, sk.section, sk.section)
		for _, n := range g.Nodes {
			if n.Kind != sk.kind {
				continue
			}
			f(`<tr class="decl"><td><span id="%s" class="declName">%s</span></td><td>`,
				n.Id(), html.EscapeString(n.Name))
			if d, have := g.Docs[n]; have {
				f(`<div class="declDoc doc">%s</div>`, md.Run([]byte(d)))
			}
			decl := g.Decls[n]
			if attrs := decl.Attrs(); 0 < attrs.Len() {
				js, err := json.Marshal(attrs)
				if err != nil {
					return err
				}
				f(`<div class="attrs"><code>%s</code></div>`, html.EscapeString(string(js)))
			}
			if n.Kind == KindCommand {
				args, err := core.ParseArgSpecs(decl)
				if err != nil {
					f(`<div class="error">%s</div>`, html.EscapeString(err.Error()))
				}
				if 0 < len(args) {
					f(`<table class="args">`)
					for _, a := range args {
						f(`<tr><td><code>%s</code></td><td>%s</td><td>%s</td></tr>`,
							html.EscapeString(a.Name), a.Type, md.Run([]byte(a.Description)))
					}
					f(`</table>`)
				}
			}
			refs(n)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	if 0 < len(g.Dangling) {
		f(`<div class="dangling"><h2>undeclared</h2>`)
		for _, n := range g.Dangling {
			f(`<div id="%s" class="error">%s</div>`, n.Id(), html.EscapeString(n.String()))
		}
		f(`</div>`)
	}

	return nil
}

// RenderDocPage writes a complete HTML page.
func RenderDocPage(title string, doc *core.Document, out io.Writer, cssFiles []string) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/doc-html.css"}
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

	if err := RenderDocHTML(doc, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderDocPage loads the named document and renders it.
func ReadAndRenderDocPage(name string, cssFiles []string, out io.Writer) error {
	doc, _, err := config.Load(name)
	if err != nil {
		return err
	}
	return RenderDocPage(name, doc, out, cssFiles)
}
