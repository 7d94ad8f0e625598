package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/xmlcord/xmlcord/core"

	"gopkg.in/yaml.v2"
)

var dotFill = map[string]string{
	KindCommand: "#2d93ad",
	KindEvent:   "#52aa5e",
	KindTask:    "#f2b134",
	KindView:    "#99ddc8",
	KindModal:   "#bcf2db",
	KindChannel: "#dddddd",
}

// Dot makes a Graphviz dot file for the document's cross-reference
// graph.
//
// A declaration's node shows its attributes as YAML.  A dangling
// reference (a view or modal that isn't declared) is red.
func Dot(doc *core.Document, w io.WriteCloser) error {
	g := Analyze(doc)

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "10"]
`)

	node := func(n Node) {
		label := n.Kind + " <B>" + esc(n.Name) + "</B>"
		if d, have := g.Docs[n]; have {
			if 40 < len(d) {
				if period := strings.Index(d, ". "); 0 < period {
					d = d[0 : period+1]
				}
			}
			label += "<BR/><FONT POINT-SIZE='8'>" + esc(d) + "</FONT>"
		}
		if decl, have := g.Decls[n]; have && 0 < decl.Attrs().Len() {
			bs, err := yaml.Marshal(decl.Attrs())
			if err != nil {
				bs = []byte(err.Error())
			}
			label += `<FONT POINT-SIZE="6"><BR/>` +
				strings.Replace(esc(string(bs)), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}
		shape := "record"
		switch n.Kind {
		case KindView, KindModal:
			shape = "note"
		case KindChannel:
			shape = "oval"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"filled\", color=\"black\", fillcolor=\"%s\", label=<%s> ]\n",
			n.Id(), shape, dotFill[n.Kind], label)
	}

	for _, n := range g.Nodes {
		node(n)
	}
	for _, n := range g.Dangling {
		fmt.Fprintf(w, "  %s [shape=\"note\", style=\"filled,dashed\", color=\"red\", fillcolor=\"#f98b8b\", label=<%s <B>%s</B>> ]\n",
			n.Id(), n.Kind, esc(n.Name))
	}

	for _, e := range g.Edges {
		fmt.Fprintf(w, "  %s -> %s [ label = <%s> ]\n", e.From.Id(), e.To.Id(), esc(e.Action))
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(doc *core.Document, basename string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(doc, dotfile); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func esc(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}
