/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/xmlcord/xmlcord/core"
)

type MermaidOpts struct {
	// ShowActions labels each edge with the action that makes
	// the reference.
	ShowActions bool `json:"showActions"`

	// HandlerFill is the fill color for commands, events, and
	// tasks.  Does not apply if HandlerClass is set.
	HandlerFill string `json:"handlerFill,omitempty"`

	// HandlerClass will be the CSS class for handler nodes.
	HandlerClass string `json:"handlerClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the document's cross-reference graph.
func Mermaid(doc *core.Document, w io.WriteCloser, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowActions: true,
			HandlerFill: "#bcf2db",
		}
	}

	g := Analyze(doc)

	fmt.Fprintf(w, "graph LR\n")

	if opts.HandlerClass != "" {
		fmt.Fprintf(w, "  classDef %s fill:%s\n", opts.HandlerClass, opts.HandlerFill)
	}

	node := func(n Node) {
		label := strings.Replace(n.String(), `"`, `'`, -1)
		switch n.Kind {
		case KindCommand, KindEvent, KindTask:
			fmt.Fprintf(w, "  %s[\"%s\"]\n", n.Id(), label)
			if opts.HandlerClass != "" {
				fmt.Fprintf(w, "  class %s %s\n", n.Id(), opts.HandlerClass)
			} else if opts.HandlerFill != "" {
				fmt.Fprintf(w, "  style %s fill:%s\n", n.Id(), opts.HandlerFill)
			}
		case KindChannel:
			fmt.Fprintf(w, "  %s((\"%s\"))\n", n.Id(), label)
		default:
			fmt.Fprintf(w, "  %s(\"%s\")\n", n.Id(), label)
		}
	}

	for _, n := range g.Nodes {
		node(n)
	}
	for _, n := range g.Dangling {
		node(n)
		fmt.Fprintf(w, "  style %s stroke:#f00,stroke-dasharray:4\n", n.Id())
	}

	for _, e := range g.Edges {
		label := ""
		if opts.ShowActions {
			label = fmt.Sprintf(`-- "%s" `, e.Action)
		}
		fmt.Fprintf(w, "  %s %s--> %s\n", e.From.Id(), label, e.To.Id())
	}

	fmt.Fprintf(w, "\n")

	return w.Close()
}
