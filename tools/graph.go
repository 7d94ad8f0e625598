package tools

import (
	"strings"

	"github.com/xmlcord/xmlcord/core"
)

// Node kinds.
const (
	KindCommand = "command"
	KindEvent   = "event"
	KindTask    = "task"
	KindView    = "view"
	KindModal   = "modal"
	KindChannel = "channel"
)

var sectionKinds = []struct {
	section, kind string
}{
	{core.SectionCommands, KindCommand},
	{core.SectionEvents, KindEvent},
	{core.SectionTasks, KindTask},
	{core.SectionViews, KindView},
	{core.SectionModals, KindModal},
}

// Node is a declaration or a channel that some action sends to.
type Node struct {
	Kind string
	Name string
}

// Id is usable as a dot or Mermaid node id.
func (n Node) Id() string {
	var b strings.Builder
	b.WriteString(n.Kind)
	b.WriteByte('_')
	for _, r := range n.Name {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (n Node) String() string {
	return n.Kind + " " + n.Name
}

// Edge is a reference from one Node to another by an action.
type Edge struct {
	From   Node
	To     Node
	Action string
}

// Graph is the cross-reference graph of a Document.
type Graph struct {
	// Nodes in document order.  Channels come last.
	Nodes []Node

	Edges []Edge

	// Docs are declaration descriptions.
	Docs map[Node]string

	// Decls are the declarations themselves.
	Decls map[Node]*core.Map

	// Dangling are referenced views and modals that aren't
	// declared.
	Dangling []Node
}

// Analyze builds the cross-reference graph.
//
// Views, modals, and channels named with placeholders aren't known
// until dispatch, so they are ignored.
func Analyze(doc *core.Document) *Graph {
	g := &Graph{
		Docs:  make(map[Node]string),
		Decls: make(map[Node]*core.Map),
	}

	for _, sk := range sectionKinds {
		section, _ := doc.Section(sk.section)
		if section == nil {
			continue
		}
		section.Range(func(name string, x interface{}) bool {
			if name == core.AttrKey || name == core.TextKey {
				return true
			}
			if xs, is := x.([]interface{}); is && 0 < len(xs) {
				x = xs[len(xs)-1]
			}
			decl, is := x.(*core.Map)
			if !is {
				decl = core.NewMap()
			}
			n := Node{Kind: sk.kind, Name: name}
			g.Nodes = append(g.Nodes, n)
			g.Decls[n] = decl
			if d := core.Describe(decl); d != "" {
				g.Docs[n] = d
			}
			return true
		})
	}

	for _, n := range g.Nodes {
		g.walk(n, g.Decls[n])
	}

	channels := make(map[string]bool)
	for _, e := range g.Edges {
		switch e.To.Kind {
		case KindChannel:
			if !channels[e.To.Name] {
				channels[e.To.Name] = true
				g.Nodes = append(g.Nodes, e.To)
			}
		case KindView, KindModal:
			if _, have := g.Decls[e.To]; !have && !containsNode(g.Dangling, e.To) {
				g.Dangling = append(g.Dangling, e.To)
			}
		}
	}

	return g
}

func containsNode(ns []Node, n Node) bool {
	for _, m := range ns {
		if m == n {
			return true
		}
	}
	return false
}

func (g *Graph) edge(from Node, kind, name, action string) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "{") {
		return
	}
	e := Edge{
		From:   from,
		To:     Node{Kind: kind, Name: name},
		Action: action,
	}
	for _, have := range g.Edges {
		if have == e {
			return
		}
	}
	g.Edges = append(g.Edges, e)
}

// walk finds references in actions at any depth, so handlers nested
// in view buttons and modal submissions count.
func (g *Graph) walk(from Node, m *core.Map) {
	m.Range(func(action string, x interface{}) bool {
		if action == core.AttrKey || action == core.TextKey {
			return true
		}
		for _, payload := range core.AsList(x) {
			var (
				attrs = core.NewMap()
				text  string
			)
			switch vv := payload.(type) {
			case *core.Map:
				attrs = vv.Attrs()
				text, _ = vv.String(core.TextKey)
				g.walk(from, vv)
			case string:
				text = vv
			}
			get := func(k string) string {
				s, _ := attrs.String(k)
				return s
			}

			g.edge(from, KindView, get("view"), action)

			switch action {
			case "open_modal":
				name := get("name")
				if name == "" {
					name = text
				}
				g.edge(from, KindModal, name, action)
			case "response":
				if strings.EqualFold(get("type"), "modal") {
					g.edge(from, KindModal, get("name"), action)
				}
			case "channel_message", "channel_embed":
				g.edge(from, KindChannel, get("id"), action)
			}
		}
		return true
	})
}
