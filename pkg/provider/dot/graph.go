package dot

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// graph is the parsed form of a DOT document, detached from the Graphviz
// runtime so it can be cached and walked many times.
type graph struct {
	name  string
	nodes []*vertex
	index map[string]*vertex
}

type vertex struct {
	name    string
	label   string
	content string
	style   tree.Style
	out     []arc
	in      int
}

type arc struct {
	to    *vertex
	label string
	style string
}

func newGraph(name string) *graph {
	return &graph{name: name, index: make(map[string]*vertex)}
}

// vertex returns the named vertex, adding it if it is new.
func (g *graph) vertex(name string) *vertex {
	if v, ok := g.index[name]; ok {
		return v
	}
	v := &vertex{name: name, label: name}
	g.nodes = append(g.nodes, v)
	g.index[name] = v
	return v
}

func (g *graph) connect(from, to, label, style string) {
	f, t := g.vertex(from), g.vertex(to)
	f.out = append(f.out, arc{to: t, label: label, style: style})
	t.in++
}

// roots returns the vertices without incoming edges in document order,
// followed by one vertex for every cycle that none of them reaches.
func (g *graph) roots() []*vertex {
	seen := make(map[*vertex]bool, len(g.nodes))
	var mark func(v *vertex)
	mark = func(v *vertex) {
		if seen[v] {
			return
		}
		seen[v] = true
		for _, a := range v.out {
			mark(a.to)
		}
	}

	var out []*vertex
	for _, v := range g.nodes {
		if v.in == 0 {
			out = append(out, v)
			mark(v)
		}
	}
	for _, v := range g.nodes {
		if !seen[v] {
			out = append(out, v)
			mark(v)
		}
	}
	return out
}

// parseDOT reads a DOT document with Graphviz.
func parseDOT(ctx context.Context, data []byte) (*graph, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	cg, err := graphviz.ParseBytes(data)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "parse DOT")
	}
	defer cg.Close()

	name, _ := cg.Name()
	g := newGraph(name)

	var handles []*graphviz.Node
	n, err := cg.FirstNode()
	for ; n != nil && err == nil; n, err = cg.NextNode(n) {
		nodeName, err := n.Name()
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "read node name")
		}
		v := g.vertex(nodeName)
		if l := cleanLabel(n.GetStr("label")); l != "" && l != `\N` {
			v.label = l
		}
		v.content = n.GetStr("tooltip")
		v.style = tree.Style{
			FillColor: n.GetStr("fillcolor"),
			FontColor: n.GetStr("fontcolor"),
			Image:     n.GetStr("image"),
		}
		handles = append(handles, n)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "walk nodes")
	}

	for _, n := range handles {
		tailName, _ := n.Name()
		e, err := cg.FirstOut(n)
		for ; e != nil && err == nil; e, err = cg.NextOut(e) {
			head, herr := e.Head()
			if herr != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidSource, herr, "read edge head")
			}
			headName, _ := head.Name()
			g.connect(tailName, headName, cleanLabel(e.GetStr("label")), e.GetStr("style"))
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "walk edges of %s", tailName)
		}
	}
	return g, nil
}

// cleanLabel flattens Graphviz line-break escapes.
func cleanLabel(s string) string {
	s = strings.NewReplacer(`\n`, " ", `\l`, " ", `\r`, " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
