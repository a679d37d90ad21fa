package dot

import (
	"context"
	"path"
	"strconv"
	"strings"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Format registers the provider for Graphviz documents.
var Format = &provider.Format{
	Name:       "dot",
	Extensions: []string{".dot", ".gv"},
	New:        New,
}

type cached = session.NopCloser[*graph]

// Provider builds spanning trees of Graphviz graphs.
type Provider struct {
	provider.Base
	graphs *session.Cache[cached]
}

// New creates a Graphviz provider.
func New(opts provider.Options) (mount.Provider, error) {
	base, err := provider.NewBase(opts)
	if err != nil {
		return nil, err
	}
	p := &Provider{Base: base}
	p.graphs = session.NewCache(p.open)
	return p, nil
}

// Name implements [mount.Provider].
func (p *Provider) Name() string { return "dot" }

// Close releases the cached graph.
func (p *Provider) Close() error { return p.graphs.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - node: name of the node to root the tree at (default: every node
//     without incoming edges, under a synthetic graph root)
//   - depth: levels to materialize before emitting lazy "?node=" mounts
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	c, err := p.graphs.Get(ctx, mount.DocumentKey(req.Source))
	if err != nil {
		return nil, err
	}
	g := c.Value

	depth, err := strconv.Atoi(req.Param("depth", strconv.Itoa(p.Options().Depth)))
	if err != nil || depth < 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "depth must be a non-negative integer, got %q", req.Params["depth"])
	}
	s := &spanner{p: p, depth: depth, visited: make(map[*vertex]bool)}

	if name := req.Param("node", ""); name != "" {
		v, ok := g.index[name]
		if !ok {
			return nil, errs.New(errs.ErrCodeNotFound, "no node %q in %s", name, g.name)
		}
		s.t = tree.New(req.Source, v.name, v.label)
		decorate(s.t.Root(), v)
		s.visited[v] = true
		if err := s.expand(v, 1); err != nil {
			return nil, err
		}
	} else {
		s.t = tree.New(req.Source, rootID(g), graphLabel(g, req))
		roots := g.roots()
		ids := make([]string, 0, len(roots))
		for _, r := range roots {
			if s.visited[r] {
				continue
			}
			if err := s.visit(r, 1); err != nil {
				return nil, err
			}
			ids = append(ids, r.name)
		}
		if err := p.AttachBalanced(s.t, s.t.RootID(), ids); err != nil {
			return nil, err
		}
	}

	if err := s.link(); err != nil {
		return nil, err
	}
	provider.Progress(req, "graph %s: %d nodes, %d cross edges", g.name, s.t.NodeCount(), s.t.EdgeCount())
	return s.t, nil
}

func (p *Provider) open(ctx context.Context, key string) (cached, error) {
	data, err := p.Fetch(ctx, key)
	if err != nil {
		return cached{}, err
	}
	g, err := parseDOT(ctx, data)
	if err != nil {
		return cached{}, err
	}
	p.Logger().Debug("parsed graph", "document", key, "nodes", len(g.nodes))
	return cached{Value: g}, nil
}

// spanner grows a depth-first spanning tree. Edges that reach an already
// visited node are kept as cross edges.
type spanner struct {
	p       *Provider
	t       *tree.Tree
	depth   int
	visited map[*vertex]bool
	cross   []tree.Edge
}

func (s *spanner) visit(v *vertex, level int) error {
	s.visited[v] = true
	n, err := s.t.CreateNode("", v.name)
	if err != nil {
		return err
	}
	decorate(n, v)
	if len(v.out) > 0 && s.depth > 0 && level >= s.depth {
		c := mount.NewContinuation("").With("node", v.name).With("depth", strconv.Itoa(s.depth))
		return s.t.SetMountPoint(v.name, c.String(), false)
	}
	return s.expand(v, level+1)
}

func (s *spanner) expand(v *vertex, level int) error {
	ids := make([]string, 0, len(v.out))
	for _, a := range v.out {
		if s.visited[a.to] {
			s.cross = append(s.cross, tree.Edge{From: v.name, To: a.to.name, Label: a.label, Style: tree.Style{EdgeStyle: a.style}})
			continue
		}
		if err := s.visit(a.to, level); err != nil {
			return err
		}
		if n, ok := s.t.Node(a.to.name); ok && a.style != "" {
			n.Style.EdgeStyle = a.style
		}
		ids = append(ids, a.to.name)
	}
	return s.p.AttachBalanced(s.t, v.name, ids)
}

// link records the cross edges on the tree.
func (s *spanner) link() error {
	for _, e := range s.cross {
		if err := s.t.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func decorate(n *tree.Node, v *vertex) {
	n.Label = v.label
	n.Content = v.content
	n.Style = v.style
	n.Meta["node"] = v.name
	n.Meta["out_degree"] = len(v.out)
}

func rootID(g *graph) string {
	id := "graph"
	for g.index[id] != nil {
		id += "'"
	}
	return id
}

func graphLabel(g *graph, req mount.Request) string {
	if g.name != "" && !strings.HasPrefix(g.name, "%") {
		return g.name
	}
	return path.Base(req.Document())
}
