package xmldoc

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

// Format registers the provider for ".xml" documents.
var Format = &provider.Format{
	Name:       "xml",
	Extensions: []string{".xml"},
	New:        New,
}

type cached = session.NopCloser[*document]

// Provider builds trees from XML documents.
type Provider struct {
	provider.Base
	docs *session.Cache[cached]
}

// New creates an XML provider.
func New(opts provider.Options) (mount.Provider, error) {
	base, err := provider.NewBase(opts)
	if err != nil {
		return nil, err
	}
	p := &Provider{Base: base}
	p.docs = session.NewCache(p.open)
	return p, nil
}

// Name implements [mount.Provider].
func (p *Provider) Name() string { return "xml" }

// Close releases the cached document.
func (p *Provider) Close() error { return p.docs.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - path: element path ("/catalog/book[2]") to root the tree at
//   - depth: levels to materialize before emitting lazy "?path=" mounts
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	c, err := p.docs.Get(ctx, mount.DocumentKey(req.Source))
	if err != nil {
		return nil, err
	}
	doc := c.Value

	depth, err := strconv.Atoi(req.Param("depth", strconv.Itoa(p.Options().Depth)))
	if err != nil || depth < 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "depth must be a non-negative integer, got %q", req.Params["depth"])
	}

	root := doc.root
	if sel := req.Param("path", ""); sel != "" {
		if root = doc.lookup(sel); root == nil {
			return nil, errs.New(errs.ErrCodeNotFound, "no element at %s in %s", sel, doc.title)
		}
	}

	b := &builder{p: p, depth: depth, ids: make(map[string]string)}
	b.t = tree.New(req.Source, root.path, "")
	b.decorate(b.t.Root(), root)
	if err := b.add(root, 1); err != nil {
		return nil, err
	}
	b.link()
	provider.Progress(req, "xml %s: %d nodes, %d references", doc.title, b.t.NodeCount(), b.t.EdgeCount())
	return b.t, nil
}

func (p *Provider) open(ctx context.Context, key string) (cached, error) {
	data, err := p.Fetch(ctx, key)
	if err != nil {
		return cached{}, err
	}
	doc, err := parse(path.Base(key), data)
	if err != nil {
		return cached{}, errs.Wrap(errs.GetCode(err), err, "read %s", key)
	}
	p.Logger().Debug("parsed xml", "document", key, "elements", len(doc.paths))
	return cached{Value: doc}, nil
}

type builder struct {
	p     *Provider
	t     *tree.Tree
	depth int
	ids   map[string]string // id attribute -> node ID
	refs  []*element
}

func (b *builder) add(parent *element, level int) error {
	ids := make([]string, 0, len(parent.children))
	for _, el := range parent.children {
		n, err := b.t.CreateNode("", el.path)
		if err != nil {
			return err
		}
		b.decorate(n, el)

		target, eager := el.mountTarget()
		switch {
		case target != "":
			if len(el.children) > 0 {
				return errs.New(errs.ErrCodeInvalidSource, "line %d: mount element %s has child elements", el.line, el.path)
			}
			err = b.t.SetMountPoint(el.path, target, eager)
		case len(el.children) == 0:
		case b.depth > 0 && level >= b.depth:
			c := mount.NewContinuation("").With("path", el.path).With("depth", strconv.Itoa(b.depth))
			err = b.t.SetMountPoint(el.path, c.String(), false)
		default:
			err = b.add(el, level+1)
		}
		if err != nil {
			return err
		}
		ids = append(ids, el.path)
	}
	return b.p.AttachBalanced(b.t, parent.path, ids)
}

func (b *builder) decorate(n *tree.Node, el *element) {
	n.Label = label(el)
	n.Content = b.p.Truncate(strings.Join(strings.Fields(el.text), " "))
	n.Meta["line"] = el.line
	for _, a := range el.attrs {
		n.Meta["@"+a.Name.Local] = a.Value
	}
	if id := el.attr("id"); id != "" {
		b.ids[id] = el.path
	}
	if el.attr("idref") != "" || el.attr("idrefs") != "" {
		b.refs = append(b.refs, el)
	}
}

// link turns idref/idrefs attributes into edges between materialized nodes.
func (b *builder) link() {
	for _, el := range b.refs {
		for _, ref := range strings.Fields(el.attr("idref") + " " + el.attr("idrefs")) {
			to, ok := b.ids[ref]
			if !ok {
				continue
			}
			_ = b.t.AddEdge(tree.Edge{From: el.path, To: to, Label: ref, Style: tree.Style{EdgeStyle: "dotted"}})
		}
	}
}

func label(el *element) string {
	for _, key := range []string{"name", "id", "title"} {
		if v := el.attr(key); v != "" {
			return el.name + " " + strconv.Quote(v)
		}
	}
	if target, _ := el.mountTarget(); target != "" {
		return el.name + " → " + target
	}
	return el.name
}
