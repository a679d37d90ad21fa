package text

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

// Format registers the provider for ".txt" and ".outline" documents.
var Format = &provider.Format{
	Name:       "text",
	Extensions: []string{".txt", ".outline"},
	New:        New,
}

type document = session.NopCloser[*outline]

// Provider builds trees from indented outlines.
type Provider struct {
	provider.Base
	docs *session.Cache[document]
}

// New creates a text provider.
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
func (p *Provider) Name() string { return "text" }

// Close releases the cached document.
func (p *Provider) Close() error { return p.docs.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - path: child-index path ("3/1") of the item to root the tree at
//   - depth: levels to materialize below the root before emitting lazy
//     "?path=" mounts (default: the provider's Depth option, 0 for all)
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	doc, err := p.docs.Get(ctx, mount.DocumentKey(req.Source))
	if err != nil {
		return nil, err
	}
	o := doc.Value

	depth, err := strconv.Atoi(req.Param("depth", strconv.Itoa(p.Options().Depth)))
	if err != nil || depth < 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "depth must be a non-negative integer, got %q", req.Params["depth"])
	}

	b := &builder{p: p, depth: depth}
	sel := strings.Trim(req.Param("path", ""), "/")
	if sel == "" {
		b.t = tree.New(req.Source, "root", o.title)
		if err := b.add("root", o.items, 1); err != nil {
			return nil, err
		}
		return b.t, nil
	}

	indexes, err := parsePath(sel)
	if err != nil {
		return nil, err
	}
	it := o.find(indexes)
	if it == nil {
		return nil, errs.New(errs.ErrCodeNotFound, "no item at path %s in %s", sel, o.title)
	}
	b.t = tree.New(req.Source, sel, it.label)
	b.t.Root().Content = it.content
	b.t.Root().Meta["line"] = it.line
	provider.Progress(req, "outline %s: item %s", o.title, sel)
	if err := b.add(sel, it.children, 1); err != nil {
		return nil, err
	}
	return b.t, nil
}

func (p *Provider) open(ctx context.Context, key string) (document, error) {
	data, err := p.Fetch(ctx, key)
	if err != nil {
		return document{}, err
	}
	o, err := parse(path.Base(key), data)
	if err != nil {
		return document{}, errs.Wrap(errs.GetCode(err), err, "parse %s", key)
	}
	p.Logger().Debug("parsed outline", "document", key, "items", len(o.items))
	return document{Value: o}, nil
}

type builder struct {
	p     *Provider
	t     *tree.Tree
	depth int
}

// add creates nodes for items under parentID. IDs are index paths relative
// to the document, so lazy mounts can name them.
func (b *builder) add(parentID string, items []*item, level int) error {
	ids := make([]string, 0, len(items))
	for i, it := range items {
		id := b.childID(parentID, i)
		n, err := b.t.CreateNode("", id)
		if err != nil {
			return err
		}
		n.Label, n.Content = it.label, it.content
		n.Meta["line"] = it.line

		switch {
		case it.mount != "":
			err = b.t.SetMountPoint(id, it.mount, it.eager)
		case len(it.children) == 0:
		case b.depth > 0 && level >= b.depth:
			c := mount.NewContinuation("").With("path", id).With("depth", strconv.Itoa(b.depth))
			err = b.t.SetMountPoint(id, c.String(), false)
		default:
			err = b.add(id, it.children, level+1)
		}
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return b.p.AttachBalanced(b.t, parentID, ids)
}

func (b *builder) childID(parentID string, i int) string {
	if parentID == "root" {
		return strconv.Itoa(i)
	}
	return parentID + "/" + strconv.Itoa(i)
}

func parsePath(s string) ([]int, error) {
	parts := strings.Split(s, "/")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "invalid item path %q", s)
		}
		out[i] = n
	}
	return out, nil
}
