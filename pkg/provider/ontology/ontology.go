package ontology

import (
	"context"
	"path"
	"strconv"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Format registers the provider for TOML taxonomies.
var Format = &provider.Format{
	Name:       "ontology",
	Extensions: []string{".onto.toml", ".ontology"},
	New:        New,
}

const (
	paramClass  = "class"
	paramTarget = "target"
	paramShow   = "show"
	paramDepth  = "depth"

	// defaultDepth applies when neither the request nor the options set a
	// depth: every class list is its own mount.
	defaultDepth = 1
)

type cached = session.NopCloser[*taxonomy]

// Provider builds class hierarchies of TOML taxonomies.
type Provider struct {
	provider.Base
	docs *session.Cache[cached]
}

// New creates a taxonomy provider.
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
func (p *Provider) Name() string { return "ontology" }

// Close releases the cached taxonomy.
func (p *Provider) Close() error { return p.docs.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - class: name or IRI of the class to root the tree at
//   - target: "+"-joined facets shown on that class
//     (instances, properties, relation; default: all it has)
//   - show: "+"-joined facets allowed anywhere below (default: all)
//   - depth: class levels materialized before lazy mounts (default 1)
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	c, err := p.docs.Get(ctx, mount.DocumentKey(req.Source))
	if err != nil {
		return nil, err
	}
	tx := c.Value

	depth := p.Options().Depth
	if depth == 0 {
		depth = defaultDepth
	}
	if raw := req.Param(paramDepth, ""); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil || depth < 1 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "depth must be a positive integer, got %q", raw)
		}
	}
	b := &builder{p: p, tx: tx, depth: depth}
	if raw, ok := req.Params[paramShow]; ok && raw != "" {
		b.show = mount.SplitTargets(raw)
	}

	ref := req.Param(paramClass, "")
	if ref == "" {
		b.t = tree.New(req.Source, "ontology", tx.title)
		b.t.Root().Meta["classes"] = len(tx.classes)
		if err := b.classList(b.t.RootID(), tx.top, 1); err != nil {
			return nil, err
		}
	} else {
		cl, ok := tx.class(ref)
		if !ok {
			return nil, errs.New(errs.ErrCodeNotFound, "no class %q in %s", ref, tx.title)
		}
		shown := b.shownFor(cl)
		if raw, ok := req.Params[paramTarget]; ok {
			shown = restrict(shown, mount.SplitTargets(raw))
		}
		b.t = tree.New(req.Source, cl.name, cl.label)
		b.describe(b.t.Root(), cl, shown)
		if err := b.expand(cl, shown, 1); err != nil {
			return nil, err
		}
	}

	b.link()
	provider.Progress(req, "%s: %d nodes", tx.title, b.t.NodeCount())
	return b.t, nil
}

func (p *Provider) open(ctx context.Context, key string) (cached, error) {
	data, err := p.Fetch(ctx, key)
	if err != nil {
		return cached{}, err
	}
	tx, err := parse(path.Base(key), data)
	if err != nil {
		return cached{}, errs.Wrap(errs.GetCode(err), err, "parse %s", key)
	}
	p.Logger().Debug("parsed taxonomy", "document", key, "classes", len(tx.classes))
	return cached{Value: tx}, nil
}

type builder struct {
	p     *Provider
	tx    *taxonomy
	t     *tree.Tree
	depth int
	show  map[string]bool
	links []relationLink
}

type relationLink struct {
	from, to, label string
}

func (b *builder) shownFor(c *class) map[string]bool {
	return facets(c, b.show)
}

// classList adds the named classes under parentID at the given level.
func (b *builder) classList(parentID string, names []string, level int) error {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if err := b.class(b.tx.classes[name], level); err != nil {
			return err
		}
		ids = append(ids, name)
	}
	return b.p.AttachBalanced(b.t, parentID, ids)
}

// class adds a detached class node, either expanded or as a lazy mount.
func (b *builder) class(c *class, level int) error {
	n, err := b.t.CreateNode("", c.name)
	if err != nil {
		return err
	}
	shown := b.shownFor(c)
	b.describe(n, c, shown)
	if level >= b.depth && (len(c.subclasses) > 0 || len(shown) > 0) {
		cont := mount.NewContinuation("").
			With(paramClass, c.name).
			With(paramTarget, targetParam(shown)).
			With(paramShow, targetParam(b.show)).
			With(paramDepth, strconv.Itoa(b.depth))
		return b.t.SetMountPoint(c.name, cont.String(), false)
	}
	return b.expand(c, shown, level+1)
}

// expand adds the shown facets and the subclasses of an existing class
// node.
func (b *builder) expand(c *class, shown map[string]bool, level int) error {
	if shown[TargetInstances] {
		if err := b.facet(c.name, TargetInstances, c.instances); err != nil {
			return err
		}
	}
	if shown[TargetProperties] {
		if err := b.facet(c.name, TargetProperties, c.properties); err != nil {
			return err
		}
	}
	if shown[TargetRelation] {
		names := make([]string, len(c.relations))
		for i, r := range c.relations {
			names[i] = r.name + " → " + b.tx.classes[r.target].label
		}
		if err := b.facet(c.name, TargetRelation, names); err != nil {
			return err
		}
		for i, r := range c.relations {
			b.links = append(b.links, relationLink{
				from:  c.name + "/" + TargetRelation + "/" + strconv.Itoa(i),
				to:    r.target,
				label: r.name,
			})
		}
	}
	if len(c.subclasses) == 0 {
		return nil
	}
	return b.classList(c.name, c.subclasses, level)
}

// facet adds a folder node listing one facet of a class.
func (b *builder) facet(classID, target string, items []string) error {
	folderID := classID + "/" + target
	folder, err := b.t.CreateNode(classID, folderID)
	if err != nil {
		return err
	}
	folder.Label = target + " (" + strconv.Itoa(len(items)) + ")"
	folder.Meta["facet"] = target

	ids := make([]string, 0, len(items))
	for i, item := range items {
		id := folderID + "/" + strconv.Itoa(i)
		n, err := b.t.CreateNode("", id)
		if err != nil {
			return err
		}
		n.Label = item
		ids = append(ids, id)
	}
	return b.p.AttachBalanced(b.t, folderID, ids)
}

func (b *builder) describe(n *tree.Node, c *class, shown map[string]bool) {
	n.Label = c.label
	n.Content = b.p.Truncate(c.comment)
	n.Meta["iri"] = b.tx.iri(c.name)
	n.Meta["subclasses"] = len(c.subclasses)
	decorate(n, KindOf(shown))
}

// link turns relations into edges where the target class is part of the
// tree.
func (b *builder) link() {
	for _, l := range b.links {
		if _, ok := b.t.Node(l.to); ok {
			_ = b.t.AddEdge(tree.Edge{From: l.from, To: l.to, Label: l.label, Style: tree.Style{EdgeStyle: "dotted"}})
		}
	}
}

func restrict(shown, allowed map[string]bool) map[string]bool {
	out := make(map[string]bool, len(shown))
	for t := range shown {
		if allowed[t] {
			out[t] = true
		}
	}
	return out
}
