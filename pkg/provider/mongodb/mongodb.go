package mongodb

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Format registers the provider for MongoDB connection strings.
var Format = &provider.Format{
	Name:    "mongodb",
	Schemes: []string{"mongodb", "mongodb+srv"},
	New:     New,
}

const (
	paramDB         = "db"
	paramCollection = "collection"
	paramFilter     = "filter"
)

// labelFields are tried in order to pick a document label.
var labelFields = []string{"name", "title", "label", "_id"}

// Provider builds trees of databases, collections and documents.
type Provider struct {
	provider.Base
	clients *session.Cache[client]
}

// New creates a MongoDB provider.
func New(opts provider.Options) (mount.Provider, error) {
	base, err := provider.NewBase(opts)
	if err != nil {
		return nil, err
	}
	p := &Provider{Base: base}
	p.clients = session.NewCache(p.open)
	return p, nil
}

// Name implements [mount.Provider].
func (p *Provider) Name() string { return "mongodb" }

// Close disconnects the held client.
func (p *Provider) Close() error { return p.clients.Close() }

// BuildTree implements [mount.Provider].
//
// Parameters:
//   - db: list the collections of this database
//   - collection: with db, list the documents of this collection
//   - filter: with collection, an Extended JSON query document
//
// Without db the databases are listed, unless the connection string names a
// default database in its path.
func (p *Provider) BuildTree(ctx context.Context, req mount.Request) (*tree.Tree, error) {
	key, err := connectionKey(req.Source)
	if err != nil {
		return nil, err
	}
	c, err := p.clients.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	db := req.Param(paramDB, defaultDatabase(key))
	coll := req.Param(paramCollection, "")
	switch {
	case db == "":
		return p.databases(ctx, c, key, req)
	case coll == "":
		return p.collections(ctx, c, db, req)
	default:
		return p.documents(ctx, c, db, coll, req)
	}
}

func (p *Provider) open(ctx context.Context, key string) (client, error) {
	c, err := connect(ctx, key)
	if err != nil {
		return client{}, err
	}
	p.Logger().Debug("connected", "hosts", hostLabel(key))
	return c, nil
}

func (p *Provider) databases(ctx context.Context, c client, key string, req mount.Request) (*tree.Tree, error) {
	names, err := c.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "list databases")
	}
	t := tree.New(req.Source, "server", hostLabel(key))
	ids, err := p.lazyChildren(t, "db:", names, func(name string) mount.Continuation {
		return mount.NewContinuation("").With(paramDB, name)
	})
	if err != nil {
		return nil, err
	}
	if err := p.AttachBalanced(t, t.RootID(), ids); err != nil {
		return nil, err
	}
	provider.Progress(req, "%s: %d databases", hostLabel(key), len(ids))
	return t, nil
}

func (p *Provider) collections(ctx context.Context, c client, db string, req mount.Request) (*tree.Tree, error) {
	names, err := c.Database(db).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "list collections of %s", db)
	}
	t := tree.New(req.Source, "db:"+db, db)
	t.Root().Meta["db"] = db
	ids, err := p.lazyChildren(t, "collection:", names, func(name string) mount.Continuation {
		return mount.NewContinuation("").With(paramDB, db).With(paramCollection, name)
	})
	if err != nil {
		return nil, err
	}
	if err := p.AttachBalanced(t, t.RootID(), ids); err != nil {
		return nil, err
	}
	provider.Progress(req, "%s: %d collections", db, len(ids))
	return t, nil
}

// lazyChildren creates one lazy placeholder per name, sorted by name.
func (p *Provider) lazyChildren(t *tree.Tree, prefix string, names []string, cont func(string) mount.Continuation) ([]string, error) {
	names = sortedCopy(names)
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id := prefix + name
		n, err := t.CreateNode("", id)
		if err != nil {
			return nil, err
		}
		n.Label = name
		if err := t.SetMountPoint(id, cont(name).String(), false); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *Provider) documents(ctx context.Context, c client, db, coll string, req mount.Request) (*tree.Tree, error) {
	filter := bson.D{}
	if raw := req.Param(paramFilter, ""); raw != "" {
		if err := bson.UnmarshalExtJSON([]byte(raw), false, &filter); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "filter %q", raw)
		}
	}
	limit := p.Options().DocumentLimit
	cur, err := c.Database(db).Collection(coll).Find(ctx, filter, options.Find().SetLimit(int64(limit+1)))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "find in %s.%s", db, coll)
	}
	defer cur.Close(ctx)

	t := tree.New(req.Source, "collection:"+coll, coll)
	t.Root().Meta["db"] = db
	t.Root().Meta["collection"] = coll
	b := &docBuilder{p: p, t: t}
	var ids []string
	for cur.Next(ctx) {
		if len(ids) == limit {
			t.Root().Meta["truncated"] = true
			if req.Sink != nil {
				req.Sink.Message(fmt.Sprintf("%s.%s: showing the first %d documents", db, coll, limit))
			}
			break
		}
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "decode document in %s.%s", db, coll)
		}
		id, err := b.document(coll+"/"+strconv.Itoa(len(ids)), doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := cur.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "read %s.%s", db, coll)
	}
	if err := p.AttachBalanced(t, t.RootID(), ids); err != nil {
		return nil, err
	}
	provider.Progress(req, "%s.%s: %d documents", db, coll, len(ids))
	return t, nil
}

// docBuilder turns decoded documents into detached subtrees.
type docBuilder struct {
	p *Provider
	t *tree.Tree
}

// document adds a document node with one child per field and returns its
// ID.
func (b *docBuilder) document(id string, doc bson.D) (string, error) {
	n, err := b.t.CreateNode("", id)
	if err != nil {
		return "", err
	}
	n.Label = b.p.Truncate(documentLabel(doc, id))
	if oid, ok := lookup(doc, "_id"); ok {
		n.Meta["_id"] = formatScalar(oid)
	}
	if err := b.fields(id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (b *docBuilder) fields(parentID string, doc bson.D) error {
	for _, e := range doc {
		if err := b.value(parentID, parentID+"."+e.Key, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// value adds one field. Embedded documents and arrays become branches.
func (b *docBuilder) value(parentID, id, key string, v any) error {
	n, err := b.t.CreateNode(parentID, id)
	if err != nil {
		return err
	}
	n.Meta["field"] = key
	switch v := v.(type) {
	case bson.D:
		n.Label = key
		n.Meta["type"] = "document"
		return b.fields(id, v)
	case bson.M:
		n.Label = key
		n.Meta["type"] = "document"
		return b.fields(id, sortedDoc(v))
	case bson.A:
		n.Label = fmt.Sprintf("%s [%d]", key, len(v))
		n.Meta["type"] = "array"
		for i, item := range v {
			idx := strconv.Itoa(i)
			if err := b.value(id, id+"."+idx, idx, item); err != nil {
				return err
			}
		}
		return nil
	default:
		s := formatScalar(v)
		n.Label = key + ": " + b.p.Truncate(s)
		n.Content = b.p.Truncate(s)
		return nil
	}
}

func documentLabel(doc bson.D, fallback string) string {
	for _, f := range labelFields {
		if v, ok := lookup(doc, f); ok {
			if s := formatScalar(v); s != "" {
				return s
			}
		}
	}
	return fallback
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func formatScalar(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.Binary:
		return fmt.Sprintf("binary(%d bytes)", len(v.Data))
	case primitive.Decimal128:
		return v.String()
	case string:
		return v
	case bson.D, bson.M, bson.A:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func sortedCopy(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return out
}

// sortedDoc orders a map document by key so that trees are stable.
func sortedDoc(m bson.M) bson.D {
	d := make(bson.D, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
