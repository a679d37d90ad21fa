package mongodb

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
)

// connectTimeout bounds server selection when a client is opened.
const connectTimeout = 10 * time.Second

// reserved lists the parameters the provider consumes itself. Everything
// else in a source's query belongs to the connection string.
var reserved = map[string]bool{
	paramDB:         true,
	paramCollection: true,
	paramFilter:     true,
}

// client adapts a connected *mongo.Client to io.Closer so it can be held in
// a session cache.
type client struct {
	*mongo.Client
}

func (c client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.Disconnect(ctx)
}

// connectionKey strips provider parameters from source and returns the
// canonical connection string. Sources that differ only in db, collection
// or filter share one client.
func connectionKey(source string) (string, error) {
	c, err := mount.ParseContinuation(source)
	if err != nil {
		return "", err
	}
	doc := mount.DocumentKey(c.Document)
	u, err := url.Parse(doc)
	if err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
		return "", errs.New(errs.ErrCodeInvalidSource, "not a MongoDB connection string: %q", c.Document)
	}
	conn := mount.NewContinuation(doc)
	for k := range c.Params {
		if !reserved[k] {
			conn.Params[k] = c.Params[k]
		}
	}
	return conn.String(), nil
}

// defaultDatabase returns the database named in the URI path, if any.
func defaultDatabase(key string) string {
	u, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// hostLabel is the label of a server root: the host list without
// credentials.
func hostLabel(key string) string {
	u, err := url.Parse(key)
	if err != nil {
		return key
	}
	return u.Host
}

func connect(ctx context.Context, key string) (client, error) {
	opts := options.Client().ApplyURI(key).SetServerSelectionTimeout(connectTimeout)
	if err := opts.Validate(); err != nil {
		return client{}, errs.Wrap(errs.ErrCodeInvalidSource, err, "connection string %s", hostLabel(key))
	}
	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return client{}, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "connect %s", hostLabel(key))
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return client{}, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "ping %s", hostLabel(key))
	}
	return client{Client: c}, nil
}
