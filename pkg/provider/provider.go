package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/query"
	"github.com/matzehuels/graftwood/pkg/session"
	"github.com/matzehuels/graftwood/pkg/source"
	"github.com/matzehuels/graftwood/pkg/tree"
	"github.com/matzehuels/graftwood/pkg/tree/balance"
)

const (
	DefaultRowLimit      = 500 // Default number of SQL rows listed per table
	DefaultDocumentLimit = 500 // Default number of Mongo documents listed per collection
	DefaultMaxBytes = 200 // Default length of content previews
)

// DefaultGroupStyle is applied to hierarchizer group nodes when no style is
// configured.
var DefaultGroupStyle = tree.Style{FillColor: "#eeeeee", FontColor: "#555555", EdgeStyle: "dashed"}

// Options configures every provider created by a [Registry].
type Options struct {
	Balance       balance.Config    // Fan-out limits (default: balance.DefaultConfig)
	GroupStyle    tree.Style        // Style of synthetic group nodes
	Logger        *log.Logger       // Debug logging (default: log.Default)
	Fetcher       *source.Fetcher   // Document reader (default: uncached fetcher)
	Depth         int               // Levels materialized before lazy mounts (0: unlimited)
	RowLimit      int               // SQL rows listed per table (default: 500)
	DocumentLimit int               // Mongo documents listed per collection (default: 500)
	MaxBytes      int               // Length of content previews (default: 200)
	Macros        map[string]string // ${name} expansions for SQL statements
	Clauses       []query.Clause    // Named narrowing clauses for SQL tables
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if len(opts.Balance.MaxChildrenPerLevel) == 0 {
		opts.Balance = balance.DefaultConfig()
	}
	if opts.GroupStyle.IsZero() {
		opts.GroupStyle = DefaultGroupStyle
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = source.NewFetcher(nil, source.DefaultTTL)
	}
	if opts.RowLimit <= 0 {
		opts.RowLimit = DefaultRowLimit
	}
	if opts.DocumentLimit <= 0 {
		opts.DocumentLimit = DefaultDocumentLimit
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Macros == nil {
		opts.Macros = map[string]string{}
	}
	return opts
}

// Base carries what every provider needs: options, the recursion guard and
// a balancer. Providers embed it.
type Base struct {
	opts     Options
	guard    *session.Guard
	balancer *balance.Balancer
}

// NewBase applies defaults to opts and builds the balancer. An invalid
// fan-out configuration fails with INVALID_CONFIGURATION.
func NewBase(opts Options) (Base, error) {
	opts = opts.WithDefaults()
	b, err := balance.New(opts.Balance, opts.GroupStyle)
	if err != nil {
		return Base{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "balance configuration")
	}
	return Base{
		opts:     opts,
		guard:    session.NewGuard(mount.Canonical),
		balancer: b,
	}, nil
}

// Guard implements [mount.Guarded].
func (b *Base) Guard() *session.Guard { return b.guard }

// Options returns the options with defaults applied.
func (b *Base) Options() Options { return b.opts }

// Logger returns the provider logger.
func (b *Base) Logger() *log.Logger { return b.opts.Logger }

// Balancer returns the hierarchizer shared by the provider's builds.
func (b *Base) Balancer() *balance.Balancer { return b.balancer }

// AttachBalanced hierarchizes detached children and attaches them under
// parentID.
func (b *Base) AttachBalanced(t *tree.Tree, parentID string, children []string) error {
	return b.balancer.Attach(t, parentID, children)
}

// Fetch reads a document through the configured fetcher.
func (b *Base) Fetch(ctx context.Context, document string) ([]byte, error) {
	return b.opts.Fetcher.Fetch(ctx, document)
}

// Truncate shortens s to the configured preview length.
func (b *Base) Truncate(s string) string {
	r := []rune(s)
	if len(r) <= b.opts.MaxBytes {
		return s
	}
	return string(r[:b.opts.MaxBytes]) + "…"
}

// Progress reports progress if the request carries a sink.
func Progress(req mount.Request, format string, args ...any) {
	if req.Sink != nil {
		req.Sink.Progress(fmt.Sprintf(format, args...))
	}
}
