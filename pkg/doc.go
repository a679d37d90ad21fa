// Package pkg provides the core libraries for graftwood, a lazy tree viewer
// for structured backends.
//
// # Overview
//
// Graftwood turns documents and databases (outlines, XML, TOML ontologies,
// Graphviz files, SQL schemas, MongoDB collections) into one ordered tree
// model. Parts of a backend that are too large to load up front are left as
// mount points: placeholder nodes carrying a continuation token that a
// provider can later turn back into the missing subtree.
//
// # Architecture
//
// The typical data flow:
//
//	source string ("schema.sql?table=people", "notes.txt", ...)
//	         ↓
//	    [provider] registry (pick a backend by extension or scheme)
//	         ↓
//	    [mount] engine (build, resolve eager mount points, graft)
//	         ↓
//	    [tree] model (+ [tree/balance] for wide levels)
//	         ↓
//	    [render] outline, JSON, DOT or SVG
//
// # Quick Start
//
//	reg := builtin.NewRegistry(provider.Options{})
//	defer reg.Close()
//
//	e := mount.NewEngine(reg, nil)
//	t, _ := e.Open(ctx, "notes.txt", nil)
//
//	// Expand a lazy node, then everything two levels further.
//	_ = e.Resolve(ctx, t, "1")
//	_, _ = e.ExpandAll(ctx, t, 2)
//
//	_ = render.Outline(os.Stdout, t, render.WithIDs())
//
// # Main Packages
//
// [tree] - Arena-backed nodes, extra edges, mount points and grafting.
//
// [tree/balance] - Hierarchizer that splits over-wide sibling runs into
// labelled group nodes.
//
// [mount] - Continuation tokens and the engine that resolves them.
//
// [session] - Per-backend connection caching and the recursion guard.
//
// [query] - ${name} macro expansion and WHERE/AND narrowing of SQL text.
//
// [provider] - The provider contract, options and registry; one subpackage
// per backend.
//
// [render] - Outline, JSON, DOT and SVG views of a tree.
//
// [source] - Fetching local and remote documents through a [cache].
//
// [observability] - Build and mount hooks, with a Prometheus adapter.
//
// [errors] - Coded errors shared by every package.
//
// [tree]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/tree
// [tree/balance]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/tree/balance
// [mount]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/mount
// [session]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/session
// [query]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/query
// [provider]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/provider
// [render]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/render
// [source]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/source
// [cache]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/graftwood/pkg/errors
package pkg
