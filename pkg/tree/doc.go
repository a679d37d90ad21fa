// Package tree provides the mutable node/edge model that every graftwood
// provider builds and every view renders.
//
// # Overview
//
// A [Tree] is an ordered tree of [Node] values plus a flat list of extra
// [Edge] relationships that do not fit the hierarchy (cross references,
// foreign keys, non-spanning graph edges). Child order is display order and
// is never changed after attachment.
//
// Nodes live in an arena indexed by ID. Parent links and child lists are IDs,
// not pointers, so the only way to move nodes between trees is an explicit
// copy with [Tree.Graft].
//
// # Mount Points
//
// Backends are often too large to load eagerly. A provider can leave a node
// as a placeholder by attaching a [MountPoint] with [Tree.SetMountPoint]: an
// opaque continuation string that, handed back to a provider, yields the
// missing subtree. Eager mount points are queued and resolved before the tree
// is returned; lazy ones stay until the user expands them. The resolution
// machinery lives in package mount.
//
// # Basic Usage
//
//	t := tree.New("file:///data/outline.txt", "root", "outline")
//	a, _ := t.CreateNode("root", "a")
//	a.Label = "Chapter A"
//	b, _ := t.CreateNode("root", "b")
//	_ = t.SetMountPoint(b.ID, "appendix.txt", false)
//
// Children that must be regrouped first (see package balance) are created
// detached with an empty parent ID and attached later with
// [Tree.AddChildren].
//
// # Concurrency
//
// Tree is not safe for concurrent use. Callers that share a tree between
// goroutines (the HTTP server, the terminal UI) serialize access.
package tree
