// Package mount resolves mount points: it turns continuation tokens back
// into provider calls and grafts the resulting subtrees into a live tree.
//
// # Lifecycle
//
// A [Provider] builds a tree and may leave placeholder nodes carrying a
// [tree.MountPoint]. Eager mount points are queued on the tree; [Engine.Build]
// drains that queue before returning, so eager parts are always materialized
// when a caller first sees the tree. Lazy mount points stay as placeholders
// until [Engine.Resolve] is called for them, typically when a user expands
// the node.
//
// Each mount point moves from Unresolved to Resolved (the subtree is grafted
// and the mount point cleared) or to Failed (the placeholder is left intact
// and a diagnostic reported). A failed mount point can be retried.
//
// # Continuations
//
// A continuation is "<document>?key=value&...". The document may be an
// absolute URL, a path relative to the document the token appears in, or
// empty, meaning the same document with different parameters:
//
//	?table=people              same database, one table
//	chapter2.txt?path=3/1      sibling file, one subtree
//	taxonomy.onto.toml?class=Animal&target=instances+properties
//
// [Canonical] normalizes tokens for comparison; the engine uses it to refuse
// mounts that would bring a document back into itself.
//
// # Usage
//
//	engine := mount.NewEngine(registry, logger)
//	t, err := engine.Open(ctx, "docs/outline.txt", nil)
//	...
//	err = engine.Resolve(ctx, t, nodeID) // user expanded nodeID
package mount
