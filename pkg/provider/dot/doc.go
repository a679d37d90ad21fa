// Package dot provides a tree provider for Graphviz documents (".dot",
// ".gv"), parsed with go-graphviz.
//
// A graph is shown as its depth-first spanning tree: the roots are the
// nodes without incoming edges (plus one node per otherwise unreachable
// cycle), children follow edge order, and every edge that reaches an
// already visited node is kept as an extra edge of the tree. Node IDs are
// the DOT node names; label, tooltip, fillcolor, fontcolor and image
// attributes carry over to the tree node.
//
// "graph.dot?node=b" roots the tree at node b. With a "depth" parameter
// (or the provider's Depth option) nodes at that depth become lazy mounts
// of the form "?node=<name>&depth=<n>".
package dot
