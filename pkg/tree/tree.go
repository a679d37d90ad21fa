package tree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Tree.CreateNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Tree.CreateNode] when a node with the
	// same ID already exists in the tree. Node IDs must be unique per tree.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an operation references a node ID that
	// is not present in the tree.
	ErrUnknownNode = errors.New("unknown node")

	// ErrAlreadyAttached is returned by [Tree.AddChildren] when a child
	// already has a parent in this tree. Moving subtrees between trees goes
	// through [Tree.Graft], never through AddChildren.
	ErrAlreadyAttached = errors.New("node already attached to a parent")

	// ErrCycle is returned by [Tree.AddChildren] when the child is the parent
	// itself or one of its ancestors.
	ErrCycle = errors.New("attaching node would create a cycle")

	// ErrMountHasChildren is returned by [Tree.SetMountPoint] and
	// [Tree.Graft] when the placeholder already has children. Children of a
	// mount point arrive only by grafting.
	ErrMountHasChildren = errors.New("mount point node must not have children")

	// ErrEmptyContinuation is returned by [Tree.SetMountPoint] when the
	// continuation string is empty.
	ErrEmptyContinuation = errors.New("mount continuation must not be empty")

	// ErrBrokenLink is returned by [Tree.Validate] when a parent/child link
	// is inconsistent. This indicates a bug in a provider or in this package.
	ErrBrokenLink = errors.New("inconsistent parent/child link")
)

// MetaOrigin is the metadata key under which a grafted sub-root records the
// source of the document it was built from.
const MetaOrigin = "origin"

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Providers use it to keep backend identifiers (table names, IRIs, XPath
// locations) next to the display data.
type Metadata map[string]any

// Kind distinguishes provider-built nodes from synthetic nodes.
type Kind int

const (
	// KindRegular is a node built by a provider from backend data.
	KindRegular Kind = iota
	// KindGroup is a synthetic node introduced by the hierarchizer purely to
	// bound fan-out.
	KindGroup
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "regular"
}

// Style is the opaque presentation payload carried by nodes and edges. The
// core never interprets it.
type Style struct {
	FillColor string `json:"fill_color,omitempty" toml:"fill_color"`
	FontColor string `json:"font_color,omitempty" toml:"font_color"`
	Image     string `json:"image,omitempty" toml:"image"`
	EdgeStyle string `json:"edge_style,omitempty" toml:"edge_style"`
}

// IsZero reports whether no style attribute is set.
func (s Style) IsZero() bool { return s == Style{} }

// Node is one vertex of a [Tree]. Parent and child links are kept by the
// tree's id index, not by the node itself, so a Node value never owns or
// points at another Node.
type Node struct {
	ID      string
	Label   string
	Content string
	Kind    Kind
	Style   Style
	Meta    Metadata

	// Mount is non-nil while the node is a placeholder for a subtree that has
	// not been grafted yet (or whose resolution failed).
	Mount *MountPoint
}

// IsGroup reports whether the node was synthesized by the hierarchizer.
func (n *Node) IsGroup() bool { return n.Kind == KindGroup }

// HasMount reports whether the node still carries a mount point.
func (n *Node) HasMount() bool { return n.Mount != nil }

func (n *Node) clone() *Node {
	c := *n
	c.Meta = maps.Clone(n.Meta)
	if c.Meta == nil {
		c.Meta = Metadata{}
	}
	if n.Mount != nil {
		m := *n.Mount
		c.Mount = &m
	}
	return &c
}

// Edge is a non-hierarchical relationship between two nodes of the same
// tree. Edges are kept in a flat, ordered list next to the tree.
type Edge struct {
	From  string
	To    string
	Label string
	Style Style
	Meta  Metadata
}

// Tree is a mutable, ordered tree of [Node] values plus a list of extra
// [Edge] relationships.
//
// Nodes live in an arena indexed by ID. Parent links and child lists are
// stored as IDs, so grafting a subtree from another Tree always copies its
// nodes (see [Tree.Graft]) and never shares them.
//
// The zero value is not usable - use [New]. Tree is not safe for concurrent
// use without external synchronization.
type Tree struct {
	source   string
	root     string
	nodes    map[string]*Node
	children map[string][]string // nodeID -> ordered child IDs
	parent   map[string]string   // nodeID -> parent ID ("" when detached)
	edges    []Edge
	pending  []string // node IDs with eager mounts, in queue order
	seq      int
}

// New creates a tree whose root node has the given ID and label. The source
// identifies the document the tree was built from and is used by the mount
// engine for recursion checks. An empty rootID defaults to "root".
func New(source, rootID, label string) *Tree {
	if rootID == "" {
		rootID = "root"
	}
	if label == "" {
		label = rootID
	}
	t := &Tree{
		source:   source,
		root:     rootID,
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parent:   make(map[string]string),
	}
	t.nodes[rootID] = &Node{ID: rootID, Label: label, Meta: Metadata{}}
	return t
}

// Source returns the originating source of the tree's document.
func (t *Tree) Source() string { return t.source }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.nodes[t.root] }

// RootID returns the ID of the root node.
func (t *Tree) RootID() string { return t.root }

// NodeCount returns the number of nodes in the arena, including detached
// nodes that have not been attached yet.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Edges returns the extra (non-tree) edges in insertion order.
func (t *Tree) Edges() []Edge { return t.edges }

// EdgeCount returns the number of extra edges.
func (t *Tree) EdgeCount() int { return len(t.edges) }

// Node looks up a node by ID.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// FindNode is an alias for [Tree.Node] used by edge resolution and
// recursion checks.
func (t *Tree) FindNode(id string) (*Node, bool) { return t.Node(id) }

// Children returns the ordered child IDs of a node. The returned slice must
// not be modified.
func (t *Tree) Children(id string) []string { return t.children[id] }

// ChildNodes returns the ordered children of a node.
func (t *Tree) ChildNodes(id string) []*Node {
	ids := t.children[id]
	out := make([]*Node, len(ids))
	for i, c := range ids {
		out[i] = t.nodes[c]
	}
	return out
}

// Parent returns the parent ID of a node and whether it has one. The root
// and detached nodes have no parent.
func (t *Tree) Parent(id string) (string, bool) {
	p, ok := t.parent[id]
	return p, ok && p != ""
}

// Ancestors returns the IDs from the node's parent up to the root.
func (t *Tree) Ancestors(id string) []string {
	var out []string
	for p, ok := t.Parent(id); ok; p, ok = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Depth returns the number of ancestors of a node (0 for the root).
func (t *Tree) Depth(id string) int { return len(t.Ancestors(id)) }

// IsAttached reports whether the node is reachable from the root.
func (t *Tree) IsAttached(id string) bool {
	if id == t.root {
		return true
	}
	anc := t.Ancestors(id)
	return len(anc) > 0 && anc[len(anc)-1] == t.root
}

// NewID returns an ID with the given prefix that is not yet used in this
// tree. It does not reserve the ID; create the node before calling NewID
// again.
func (t *Tree) NewID(prefix string) string {
	if prefix == "" {
		prefix = "n"
	}
	for {
		t.seq++
		id := fmt.Sprintf("%s#%d", prefix, t.seq)
		if _, exists := t.nodes[id]; !exists {
			return id
		}
	}
}

// CreateNode adds a node with the given ID to the arena. When parentID is
// non-empty the node is appended to that parent's children; otherwise it is
// created detached and can be attached later with [Tree.AddChildren] (the
// usual path for children that are hierarchized first).
//
// Returns ErrInvalidNodeID for an empty ID, ErrDuplicateNodeID if the ID is
// already in use, or ErrUnknownNode if the parent does not exist. The label
// defaults to the ID.
func (t *Tree) CreateNode(parentID, id string) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidNodeID
	}
	if _, exists := t.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeID, id)
	}
	if parentID != "" {
		if _, ok := t.nodes[parentID]; !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrUnknownNode, parentID)
		}
	}
	n := &Node{ID: id, Label: id, Meta: Metadata{}}
	t.nodes[id] = n
	if parentID != "" {
		t.children[parentID] = append(t.children[parentID], id)
		t.parent[id] = parentID
	}
	return n, nil
}

// AddEdge records an extra relationship between two existing nodes.
// Returns ErrUnknownNode if either endpoint does not exist.
func (t *Tree) AddEdge(e Edge) error {
	if _, ok := t.nodes[e.From]; !ok {
		return fmt.Errorf("%w: edge source %s", ErrUnknownNode, e.From)
	}
	if _, ok := t.nodes[e.To]; !ok {
		return fmt.Errorf("%w: edge target %s", ErrUnknownNode, e.To)
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	t.edges = append(t.edges, e)
	return nil
}

// SetMountPoint turns a childless node into a placeholder for a subtree
// described by continuation. Eager mount points are queued and resolved by
// the mount engine before the tree is handed to a caller; lazy ones wait for
// on-demand resolution.
func (t *Tree) SetMountPoint(id, continuation string, eager bool) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if continuation == "" {
		return ErrEmptyContinuation
	}
	if len(t.children[id]) > 0 {
		return fmt.Errorf("%w: %s", ErrMountHasChildren, id)
	}
	n.Mount = &MountPoint{Continuation: continuation, Eager: eager}
	if eager {
		t.pending = append(t.pending, id)
	}
	return nil
}

// AddChildren appends children to a parent in the given order and sets their
// parent links. The whole call is validated before anything changes: it
// fails with ErrUnknownNode, ErrAlreadyAttached (a child already has a parent
// in this tree, or appears twice in the call) or ErrCycle.
func (t *Tree) AddChildren(parentID string, childIDs ...string) error {
	if _, ok := t.nodes[parentID]; !ok {
		return fmt.Errorf("%w: parent %s", ErrUnknownNode, parentID)
	}
	lineage := make(map[string]bool)
	lineage[parentID] = true
	for _, a := range t.Ancestors(parentID) {
		lineage[a] = true
	}
	seen := make(map[string]bool, len(childIDs))
	for _, c := range childIDs {
		if _, ok := t.nodes[c]; !ok {
			return fmt.Errorf("%w: child %s", ErrUnknownNode, c)
		}
		if lineage[c] || c == t.root {
			return fmt.Errorf("%w: %s under %s", ErrCycle, c, parentID)
		}
		if p, ok := t.Parent(c); ok || seen[c] {
			return fmt.Errorf("%w: %s (parent %s)", ErrAlreadyAttached, c, p)
		}
		seen[c] = true
	}
	for _, c := range childIDs {
		t.children[parentID] = append(t.children[parentID], c)
		t.parent[c] = parentID
	}
	return nil
}

// Detach removes a node (with its subtree) from its parent's children. The
// nodes stay in the arena and can be attached elsewhere in the same tree.
func (t *Tree) Detach(id string) error {
	p, ok := t.Parent(id)
	if !ok {
		if _, exists := t.nodes[id]; !exists {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		return nil
	}
	t.children[p] = slices.DeleteFunc(t.children[p], func(c string) bool { return c == id })
	delete(t.parent, id)
	return nil
}

// ReplaceWithChildren completes a graft: it clears the placeholder's mount
// point and attaches the given children below it. The placeholder itself is
// kept, since it already carries the label and decoration shown before the
// mount was resolved. Nothing changes if attaching fails.
func (t *Tree) ReplaceWithChildren(placeholderID string, childIDs ...string) error {
	n, ok := t.nodes[placeholderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, placeholderID)
	}
	if err := t.AddChildren(placeholderID, childIDs...); err != nil {
		return err
	}
	n.Mount = nil
	return nil
}

// PendingMounts returns the IDs of nodes with queued eager mounts.
func (t *Tree) PendingMounts() []string { return slices.Clone(t.pending) }

// TakePendingMounts returns the queued eager mounts in queue order and
// clears the queue.
func (t *Tree) TakePendingMounts() []string {
	p := t.pending
	t.pending = nil
	return p
}

// Validate checks the structural invariants of the tree: every parent link
// points to a node whose child list contains the child exactly once, every
// listed child links back to its parent, and mount points have no children.
func (t *Tree) Validate() error {
	if _, ok := t.nodes[t.root]; !ok {
		return fmt.Errorf("%w: missing root %s", ErrBrokenLink, t.root)
	}
	for p, kids := range t.children {
		for _, c := range kids {
			if t.parent[c] != p {
				return fmt.Errorf("%w: %s listed under %s but links to %q", ErrBrokenLink, c, p, t.parent[c])
			}
		}
	}
	for c, p := range t.parent {
		if p == "" {
			continue
		}
		count := 0
		for _, k := range t.children[p] {
			if k == c {
				count++
			}
		}
		if count != 1 {
			return fmt.Errorf("%w: %s appears %d times under %s", ErrBrokenLink, c, count, p)
		}
	}
	for id, n := range t.nodes {
		if n.Mount != nil && len(t.children[id]) > 0 {
			return fmt.Errorf("%w: %s", ErrMountHasChildren, id)
		}
	}
	return nil
}
