package tree

// Walk visits the attached nodes in display order (pre-order, children in
// sequence), starting at the root. Returning false from fn skips the node's
// children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	t.WalkFrom(t.root, fn)
}

// WalkFrom is like [Tree.Walk] but starts at the given node.
func (t *Tree) WalkFrom(id string, fn func(n *Node, depth int) bool) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := t.nodes[id]
		if !ok || !fn(n, depth) {
			return
		}
		for _, c := range t.children[id] {
			visit(c, depth+1)
		}
	}
	visit(id, 0)
}

// Leaves returns the IDs of the leaves below id, in display order. A node
// without children is its own single leaf.
func (t *Tree) Leaves(id string) []string {
	var out []string
	t.WalkFrom(id, func(n *Node, _ int) bool {
		if len(t.children[n.ID]) == 0 {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// MountPoints returns the IDs of attached nodes that still carry a mount
// point, in display order.
func (t *Tree) MountPoints() []string {
	var out []string
	t.Walk(func(n *Node, _ int) bool {
		if n.Mount != nil {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// MaxFanOut returns the largest number of children of any attached node.
func (t *Tree) MaxFanOut() int {
	maxN := 0
	t.Walk(func(n *Node, _ int) bool {
		maxN = max(maxN, len(t.children[n.ID]))
		return true
	})
	return maxN
}
