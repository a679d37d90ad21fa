package tree

import (
	"fmt"
	"maps"
)

// Graft copies the attached part of sub into this tree and makes its root the
// sole child of the placeholder, clearing the placeholder's mount point.
//
// Grafting is an explicit "detach subtree, reattach under arena-local id"
// step: every node is copied (two grafts of the same sub never share nodes),
// IDs that collide with IDs already in this tree are re-issued with
// [Tree.NewID], extra edges are remapped and appended to this tree's edge
// list, lazy mount points inside sub are carried over, and queued eager
// mounts of sub are re-queued here. The copied sub-root records sub's source
// under [MetaOrigin].
//
// The returned map translates sub's IDs to the IDs used in this tree.
// Nothing changes if the placeholder does not exist or already has children.
func (t *Tree) Graft(placeholderID string, sub *Tree) (map[string]string, error) {
	if _, ok := t.nodes[placeholderID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, placeholderID)
	}
	if len(t.children[placeholderID]) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMountHasChildren, placeholderID)
	}

	idMap := t.importNodes(sub)

	for _, e := range sub.edges {
		from, okFrom := idMap[e.From]
		to, okTo := idMap[e.To]
		if !okFrom || !okTo {
			continue
		}
		e.From, e.To = from, to
		e.Meta = maps.Clone(e.Meta)
		t.edges = append(t.edges, e)
	}
	for _, id := range sub.pending {
		if mapped, ok := idMap[id]; ok {
			t.pending = append(t.pending, mapped)
		}
	}

	newRoot := idMap[sub.root]
	if sub.source != "" {
		t.nodes[newRoot].Meta[MetaOrigin] = sub.source
	}
	if err := t.ReplaceWithChildren(placeholderID, newRoot); err != nil {
		return nil, err
	}
	return idMap, nil
}

// importNodes copies the nodes reachable from sub's root, preserving child
// order, and returns the ID translation. The copied root is left detached.
func (t *Tree) importNodes(sub *Tree) map[string]string {
	idMap := make(map[string]string)
	var visit func(id string)
	visit = func(id string) {
		n := sub.nodes[id].clone()
		newID := id
		if _, taken := t.nodes[newID]; taken {
			newID = t.NewID(id)
		}
		n.ID = newID
		t.nodes[newID] = n
		idMap[id] = newID
		for _, c := range sub.children[id] {
			visit(c)
			t.children[newID] = append(t.children[newID], idMap[c])
			t.parent[idMap[c]] = newID
		}
	}
	visit(sub.root)
	return idMap
}
