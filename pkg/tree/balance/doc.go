// Package balance keeps the fan-out of a tree bounded by regrouping long
// child lists into synthetic group nodes.
//
// # Overview
//
// Providers often meet branch points with thousands of children: rows of a
// table, individuals of an ontology class, documents of a collection. Shown
// flat, such a node is unusable. [Balancer.Balance] buckets the children
// bottom-up: level 0 cuts the list into runs of MaxChildrenPerLevel[0] and
// wraps each run in a group node, level 1 does the same to the group nodes
// with MaxChildrenPerLevel[1], and so on (the last configured limit applies
// to every higher level) until the list fits.
//
// With limits [3, 2] and seven children A..G:
//
//	level 0: [A B C] [D E F] [G]       -> 3 groups, more than 2
//	level 1: [[A B C] [D E F]] [[G]]   -> 2 groups, fits
//
// Group labels are built from the first LabelTruncateCount child labels,
// for example "A, B, C …". All group nodes share the style passed to [New].
//
// # Usage
//
//	b, err := balance.New(balance.Config{MaxChildrenPerLevel: []int{50, 20}, LabelTruncateCount: 3}, groupStyle)
//	...
//	rows := make([]string, 0, n)
//	for ... { n, _ := t.CreateNode("", id); rows = append(rows, n.ID) }
//	err = b.Attach(t, tableNodeID, rows)
package balance
