package balance_test

import (
	"fmt"

	"github.com/matzehuels/graftwood/pkg/tree"
	"github.com/matzehuels/graftwood/pkg/tree/balance"
)

func ExampleBalancer_Attach() {
	t := tree.New("", "table", "people")
	var rows []string
	for _, name := range []string{"Ada", "Bob", "Cy", "Dee", "Eve", "Fay", "Gus"} {
		n, _ := t.CreateNode("", name)
		rows = append(rows, n.ID)
	}

	b := balance.MustNew(balance.Config{MaxChildrenPerLevel: []int{3, 2}, LabelTruncateCount: 2}, tree.Style{})
	if err := b.Attach(t, "table", rows); err != nil {
		fmt.Println(err)
		return
	}

	t.Walk(func(n *tree.Node, depth int) bool {
		fmt.Printf("%*s%s\n", depth*2, "", n.Label)
		return true
	})
	// Output:
	// people
	//   Ada, Bob …, Dee, Eve …
	//     Ada, Bob …
	//       Ada
	//       Bob
	//       Cy
	//     Dee, Eve …
	//       Dee
	//       Eve
	//       Fay
	//   Gus
	//     Gus
	//       Gus
}
