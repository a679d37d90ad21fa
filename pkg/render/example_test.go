package render_test

import (
	"os"

	"github.com/matzehuels/graftwood/pkg/render"
	"github.com/matzehuels/graftwood/pkg/tree"
)

func ExampleOutline() {
	t := tree.New("zoo.txt", "root", "zoo")
	mammals, _ := t.CreateNode("root", "0")
	mammals.Label = "Mammals"
	dog, _ := t.CreateNode("0", "0/0")
	dog.Label = "Dog"
	birds, _ := t.CreateNode("root", "1")
	birds.Label = "Birds"
	_ = t.SetMountPoint("1", "?path=1", false)

	_ = render.Outline(os.Stdout, t)
	// Output:
	// zoo
	//   Mammals
	//     Dog
	//   ▸ Birds
}
