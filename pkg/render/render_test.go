package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/graftwood/pkg/tree"
)

// sampleTree: a materialized branch, a lazy mount, a failed mount, a group
// and one extra edge.
func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("doc.txt", "root", "Root")
	must := func(n *tree.Node, err error) *tree.Node {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return n
	}
	must(tr.CreateNode("root", "a")).Label = "A"
	d := must(tr.CreateNode("a", "d"))
	d.Label = "D"
	d.Content = "line one\nline two"
	d.Style = tree.Style{FillColor: "#ffeeaa"}
	must(tr.CreateNode("root", "b")).Label = "B"
	if err := tr.SetMountPoint("b", "doc.txt?path=1", false); err != nil {
		t.Fatal(err)
	}
	c := must(tr.CreateNode("root", "c"))
	c.Label = "C"
	if err := tr.SetMountPoint("c", "other.txt", false); err != nil {
		t.Fatal(err)
	}
	c.Mount.State = tree.MountFailed
	c.Mount.Err = errors.New("no such file")
	g := must(tr.CreateNode("root", "g"))
	g.Label = "E …"
	g.Kind = tree.KindGroup
	must(tr.CreateNode("g", "e")).Label = "E"
	if err := tr.AddEdge(tree.Edge{From: "d", To: "e", Label: "uses"}); err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestOutline(t *testing.T) {
	var buf bytes.Buffer
	if err := Outline(&buf, sampleTree(t)); err != nil {
		t.Fatal(err)
	}
	want := `Root
  A
    D
  ▸ B
  ✗ C: no such file
  (E …)
    E
`
	if buf.String() != want {
		t.Errorf("Outline() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestOutline_Options(t *testing.T) {
	var buf bytes.Buffer
	if err := Outline(&buf, sampleTree(t), WithIDs(), WithContent(), WithIndent("\t")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Root [root]\n", "\t\tD [d]\n", "\t\t\t| line one\n", "\t\t\t| line two\n", "\t▸ B [b]\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Outline() missing %q in\n%s", want, out)
		}
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON(sampleTree(t), WithJSONMeta())
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if out.Source != "doc.txt" || out.Root.ID != "root" || len(out.Root.Children) != 4 {
		t.Fatalf("output = %+v", out)
	}
	b := out.Root.Children[1]
	if b.Mount == nil || b.Mount.Continuation != "doc.txt?path=1" || b.Mount.State != "unresolved" {
		t.Errorf("lazy mount = %+v", b.Mount)
	}
	c := out.Root.Children[2]
	if c.Mount == nil || c.Mount.State != "failed" || c.Mount.Error != "no such file" {
		t.Errorf("failed mount = %+v", c.Mount)
	}
	if g := out.Root.Children[3]; g.Kind != "group" {
		t.Errorf("group kind = %q", g.Kind)
	}
	d := out.Root.Children[0].Children[0]
	if d.Style == nil || d.Style.FillColor != "#ffeeaa" {
		t.Errorf("style = %+v", d.Style)
	}
	if len(out.Edges) != 1 || out.Edges[0].Label != "uses" {
		t.Errorf("edges = %+v", out.Edges)
	}
}

func TestJSON_SkipsDetachedEdges(t *testing.T) {
	tr := sampleTree(t)
	if _, err := tr.CreateNode("", "loose"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddEdge(tree.Edge{From: "a", To: "loose"}); err != nil {
		t.Fatal(err)
	}
	data, err := JSON(tr, WithJSONIndent())
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("loose")) {
		t.Errorf("detached node rendered:\n%s", data)
	}
	if !bytes.Contains(data, []byte("\n  \"source\"")) {
		t.Error("WithJSONIndent should indent")
	}
}

func TestDOT(t *testing.T) {
	dot := DOT(sampleTree(t), DOTOptions{Horizontal: true})
	for _, want := range []string{
		"rankdir=LR;",
		`"root" -> "a";`,
		`"a" -> "d";`,
		`"b" [label="▸ B", peripheries=2, style="rounded,filled"];`,
		`"c" [label="✗ C: no such file", color=red, style="rounded,filled"];`,
		`"g" [label="(E …)", style="rounded,filled,dashed", fillcolor="lightgrey"];`,
		`fillcolor="#ffeeaa"`,
		`"d" -> "e" [constraint=false, color=grey40, label="uses", style="dotted"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT() missing %s in\n%s", want, dot)
		}
	}
}

func TestSVG(t *testing.T) {
	svg, err := SVG(context.Background(), sampleTree(t), DOTOptions{})
	if err != nil {
		t.Fatalf("SVG() error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Errorf("SVG() output lacks a normalized svg header: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 62.00 116.00" width="62" height="116"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() =\n%s\nwant\n%s", got, want)
	}
	if out := normalizeViewBox([]byte("<svg/>")); string(out) != "<svg/>" {
		t.Errorf("svg without viewBox changed: %s", out)
	}
}
