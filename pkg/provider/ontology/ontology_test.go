package ontology

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/tree"
)

const pizza = `
title = "Pizza"
base = "http://example.org/pizza#"

[classes.Food]
comment = "Anything edible"

[classes.Pizza]
parent = "Food"
instances = ["Margherita", "Hawaii"]
properties = ["diameter"]
relations = { hasTopping = "Topping" }

[classes.Topping]
parent = "Food"
instances = ["Cheese", "Ham", "Pineapple"]

[classes.Vegetarian]
parent = "Pizza"
properties = ["certified"]

[classes.Drink]
`

func writeDoc(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pizza.onto.toml")
	if err := os.WriteFile(p, []byte(pizza), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newEngine() (*mount.Engine, *provider.Registry) {
	logger := log.New(io.Discard)
	reg := provider.NewRegistry(provider.Options{Logger: logger}, Format)
	e := mount.NewEngine(reg, logger)
	e.Sink = mount.NopSink{}
	return e, reg
}

func labels(t *tree.Tree, id string) []string {
	var out []string
	for _, n := range t.ChildNodes(id) {
		out = append(out, n.Label)
	}
	return out
}

// resolve grafts a mount point and returns the grafted root.
func resolve(t *testing.T, e *mount.Engine, tr *tree.Tree, id string) string {
	t.Helper()
	if err := e.Resolve(context.Background(), tr, id); err != nil {
		t.Fatalf("Resolve(%s) error: %v", id, err)
	}
	return tr.Children(id)[0]
}

func TestParse(t *testing.T) {
	tx, err := parse("pizza.onto.toml", []byte(pizza))
	if err != nil {
		t.Fatal(err)
	}
	if tx.title != "Pizza" || !slices.Equal(tx.top, []string{"Drink", "Food"}) {
		t.Errorf("title %q top %v", tx.title, tx.top)
	}
	if got := tx.classes["Food"].subclasses; !slices.Equal(got, []string{"Pizza", "Topping"}) {
		t.Errorf("Food subclasses = %v", got)
	}
	if c, ok := tx.class("http://example.org/pizza#Topping"); !ok || c.name != "Topping" {
		t.Errorf("lookup by IRI failed: %v %v", c, ok)
	}
	if r := tx.classes["Pizza"].relations; len(r) != 1 || r[0] != (relation{name: "hasTopping", target: "Topping"}) {
		t.Errorf("Pizza relations = %+v", r)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no classes", `title = "x"`},
		{"bad toml", `[classes.A`},
		{"unknown parent", "[classes.A]\nparent = \"B\""},
		{"unknown relation target", "[classes.A]\nrelations = { r = \"Z\" }"},
		{"parent cycle", "[classes.A]\nparent = \"B\"\n[classes.B]\nparent = \"A\"\n[classes.C]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse("x", []byte(tt.src)); !errs.Is(err, errs.ErrCodeInvalidSource) {
				t.Errorf("parse() = %v, want INVALID_SOURCE", err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		shown map[string]bool
		want  NodeKind
	}{
		{nil, Plain},
		{map[string]bool{TargetProperties: true}, WithProperties},
		{map[string]bool{TargetProperties: true, TargetInstances: true}, WithInstances},
		{map[string]bool{TargetInstances: true, TargetRelation: true}, WithRelation},
		{map[string]bool{TargetRelation: false}, Plain},
	}
	for _, tt := range tests {
		if got := KindOf(tt.shown); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.shown, got, tt.want)
		}
	}
	for _, k := range []NodeKind{Plain, WithRelation, WithInstances, WithProperties} {
		if _, ok := decoration[k]; !ok {
			t.Errorf("no decoration for %v", k)
		}
	}
}

func TestFacets(t *testing.T) {
	tx, _ := parse("x", []byte(pizza))
	p := tx.classes["Pizza"]
	if got := targetParam(facets(p, nil)); got != "instances+properties+relation" {
		t.Errorf("all facets = %q", got)
	}
	if got := targetParam(facets(p, map[string]bool{TargetRelation: true})); got != "relation" {
		t.Errorf("restricted facets = %q", got)
	}
	if got := facets(tx.classes["Food"], nil); len(got) != 0 {
		t.Errorf("Food facets = %v", got)
	}
}

func TestBuildTree_LazyClasses(t *testing.T) {
	doc := writeDoc(t)
	e, reg := newEngine()
	defer reg.Close()

	tr, err := e.Open(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if tr.Root().Label != "Pizza" || !slices.Equal(labels(tr, "ontology"), []string{"Drink", "Food"}) {
		t.Fatalf("root %q children %v", tr.Root().Label, labels(tr, "ontology"))
	}
	if got := tr.MountPoints(); !slices.Equal(got, []string{"Food"}) {
		t.Fatalf("MountPoints() = %v, want [Food]", got)
	}
	if d, _ := tr.Node("Drink"); d.Meta["kind"] != "plain" || d.HasMount() {
		t.Errorf("Drink = %+v", d)
	}

	food := resolve(t, e, tr, "Food")
	if n, _ := tr.Node(food); n.Label != "Food" || n.Content != "Anything edible" {
		t.Errorf("grafted Food = %+v", n)
	}
	if got := labels(tr, food); !slices.Equal(got, []string{"Pizza", "Topping"}) {
		t.Errorf("Food children = %v", got)
	}

	pz, _ := tr.Node("Pizza")
	c, err := mount.ParseContinuation(pz.Mount.Continuation)
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("class") != "Pizza" || c.Get("target") != "instances+properties+relation" {
		t.Errorf("Pizza continuation = %q", pz.Mount.Continuation)
	}
	if pz.Meta["kind"] != "relation" || pz.Style != decoration[WithRelation] {
		t.Errorf("Pizza decoration = %v %+v", pz.Meta["kind"], pz.Style)
	}
	if pz.Meta["iri"] != "http://example.org/pizza#Pizza" {
		t.Errorf("Pizza iri = %v", pz.Meta["iri"])
	}

	sub := resolve(t, e, tr, "Pizza")
	if got := labels(tr, sub); !slices.Equal(got, []string{"instances (2)", "properties (1)", "relation (1)", "Vegetarian"}) {
		t.Errorf("Pizza children = %v", got)
	}
	if got := labels(tr, "Pizza/relation"); !slices.Equal(got, []string{"hasTopping → Topping"}) {
		t.Errorf("relations = %v", got)
	}
	if err := tr.Validate(); err != nil {
		t.Error(err)
	}
}

func TestBuildTree_RelationEdges(t *testing.T) {
	doc := writeDoc(t)
	e, reg := newEngine()
	defer reg.Close()

	tr, err := e.Build(context.Background(), doc+"?depth=3", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.MountPoints(); !slices.Equal(got, []string{"Vegetarian"}) {
		t.Errorf("MountPoints() = %v, want [Vegetarian]", got)
	}
	edges := tr.Edges()
	if len(edges) != 1 || edges[0].From != "Pizza/relation/0" || edges[0].To != "Topping" || edges[0].Label != "hasTopping" {
		t.Errorf("edges = %+v", edges)
	}
}

func TestBuildTree_TargetAndShow(t *testing.T) {
	doc := writeDoc(t)
	e, reg := newEngine()
	defer reg.Close()
	ctx := context.Background()

	tr, err := e.Build(ctx, doc+"?class=Pizza&target=properties", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(tr, "Pizza"); !slices.Equal(got, []string{"properties (1)", "Vegetarian"}) {
		t.Errorf("target=properties children = %v", got)
	}
	if tr.Root().Meta["kind"] != "properties" {
		t.Errorf("root kind = %v", tr.Root().Meta["kind"])
	}

	tr, err = e.Build(ctx, doc+"?class=Pizza&show=instances", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(tr, "Pizza"); !slices.Equal(got, []string{"instances (2)", "Vegetarian"}) {
		t.Errorf("show=instances children = %v", got)
	}
	if v, _ := tr.Node("Vegetarian"); v.HasMount() || v.Meta["kind"] != "plain" {
		t.Errorf("Vegetarian shows nothing under show=instances: %+v", v)
	}

	tr, err = e.Build(ctx, doc, map[string]string{"class": "http://example.org/pizza#Topping"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.RootID() != "Topping" || !slices.Equal(labels(tr, "Topping/instances"), []string{"Cheese", "Ham", "Pineapple"}) {
		t.Errorf("Topping by IRI: root %s instances %v", tr.RootID(), labels(tr, "Topping/instances"))
	}

	if _, err := e.Build(ctx, doc+"?class=Soup", nil); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("unknown class = %v, want NOT_FOUND", err)
	}
	if _, err := e.Build(ctx, doc+"?depth=0", nil); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("depth=0 = %v, want INVALID_INPUT", err)
	}
}
