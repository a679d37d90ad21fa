package ontology

import (
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

// file is the TOML layout of a taxonomy:
//
//	title = "Pizza"
//	base = "http://example.org/pizza#"
//
//	[classes.Pizza]
//	parent = "Food"
//	instances = ["Margherita"]
//	properties = ["hasBase"]
//	relations = { hasTopping = "Topping" }
type file struct {
	Title   string              `toml:"title"`
	Base    string              `toml:"base"`
	Classes map[string]classDef `toml:"classes"`
}

type classDef struct {
	Label      string            `toml:"label"`
	Comment    string            `toml:"comment"`
	Parent     string            `toml:"parent"`
	Instances  []string          `toml:"instances"`
	Properties []string          `toml:"properties"`
	Relations  map[string]string `toml:"relations"`
}

// relation is one named link from a class to another class.
type relation struct {
	name   string
	target string
}

type class struct {
	name       string
	label      string
	comment    string
	parent     string
	subclasses []string
	instances  []string
	properties []string
	relations  []relation
}

// taxonomy is a parsed, validated ontology.
type taxonomy struct {
	title   string
	base    string
	classes map[string]*class
	top     []string
}

// iri returns the full identifier of a class.
func (t *taxonomy) iri(name string) string { return t.base + name }

// class resolves a class by name or full IRI.
func (t *taxonomy) class(ref string) (*class, bool) {
	if c, ok := t.classes[ref]; ok {
		return c, true
	}
	if t.base != "" {
		if name, ok := strings.CutPrefix(ref, t.base); ok {
			c, ok := t.classes[name]
			return c, ok
		}
	}
	return nil, false
}

// parse decodes a taxonomy. Parents must name declared classes and the
// subclass relation must be acyclic. Subclasses and top classes are sorted
// by name.
func parse(title string, data []byte) (*taxonomy, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "decode taxonomy")
	}
	if len(f.Classes) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidSource, "taxonomy declares no classes")
	}
	if f.Title != "" {
		title = f.Title
	}
	t := &taxonomy{title: title, base: f.Base, classes: make(map[string]*class, len(f.Classes))}

	for name, def := range f.Classes {
		c := &class{
			name:       name,
			label:      def.Label,
			comment:    strings.TrimSpace(def.Comment),
			parent:     def.Parent,
			instances:  def.Instances,
			properties: def.Properties,
		}
		if c.label == "" {
			c.label = name
		}
		for _, rel := range sortedKeys(def.Relations) {
			c.relations = append(c.relations, relation{name: rel, target: def.Relations[rel]})
		}
		t.classes[name] = c
	}

	for _, name := range sortedKeys(t.classes) {
		c := t.classes[name]
		for _, r := range c.relations {
			if _, ok := t.classes[r.target]; !ok {
				return nil, errs.New(errs.ErrCodeInvalidSource, "class %s: relation %s targets unknown class %q", name, r.name, r.target)
			}
		}
		if c.parent == "" {
			t.top = append(t.top, name)
			continue
		}
		p, ok := t.classes[c.parent]
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidSource, "class %s: unknown parent %q", name, c.parent)
		}
		p.subclasses = append(p.subclasses, name)
	}

	// Every class reachable from a top class; the rest sit on a parent cycle.
	reached := 0
	var walk func(string)
	walk = func(name string) {
		reached++
		for _, s := range t.classes[name].subclasses {
			walk(s)
		}
	}
	for _, name := range t.top {
		walk(name)
	}
	if reached != len(t.classes) {
		var stuck []string
		for name := range t.classes {
			if !t.reachable(name) {
				stuck = append(stuck, name)
			}
		}
		slices.Sort(stuck)
		return nil, errs.New(errs.ErrCodeInvalidSource, "parent cycle among classes %s", strings.Join(stuck, ", "))
	}
	return t, nil
}

// reachable reports whether following parents from name ends at a top
// class.
func (t *taxonomy) reachable(name string) bool {
	seen := make(map[string]bool)
	for name != "" {
		if seen[name] {
			return false
		}
		seen[name] = true
		name = t.classes[name].parent
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
