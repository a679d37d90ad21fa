package text

import (
	"strings"
	"testing"

	errs "github.com/matzehuels/graftwood/pkg/errors"
)

func TestParse(t *testing.T) {
	src := `# zoo
Mammals
  Dog
  > good boy
  >
  > loyal
  Cat
	Siamese
Birds
@mount birds.txt
Reptiles
  @mount! ?path=0
`
	o, err := parse("zoo.txt", []byte(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if o.title != "zoo.txt" || len(o.items) != 3 {
		t.Fatalf("title %q, %d top-level items", o.title, len(o.items))
	}

	mammals := o.items[0]
	if len(mammals.children) != 2 {
		t.Fatalf("Mammals has %d children, want 2", len(mammals.children))
	}
	dog := mammals.children[0]
	if dog.content != "good boy\n\nloyal" {
		t.Errorf("Dog content = %q", dog.content)
	}
	if cat := mammals.children[1]; len(cat.children) != 1 || cat.children[0].label != "Siamese" {
		t.Errorf("tab indentation should nest Siamese under Cat: %+v", cat)
	}
	if b := o.items[1]; b.mount != "birds.txt" || b.eager {
		t.Errorf("Birds mount = %q eager=%v", b.mount, b.eager)
	}
	if r := o.items[2]; r.mount != "?path=0" || !r.eager {
		t.Errorf("Reptiles mount = %q eager=%v", r.mount, r.eager)
	}
	if got := o.find([]int{0, 1, 0}); got == nil || got.label != "Siamese" {
		t.Errorf("find(0/1/0) = %+v", got)
	}
	if o.find([]int{0, 5}) != nil || o.find([]int{3}) != nil {
		t.Error("find should return nil for out-of-range paths")
	}
}

func TestParse_Dedent(t *testing.T) {
	o, err := parse("x", []byte("a\n    b\n  c\nd\n"))
	if err != nil {
		t.Fatal(err)
	}
	// c is less indented than b but more than a, so it is a sibling of b.
	if len(o.items) != 2 || len(o.items[0].children) != 2 {
		t.Fatalf("unexpected shape: %d top-level, %d under a", len(o.items), len(o.items[0].children))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"mount before item", "@mount x.txt\na", "before the first item"},
		{"content before item", "> text\na", "content before"},
		{"mount without target", "a\n@mount", "needs a continuation"},
		{"unknown directive", "a\n@mounted x", "unknown directive"},
		{"double mount", "a\n@mount x\n@mount y", "already mounts"},
		{"children under mount", "a\n@mount x\n  b", "cannot have children"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse("x", []byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.Is(err, errs.ErrCodeInvalidSource) {
				t.Errorf("error %v should have code INVALID_SOURCE", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestIndentWidth(t *testing.T) {
	for line, want := range map[string]int{"a": 0, "  a": 2, "\ta": tabWidth, " \t a": tabWidth + 2} {
		if got := indentWidth(line); got != want {
			t.Errorf("indentWidth(%q) = %d, want %d", line, got, want)
		}
	}
}
