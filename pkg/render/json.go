package render

import (
	"encoding/json"

	"github.com/matzehuels/graftwood/pkg/tree"
)

// JSONOption configures [JSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	indent bool
	meta   bool
}

// WithJSONIndent pretty-prints the output.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// WithJSONMeta includes node and edge metadata.
func WithJSONMeta() JSONOption { return func(r *jsonRenderer) { r.meta = true } }

type jsonOutput struct {
	Source string     `json:"source"`
	Root   *jsonNode  `json:"root"`
	Edges  []jsonEdge `json:"edges,omitempty"`
}

type jsonNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Kind     string        `json:"kind"`
	Content  string        `json:"content,omitempty"`
	Style    *tree.Style   `json:"style,omitempty"`
	Meta     tree.Metadata `json:"meta,omitempty"`
	Mount    *jsonMount    `json:"mount,omitempty"`
	Children []*jsonNode   `json:"children,omitempty"`
}

type jsonMount struct {
	Continuation string `json:"continuation"`
	Eager        bool   `json:"eager,omitempty"`
	State        string `json:"state"`
	Error        string `json:"error,omitempty"`
}

type jsonEdge struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Label string        `json:"label,omitempty"`
	Style *tree.Style   `json:"style,omitempty"`
	Meta  tree.Metadata `json:"meta,omitempty"`
}

// JSON renders the attached part of t as nested JSON. It is a view for
// other programs; there is no reader.
func JSON(t *tree.Tree, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	out := jsonOutput{Source: t.Source(), Root: r.node(t, t.Root())}
	for _, e := range t.Edges() {
		if !t.IsAttached(e.From) || !t.IsAttached(e.To) {
			continue
		}
		je := jsonEdge{From: e.From, To: e.To, Label: e.Label, Style: stylePtr(e.Style)}
		if r.meta && len(e.Meta) > 0 {
			je.Meta = e.Meta
		}
		out.Edges = append(out.Edges, je)
	}
	if r.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

func (r jsonRenderer) node(t *tree.Tree, n *tree.Node) *jsonNode {
	jn := &jsonNode{
		ID:      n.ID,
		Label:   n.Label,
		Kind:    n.Kind.String(),
		Content: n.Content,
		Style:   stylePtr(n.Style),
	}
	if r.meta && len(n.Meta) > 0 {
		jn.Meta = n.Meta
	}
	if m := n.Mount; m != nil {
		jn.Mount = &jsonMount{Continuation: m.Continuation, Eager: m.Eager, State: m.State.String()}
		if m.Err != nil {
			jn.Mount.Error = m.Err.Error()
		}
	}
	for _, c := range t.ChildNodes(n.ID) {
		jn.Children = append(jn.Children, r.node(t, c))
	}
	return jn
}

func stylePtr(s tree.Style) *tree.Style {
	if s.IsZero() {
		return nil
	}
	return &s
}
