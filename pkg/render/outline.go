package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/matzehuels/graftwood/pkg/tree"
)

// Mount markers used by [Outline].
const (
	MarkLazy   = "▸"
	MarkFailed = "✗"
)

// OutlineOption configures [Outline].
type OutlineOption func(*outliner)

type outliner struct {
	ids     bool
	content bool
	indent  string
}

// WithIDs appends each node's ID in brackets.
func WithIDs() OutlineOption { return func(o *outliner) { o.ids = true } }

// WithContent prints node content on an indented line below the label.
func WithContent() OutlineOption { return func(o *outliner) { o.content = true } }

// WithIndent sets the per-level indentation (default two spaces).
func WithIndent(s string) OutlineOption { return func(o *outliner) { o.indent = s } }

// Outline writes the attached part of t as indented text. Unresolved mount
// points are marked with [MarkLazy], failed ones with [MarkFailed] and
// their diagnostic. Group nodes are shown in parentheses.
func Outline(w io.Writer, t *tree.Tree, opts ...OutlineOption) error {
	o := outliner{indent: "  "}
	for _, opt := range opts {
		opt(&o)
	}
	bw := bufio.NewWriter(w)
	t.Walk(func(n *tree.Node, depth int) bool {
		pad := strings.Repeat(o.indent, depth)
		bw.WriteString(pad)
		bw.WriteString(OutlineLine(n))
		if o.ids {
			bw.WriteString(" [" + n.ID + "]")
		}
		bw.WriteByte('\n')
		if o.content && n.Content != "" {
			for _, line := range strings.Split(n.Content, "\n") {
				bw.WriteString(pad + o.indent + "| " + line + "\n")
			}
		}
		return true
	})
	return bw.Flush()
}

// OutlineLine is the one-line rendering of a node: marker and label.
func OutlineLine(n *tree.Node) string {
	label := n.Label
	if n.IsGroup() {
		label = "(" + label + ")"
	}
	switch {
	case n.Mount == nil:
		return label
	case n.Mount.State == tree.MountFailed:
		line := MarkFailed + " " + label
		if n.Mount.Err != nil {
			line += ": " + n.Mount.Err.Error()
		}
		return line
	default:
		return MarkLazy + " " + label
	}
}
