package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/graftwood/pkg/tree"
)

// DOTOptions configures [DOT].
type DOTOptions struct {
	// Horizontal lays the tree out left to right instead of top down.
	Horizontal bool
	// ShowContent adds node content below the label.
	ShowContent bool
}

// DOT converts the attached part of t to Graphviz DOT. Tree links are
// solid arrows, extra edges are drawn without affecting the layout, group
// nodes are dashed and grey, lazy mounts get a double outline and failed
// ones a red outline.
func DOT(t *tree.Tree, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Horizontal {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	var links []string
	t.Walk(func(n *tree.Node, _ int) bool {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts), ", "))
		for _, c := range t.ChildNodes(n.ID) {
			link := fmt.Sprintf("  %q -> %q", n.ID, c.ID)
			if c.Style.EdgeStyle != "" {
				link += fmt.Sprintf(" [style=%q]", c.Style.EdgeStyle)
			}
			links = append(links, link+";\n")
		}
		return true
	})

	buf.WriteString("\n")
	for _, l := range links {
		buf.WriteString(l)
	}
	for _, e := range t.Edges() {
		if !t.IsAttached(e.From) || !t.IsAttached(e.To) {
			continue
		}
		attrs := []string{"constraint=false", "color=grey40"}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		style := e.Style.EdgeStyle
		if style == "" {
			style = "dotted"
		}
		attrs = append(attrs, fmt.Sprintf("style=%q", style))
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *tree.Node, opts DOTOptions) []string {
	label := OutlineLine(n)
	if opts.ShowContent && n.Content != "" {
		label += "\n" + n.Content
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}

	style := "rounded,filled"
	fill := n.Style.FillColor
	switch {
	case n.IsGroup():
		style += ",dashed"
		if fill == "" {
			fill = "lightgrey"
		}
	case n.Mount != nil && n.Mount.State == tree.MountFailed:
		attrs = append(attrs, "color=red")
	case n.Mount != nil:
		attrs = append(attrs, "peripheries=2")
	}
	attrs = append(attrs, fmt.Sprintf("style=%q", style))
	if fill != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
	}
	if n.Style.FontColor != "" {
		attrs = append(attrs, fmt.Sprintf("fontcolor=%q", n.Style.FontColor))
	}
	if n.Style.Image != "" {
		attrs = append(attrs, fmt.Sprintf("image=%q", n.Style.Image))
	}
	return attrs
}

// SVG renders t with Graphviz.
func SVG(ctx context.Context, t *tree.Tree, opts DOTOptions) ([]byte, error) {
	return RenderSVG(ctx, DOT(t, opts))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales: origin at zero, width and height taken from the view box.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
