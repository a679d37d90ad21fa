// Package render turns trees into text, JSON and Graphviz output.
//
// [Outline] writes an indented text view with mount markers: [MarkLazy] for
// a placeholder that has not been resolved and [MarkFailed] for one whose
// last resolution failed. [JSON] produces a nested one-way view for other
// programs. [DOT] converts a tree to Graphviz and [SVG] renders it:
//
//	dot := render.DOT(t, render.DOTOptions{Horizontal: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Only attached nodes are rendered, and extra edges only when both ends are
// attached.
package render
