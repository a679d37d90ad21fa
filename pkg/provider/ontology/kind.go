package ontology

import (
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Facets a class node can show besides its subclasses. They are the
// members of a "target" parameter.
const (
	TargetInstances  = "instances"
	TargetProperties = "properties"
	TargetRelation   = "relation"
)

var allTargets = []string{TargetInstances, TargetProperties, TargetRelation}

// NodeKind classifies a class node for decoration.
type NodeKind int

const (
	Plain NodeKind = iota
	WithRelation
	WithInstances
	WithProperties
)

func (k NodeKind) String() string {
	switch k {
	case WithRelation:
		return "relation"
	case WithInstances:
		return "instances"
	case WithProperties:
		return "properties"
	default:
		return "plain"
	}
}

// decoration is the single lookup from kind to presentation.
var decoration = map[NodeKind]tree.Style{
	Plain:          {},
	WithRelation:   {FillColor: "#fde2c8", FontColor: "#7a3b00"},
	WithInstances:  {FillColor: "#d8ecd2", FontColor: "#1f5114"},
	WithProperties: {FillColor: "#d6e4f5", FontColor: "#173d6b"},
}

// KindOf picks the kind of a class node from the facets it shows.
// Relations win over instances, instances over properties.
func KindOf(shown map[string]bool) NodeKind {
	switch {
	case shown[TargetRelation]:
		return WithRelation
	case shown[TargetInstances]:
		return WithInstances
	case shown[TargetProperties]:
		return WithProperties
	default:
		return Plain
	}
}

// facets returns the facets c has, restricted to requested (nil: all).
func facets(c *class, requested map[string]bool) map[string]bool {
	out := make(map[string]bool, len(allTargets))
	has := map[string]bool{
		TargetInstances:  len(c.instances) > 0,
		TargetProperties: len(c.properties) > 0,
		TargetRelation:   len(c.relations) > 0,
	}
	for _, t := range allTargets {
		if has[t] && (requested == nil || requested[t]) {
			out[t] = true
		}
	}
	return out
}

// targetParam encodes a facet set in canonical order.
func targetParam(shown map[string]bool) string {
	var ts []string
	for _, t := range allTargets {
		if shown[t] {
			ts = append(ts, t)
		}
	}
	return mount.JoinTargets(ts...)
}

func decorate(n *tree.Node, kind NodeKind) {
	n.Style = decoration[kind]
	n.Meta["kind"] = kind.String()
}
