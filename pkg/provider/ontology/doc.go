// Package ontology provides a tree provider for class taxonomies written in
// TOML (".onto.toml", ".ontology").
//
//	title = "Pizza"
//	base = "http://example.org/pizza#"
//
//	[classes.Pizza]
//	parent = "Food"
//	instances = ["Margherita", "Hawaii"]
//	properties = ["diameter"]
//	relations = { hasTopping = "Topping" }
//
// The root lists the top classes. A class with subclasses or facets
// (instances, properties, relations) beyond the materialized depth becomes a
// lazy mount "?class=<name>&target=<facets>", where target is the "+"-joined
// set of facets the class shows. Resolving it lists one folder per facet
// followed by the subclasses. A "show" parameter restricts the facets for a
// whole tree; it is carried into every continuation.
//
// Class nodes are decorated by [KindOf]: a class showing relations is a
// [WithRelation] node, else one showing instances is [WithInstances], else
// one showing properties is [WithProperties]; everything else is [Plain].
// Relations whose target class is part of the same tree become edges.
package ontology
