// Package xmldoc provides a tree provider for XML documents (".xml").
//
// Every element becomes a node whose ID is its XPath-like location
// ("/catalog/book[2]"); the label is the tag name plus the name, id or
// title attribute when present, and the element's text becomes the node
// content. Attributes are kept in the node metadata under "@name".
//
// Mount points come from two shapes:
//
//	<mount href="authors.xml" eager="true"/>
//	<extra xlink:href="extra.xml" xlink:actuate="onLoad"/>
//
// idref and idrefs attributes that point at the id of another materialized
// element become extra edges. "doc.xml?path=/catalog/book[2]" selects a
// subtree and a "depth" parameter makes deeper elements lazy.
package xmldoc
