// Package text provides a tree provider for indented outlines (".txt",
// ".outline").
//
// Each non-blank line is an item; indentation (spaces, or tabs counted as
// four columns) nests it under the closest previous item that is indented
// less. Lines starting with "#" are comments.
//
//	Mammals
//	  Dog
//	  > a line of content for Dog
//	Birds
//	@mount birds.txt
//	Reptiles
//	@mount! reptiles.txt?path=0
//
// "@mount <continuation>" turns the previous item into a lazy mount point,
// "@mount!" into an eager one. A mounted item cannot have children of its
// own.
//
// Node IDs are child-index paths ("0", "0/1"), so "notes.txt?path=0/1"
// selects a subtree, and a "depth" parameter makes deeper branches lazy
// mounts of that form.
package text
