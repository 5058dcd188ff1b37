// Package taxonomy holds the intent tree built by the tag distiller.
//
// A Node owns its children and keeps a non-owning reference to its parent.
// Nodes are attached to their parent at construction and are never moved or
// removed, so every derived value (full name, paths, depth) is computed from
// the ancestor chain on read.
package taxonomy

import "slices"

// PathSeparator joins names in Path and NumberedPath
const PathSeparator = " -> "

// Node is one intent in the taxonomy
type Node struct {
	name     string
	number   string
	parent   *Node
	children []*Node
}

// NewNode creates a node and appends it to parent's children when parent is non-nil
func NewNode(name, number string, parent *Node) *Node {
	n := &Node{name: name, number: number, parent: parent}
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	return n
}

// Name returns the display label
func (n *Node) Name() string { return n.name }

// Number returns the hierarchical ordinal ("1.2"), empty for the root
func (n *Node) Number() string { return n.number }

// Parent returns the parent node, nil for the root
func (n *Node) Parent() *Node { return n.parent }

// Children returns the children in creation order.
// The returned slice is a copy.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// IsLeaf reports whether the node has no children
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// IsRoot reports whether the node has no parent
func (n *Node) IsRoot() bool { return n.parent == nil }

// FullName returns "number name", or just name when unnumbered
func (n *Node) FullName() string {
	if n.number != "" {
		return n.number + " " + n.name
	}
	return n.name
}

// Path returns root-to-node names, e.g. "Support -> Account -> Password Reset"
func (n *Node) Path() string {
	if n.parent != nil {
		return n.parent.Path() + PathSeparator + n.name
	}
	return n.name
}

// NumberedPath returns root-to-node full names,
// e.g. "Support -> 1 Account -> 1.2 Password Reset"
func (n *Node) NumberedPath() string {
	if n.parent != nil {
		return n.parent.NumberedPath() + PathSeparator + n.FullName()
	}
	return n.FullName()
}

// Depth returns the distance from the root (root = 0)
func (n *Node) Depth() int {
	depth := 0
	for p := n.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Hierarchy returns ancestor names from the root down to and including n
func (n *Node) Hierarchy() []string {
	names := make([]string, n.Depth()+1)
	i := len(names) - 1
	for cur := n; cur != nil; cur = cur.parent {
		names[i] = cur.name
		i--
	}
	return names
}

// Root walks up to the top of the tree
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// ChildNames returns the names of the direct children in order
func (n *Node) ChildNames() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.name
	}
	return names
}

// Siblings returns the other children of n's parent in order.
// The root has no siblings.
func (n *Node) Siblings() []*Node {
	if n.parent == nil {
		return nil
	}
	siblings := make([]*Node, 0, len(n.parent.children))
	for _, c := range n.parent.children {
		if c != n {
			siblings = append(siblings, c)
		}
	}
	return siblings
}
