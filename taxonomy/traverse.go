package taxonomy

// Leaves returns nodes without children under n, depth-first in child order.
// A leaf n returns itself.
func Leaves(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return []*Node{n}
	}
	var leaves []*Node
	for _, c := range n.children {
		leaves = append(leaves, Leaves(c)...)
	}
	return leaves
}

// All returns n and every descendant in pre-order
func All(n *Node) []*Node {
	if n == nil {
		return nil
	}
	nodes := []*Node{n}
	for _, c := range n.children {
		nodes = append(nodes, All(c)...)
	}
	return nodes
}

// Select returns the leaves of n when leafOnly is set, otherwise all nodes
func Select(n *Node, leafOnly bool) []*Node {
	if leafOnly {
		return Leaves(n)
	}
	return All(n)
}

// CountNodes returns the size of the subtree rooted at n
func CountNodes(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.children {
		count += CountNodes(c)
	}
	return count
}

// Height returns the number of levels below n (a leaf has height 0)
func Height(n *Node) int {
	if n == nil {
		return 0
	}
	h := 0
	for _, c := range n.children {
		h = max(h, Height(c)+1)
	}
	return h
}

// FlatEntry is one row of a flattened taxonomy
type FlatEntry struct {
	Name         string `json:"name"`
	Number       string `json:"number"`
	FullName     string `json:"full_name"`
	Path         string `json:"path"`
	NumberedPath string `json:"numbered_path"`
	Level        int    `json:"level"`
}

// Flatten returns every node under n in pre-order with its depth from the tree root
func Flatten(n *Node) []FlatEntry {
	nodes := All(n)
	entries := make([]FlatEntry, len(nodes))
	for i, node := range nodes {
		entries[i] = FlatEntry{
			Name:         node.name,
			Number:       node.number,
			FullName:     node.FullName(),
			Path:         node.Path(),
			NumberedPath: node.NumberedPath(),
			Level:        node.Depth(),
		}
	}
	return entries
}

// ExpectedCounts returns the node and leaf counts a full build would reach:
// sum(tagsPerLevel^i) for i in 1..levels, and tagsPerLevel^levels
func ExpectedCounts(levels, tagsPerLevel int) (total, leaves int) {
	if levels <= 0 || tagsPerLevel <= 0 {
		return 0, 0
	}
	pow := 1
	for i := 1; i <= levels; i++ {
		pow *= tagsPerLevel
		total += pow
	}
	return total, pow
}
