package display

import (
	"fmt"
	"maps"
	"slices"

	"github.com/pterm/pterm"

	"github.com/teranos/distill/taxonomy"
)

// Tree preview limits
const (
	DefaultMaxChildren = 5
	DefaultMaxDepth    = 3
)

// TreeNode converts the taxonomy under root into a pterm tree, showing at
// most maxChildren children per node and maxDepth levels below root.
// Elided children collapse into a single "... and N more" entry.
func TreeNode(root *taxonomy.Node, maxChildren, maxDepth int) pterm.TreeNode {
	return treeNode(root, maxChildren, maxDepth, 0)
}

func treeNode(n *taxonomy.Node, maxChildren, maxDepth, depth int) pterm.TreeNode {
	node := pterm.TreeNode{Text: n.FullName()}
	if depth >= maxDepth {
		return node
	}
	children := n.Children()
	shown := children
	if maxChildren > 0 && len(children) > maxChildren {
		shown = children[:maxChildren]
	}
	for _, c := range shown {
		node.Children = append(node.Children, treeNode(c, maxChildren, maxDepth, depth+1))
	}
	if rest := len(children) - len(shown); rest > 0 {
		node.Children = append(node.Children, pterm.TreeNode{Text: fmt.Sprintf("... and %d more", rest)})
	}
	return node
}

// RenderTree renders a taxonomy preview with the default limits
func RenderTree(root *taxonomy.Node) (string, error) {
	return pterm.DefaultTree.
		WithRoot(TreeNode(root, DefaultMaxChildren, DefaultMaxDepth)).
		Srender()
}

// PrintTree prints a taxonomy preview headed by the root name
func PrintTree(root *taxonomy.Node) error {
	out, err := RenderTree(root)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println(root.Name())
	pterm.Println(out)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
