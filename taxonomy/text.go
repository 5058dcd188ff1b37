package taxonomy

import "strings"

// ExportText renders the subtree as indented "- name" lines, two spaces per level
func ExportText(n *Node) string {
	var b strings.Builder
	writeText(&b, n, 0)
	return b.String()
}

func writeText(b *strings.Builder, n *Node, indent int) {
	if indent > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString("- ")
	b.WriteString(n.name)
	for _, c := range n.children {
		writeText(b, c, indent+1)
	}
}
