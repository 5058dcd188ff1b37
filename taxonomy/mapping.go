package taxonomy

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/teranos/distill/errors"
)

// Mapping is the nested serialized form of a tree.
// Derived fields are written for readers and ignored on load.
type Mapping struct {
	Name         string    `json:"name"`
	Number       string    `json:"number"`
	FullName     string    `json:"full_name,omitempty"`
	Path         string    `json:"path,omitempty"`
	NumberedPath string    `json:"numbered_path,omitempty"`
	Children     []Mapping `json:"children"`
}

// ToMapping exports the subtree rooted at n
func (n *Node) ToMapping() Mapping {
	m := Mapping{
		Name:         n.name,
		Number:       n.number,
		FullName:     n.FullName(),
		Path:         n.Path(),
		NumberedPath: n.NumberedPath(),
		Children:     make([]Mapping, len(n.children)),
	}
	for i, c := range n.children {
		m.Children[i] = c.ToMapping()
	}
	return m
}

// FromMapping rebuilds a tree under parent (nil for a new root)
func FromMapping(m Mapping, parent *Node) *Node {
	n := NewNode(m.Name, m.Number, parent)
	for _, c := range m.Children {
		FromMapping(c, n)
	}
	return n
}

// LoadFile reads a tree saved as a nested mapping JSON document
func LoadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read taxonomy %s", path)
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse taxonomy %s", path)
	}
	if m.Name == "" {
		return nil, errors.Newf("taxonomy %s has no root name", path)
	}
	return FromMapping(m, nil), nil
}

// FromPath materializes an intent chain such as "Support -> 1 Account -> 1.2 Password Reset"
// and returns its last node. The first segment is the unnumbered root; later
// segments are parsed with ParseLabel.
func FromPath(path string) *Node {
	var node *Node
	for i, segment := range strings.Split(path, strings.TrimSpace(PathSeparator)) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if i == 0 || node == nil {
			node = NewNode(segment, "", nil)
			continue
		}
		number, name := ParseLabel(segment)
		node = NewNode(name, number, node)
	}
	return node
}
