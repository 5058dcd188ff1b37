package taxonomy

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree builds:
//
//	Support
//	  1 Account
//	    1.1 Password Reset
//	    1.2 Account Deletion
//	  2 Billing
func sampleTree() (root, account, reset, deletion, billing *Node) {
	root = NewNode("Support", "", nil)
	account = NewNode("Account", "1", root)
	reset = NewNode("Password Reset", "1.1", account)
	deletion = NewNode("Account Deletion", "1.2", account)
	billing = NewNode("Billing", "2", root)
	return
}

func TestNode_DerivedNames(t *testing.T) {
	root, account, reset, _, _ := sampleTree()

	assert.Equal(t, "Support", root.FullName())
	assert.Equal(t, "1.1 Password Reset", reset.FullName())
	assert.Equal(t, "Support -> Account -> Password Reset", reset.Path())
	assert.Equal(t, "Support -> 1 Account -> 1.1 Password Reset", reset.NumberedPath())
	assert.Equal(t, []string{"Support", "Account", "Password Reset"}, reset.Hierarchy())
	assert.Equal(t, 2, reset.Depth())
	assert.Equal(t, 0, root.Depth())
	assert.Same(t, root, reset.Root())
	assert.Same(t, account, reset.Parent())
	assert.True(t, root.IsRoot())
	assert.True(t, reset.IsLeaf())
}

func TestNode_ChildrenOrderAndCopy(t *testing.T) {
	root, account, _, _, billing := sampleTree()

	assert.Equal(t, []string{"Account", "Billing"}, root.ChildNames())

	children := root.Children()
	children[0] = billing
	assert.Same(t, account, root.Children()[0], "Children must not expose internal slice")
}

func TestNode_Siblings(t *testing.T) {
	root, account, reset, deletion, billing := sampleTree()

	assert.Empty(t, root.Siblings())
	assert.Equal(t, []*Node{billing}, account.Siblings())
	assert.Equal(t, []*Node{deletion}, reset.Siblings())

	only := NewNode("Only", "1", NewNode("Solo", "", nil))
	assert.Empty(t, only.Siblings())
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		label      string
		wantNumber string
		wantName   string
	}{
		{"1.2 Password Reset", "1.2", "Password Reset"},
		{"  3 Billing  ", "3", "Billing"},
		{"Billing", "", "Billing"},
		{"Refund Request", "Refund", "Request"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			number, name := ParseLabel(tt.label)
			assert.Equal(t, tt.wantNumber, number)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestLeavesAndFlatten(t *testing.T) {
	root, _, reset, deletion, billing := sampleTree()

	assert.Equal(t, []*Node{reset, deletion, billing}, Leaves(root))
	assert.Equal(t, []*Node{billing}, Leaves(billing))
	assert.Len(t, Select(root, false), 5)
	assert.Len(t, Select(root, true), 3)
	assert.Nil(t, Leaves(nil))

	flat := Flatten(root)
	require.Len(t, flat, 5)
	levels := make([]int, len(flat))
	names := make([]string, len(flat))
	for i, e := range flat {
		levels[i] = e.Level
		names[i] = e.Name
	}
	assert.Equal(t, []int{0, 1, 2, 2, 1}, levels)
	assert.Equal(t, []string{"Support", "Account", "Password Reset", "Account Deletion", "Billing"}, names)
	assert.Equal(t, "Support -> 1 Account -> 1.2 Account Deletion", flat[3].NumberedPath)

	assert.Equal(t, 5, CountNodes(root))
	assert.Equal(t, 2, Height(root))
	assert.Equal(t, 0, Height(billing))
}

func TestExpectedCounts(t *testing.T) {
	total, leaves := ExpectedCounts(3, 5)
	assert.Equal(t, 5+25+125, total)
	assert.Equal(t, 125, leaves)

	total, leaves = ExpectedCounts(0, 5)
	assert.Zero(t, total)
	assert.Zero(t, leaves)
}

func TestMappingRoundTrip(t *testing.T) {
	root, _, _, _, _ := sampleTree()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(root.ToMapping()))
	assert.Contains(t, buf.String(), `"numbered_path":"Support -> 1 Account"`)

	var m Mapping
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	rebuilt := FromMapping(m, nil)

	assert.Equal(t, Flatten(root), Flatten(rebuilt))
}

func TestLoadFile(t *testing.T) {
	root, _, _, _, _ := sampleTree()
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	data, err := json.MarshalIndent(root.ToMapping(), "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, CountNodes(loaded))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"children": []}`), 0644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	leaf := FromPath("Customer Support -> 1 Account -> 1.2 Password Reset")
	require.NotNil(t, leaf)
	assert.Equal(t, "Password Reset", leaf.Name())
	assert.Equal(t, "1.2", leaf.Number())
	assert.Equal(t, "Customer Support -> 1 Account -> 1.2 Password Reset", leaf.NumberedPath())
	assert.Equal(t, "Customer Support", leaf.Root().Name())

	single := FromPath("Billing")
	assert.True(t, single.IsRoot())
	assert.Nil(t, FromPath(""))
}

func TestExportText(t *testing.T) {
	root, _, _, _, _ := sampleTree()
	want := strings.Join([]string{
		"- Support",
		"  - Account",
		"    - Password Reset",
		"    - Account Deletion",
		"  - Billing",
	}, "\n")
	assert.Equal(t, want, ExportText(root))
}
