package display

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/taxonomy"
)

func wideTree() *taxonomy.Node {
	root := taxonomy.NewNode("Support", "", nil)
	for i := 1; i <= 7; i++ {
		child := taxonomy.NewNode(fmt.Sprintf("Topic %d", i), fmt.Sprintf("%d", i), root)
		a := taxonomy.NewNode("A", fmt.Sprintf("%d.1", i), child)
		b := taxonomy.NewNode("B", fmt.Sprintf("%d.1.1", i), a)
		taxonomy.NewNode("C", fmt.Sprintf("%d.1.1.1", i), b)
	}
	return root
}

func TestTreeNode_Truncates(t *testing.T) {
	node := TreeNode(wideTree(), DefaultMaxChildren, DefaultMaxDepth)

	assert.Equal(t, "Support", node.Text)
	require.Len(t, node.Children, 6)
	assert.Equal(t, "1 Topic 1", node.Children[0].Text)
	assert.Equal(t, "... and 2 more", node.Children[5].Text)
	assert.Empty(t, node.Children[5].Children)

	// Three levels below the root, the fourth is cut
	level3 := node.Children[0].Children[0].Children[0]
	assert.Equal(t, "1.1.1 B", level3.Text)
	assert.Empty(t, level3.Children)
}

func TestTreeNode_NoLimit(t *testing.T) {
	node := TreeNode(wideTree(), 0, 10)
	assert.Len(t, node.Children, 7)
}

func TestRenderTree(t *testing.T) {
	out, err := RenderTree(wideTree())
	require.NoError(t, err)
	assert.Contains(t, out, "5 Topic 5")
	assert.NotContains(t, out, "6 Topic 6")
	assert.Contains(t, out, "... and 2 more")
}

func TestCountIntents(t *testing.T) {
	counts := CountIntents([]string{"b", "a", "a", "c", "b", "a"})
	assert.Equal(t, []IntentCount{
		{Intent: "a", Count: 3},
		{Intent: "b", Count: 2},
		{Intent: "c", Count: 1},
	}, counts)

	tie := CountIntents([]string{"y", "x"})
	assert.Equal(t, "y", tie[0].Intent, "ties keep first-seen order")
}

func TestIntentTable(t *testing.T) {
	counts := []IntentCount{{"a", 5}, {"b", 3}, {"c", 2}, {"d", 1}}
	data := IntentTable(counts, 2)
	require.Len(t, data, 4)
	assert.Equal(t, []string{"a", "5"}, data[1])
	assert.Equal(t, []string{"(2 more intents)", "3"}, data[3])

	assert.Len(t, IntentTable(counts, 0), 5)
}

func TestSummarizeTaxonomy(t *testing.T) {
	s := SummarizeTaxonomy(wideTree(), 4, 7)
	assert.Equal(t, "Support", s.Root)
	assert.Equal(t, 28, s.Nodes)
	assert.Equal(t, 7, s.Leaves)
	assert.Equal(t, 4, s.Height)
	assert.Equal(t, 7+49+343+2401, s.ExpectedNodes)

	data := TaxonomyTable(s)
	assert.Equal(t, []string{"Intents", "28 / 2800"}, data[2])
}

func TestUsageAndOperationTables(t *testing.T) {
	stats := &tracker.UsageStats{TotalRequests: 3, TotalTokens: 300, TotalCost: 0.0123}
	models := []tracker.ModelBreakdown{{ModelName: "deepseek-chat", ModelProvider: "deepseek", RequestCount: 3, TotalTokens: 300, TotalCost: 0.0123}}

	data := UsageTable(stats, models)
	require.Len(t, data, 3)
	assert.Equal(t, []string{"deepseek-chat", "deepseek", "3", "300", "0.0123"}, data[1])
	assert.Equal(t, "Total", data[2][0])

	ops := OperationTable([]tracker.OperationBreakdown{{OperationType: "distill.tags", RequestCount: 4, FailedCount: 1}})
	assert.Equal(t, []string{"distill.tags", "4", "1", "0", "0.0000"}, ops[1])
}

func TestJSONEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONEmitter(&buf)
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	e.EmitStage("taxonomy", "building level 1")
	e.EmitProgress(3, map[string]interface{}{"type": "tags", "intent": "Cards"})
	e.EmitError("questions", errors.New("boom"))
	e.EmitInfo("done")
	e.EmitComplete(map[string]interface{}{"questions": 12})

	var events []ProgressEvent
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var ev ProgressEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 5)

	assert.Equal(t, "stage", events[0].Type)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "taxonomy", events[0].Data["stage"])

	assert.Equal(t, "progress", events[1].Type)
	assert.Equal(t, float64(3), events[1].Data["count"])
	assert.Equal(t, "Cards", events[1].Data["intent"])

	assert.Equal(t, "boom", events[2].Data["error"])
	assert.Equal(t, "info", events[3].Type)
	assert.Equal(t, float64(12), events[4].Data["questions"])
}

func TestCLIEmitter_DoesNotPanic(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()

	e := NewCLIEmitter(1)
	e.EmitStage("taxonomy", "level 1")
	e.EmitProgress(2, nil)
	e.EmitProgress(2, map[string]interface{}{"type": "questions", "intent": "Cards"})
	e.EmitError("tags", errors.New("bad"))
	e.EmitInfo("info")
	e.EmitComplete(map[string]interface{}{"b": 1, "a": 2})
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv("DISTILL_CALLER", "")
	for _, key := range []string{"CLAUDECODE", "CLAUDE_CODE_ENTRYPOINT", "CURSOR", "GITHUB_COPILOT"} {
		t.Setenv(key, "")
	}

	root := &cobra.Command{Use: "distill"}
	root.PersistentFlags().Bool("json", false, "")
	sub := &cobra.Command{Use: "tags"}
	root.AddCommand(sub)

	assert.False(t, ShouldOutputJSON(sub))
	assert.False(t, ShouldOutputJSON(nil))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(sub))

	t.Setenv("DISTILL_CALLER", "llm")
	assert.True(t, ShouldOutputJSON(nil))
}

func TestMarshalJSON_PrettyUnderTest(t *testing.T) {
	data, err := MarshalJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}
