package display

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/pterm/pterm"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/taxonomy"
)

// IntentCount is the number of generated samples for one intent
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// CountIntents tallies intents in first-seen order, then sorts by count
// descending. Ties keep first-seen order.
func CountIntents(intents []string) []IntentCount {
	index := map[string]int{}
	var counts []IntentCount
	for _, intent := range intents {
		i, ok := index[intent]
		if !ok {
			i = len(counts)
			index[intent] = i
			counts = append(counts, IntentCount{Intent: intent})
		}
		counts[i].Count++
	}
	slices.SortStableFunc(counts, func(a, b IntentCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return counts
}

// TaxonomySummary describes a built tree
type TaxonomySummary struct {
	Root          string `json:"root"`
	Nodes         int    `json:"nodes"`
	Leaves        int    `json:"leaves"`
	Height        int    `json:"height"`
	ExpectedNodes int    `json:"expected_nodes,omitempty"`
}

// SummarizeTaxonomy counts the tree under root. levels and tags give the
// expected full-build size; pass zero when unknown.
func SummarizeTaxonomy(root *taxonomy.Node, levels, tags int) TaxonomySummary {
	expected, _ := taxonomy.ExpectedCounts(levels, tags)
	return TaxonomySummary{
		Root:          root.Name(),
		Nodes:         taxonomy.CountNodes(root) - 1,
		Leaves:        len(taxonomy.Leaves(root)),
		Height:        taxonomy.Height(root),
		ExpectedNodes: expected,
	}
}

// TaxonomyTable returns table rows for s
func TaxonomyTable(s TaxonomySummary) pterm.TableData {
	nodes := fmt.Sprintf("%d", s.Nodes)
	if s.ExpectedNodes > 0 {
		nodes = fmt.Sprintf("%d / %d", s.Nodes, s.ExpectedNodes)
	}
	return pterm.TableData{
		{"Metric", "Value"},
		{"Root", s.Root},
		{"Intents", nodes},
		{"Leaves", fmt.Sprintf("%d", s.Leaves)},
		{"Depth", fmt.Sprintf("%d", s.Height)},
	}
}

// IntentTable returns rows for the top limit intents, with a final row
// folding the remainder when limit is exceeded.
func IntentTable(counts []IntentCount, limit int) pterm.TableData {
	data := pterm.TableData{{"Intent", "Samples"}}
	shown := counts
	if limit > 0 && len(counts) > limit {
		shown = counts[:limit]
	}
	for _, c := range shown {
		data = append(data, []string{c.Intent, fmt.Sprintf("%d", c.Count)})
	}
	if rest := len(counts) - len(shown); rest > 0 {
		total := 0
		for _, c := range counts[len(shown):] {
			total += c.Count
		}
		data = append(data, []string{fmt.Sprintf("(%d more intents)", rest), fmt.Sprintf("%d", total)})
	}
	return data
}

// UsageTable returns per-model rows followed by a total row
func UsageTable(stats *tracker.UsageStats, models []tracker.ModelBreakdown) pterm.TableData {
	data := pterm.TableData{
		{"Model", "Provider", "Requests", "Tokens", "Cost (USD)"},
	}
	for _, m := range models {
		data = append(data, []string{
			m.ModelName,
			m.ModelProvider,
			fmt.Sprintf("%d", m.RequestCount),
			fmt.Sprintf("%d", m.TotalTokens),
			fmt.Sprintf("%.4f", m.TotalCost),
		})
	}
	if stats != nil {
		data = append(data, []string{
			"Total",
			"",
			fmt.Sprintf("%d", stats.TotalRequests),
			fmt.Sprintf("%d", stats.TotalTokens),
			fmt.Sprintf("%.4f", stats.TotalCost),
		})
	}
	return data
}

// OperationTable returns one row per pipeline stage
func OperationTable(ops []tracker.OperationBreakdown) pterm.TableData {
	data := pterm.TableData{{"Operation", "Requests", "Failed", "Tokens", "Cost (USD)"}}
	for _, op := range ops {
		data = append(data, []string{
			op.OperationType,
			fmt.Sprintf("%d", op.RequestCount),
			fmt.Sprintf("%d", op.FailedCount),
			fmt.Sprintf("%d", op.TotalTokens),
			fmt.Sprintf("%.4f", op.TotalCost),
		})
	}
	return data
}

// PrintTable renders rows with the first row as header
func PrintTable(data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}
