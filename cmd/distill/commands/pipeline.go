package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/export"
	"github.com/teranos/distill/taxonomy"
)

// taxonomyFlags are shared by the auto and conversations pipelines
func taxonomyFlags(cmd *cobra.Command, levels int) {
	cmd.Flags().StringP("topic", "t", "", "Root topic/domain")
	cmd.Flags().Int("levels", levels, "Taxonomy depth (recommended: 2-3)")
	cmd.Flags().Int("tags-per-level", 5, "Tags per level (recommended: 4-8)")
	cmd.Flags().Bool("leaf-only", true, "Only generate for leaf intents")
	cmd.Flags().StringP("output", "o", "", "Output file path (.jsonl or .json)")
	cmd.Flags().String("export-taxonomy", "", "Export taxonomy tree to file (.json or .txt)")
	cmd.Flags().String("export-flat", "", "Export flattened taxonomy to file (.json or .csv)")
	cmd.Flags().String("resume", "", "Extend a taxonomy saved with --export-taxonomy instead of starting fresh")
	_ = cmd.MarkFlagRequired("output")
}

// plan is the expected size of a pipeline run
type plan struct {
	Topic      string `json:"topic"`
	Levels     int    `json:"levels"`
	Tags       int    `json:"tags_per_level"`
	Intents    int    `json:"expected_intents"`
	Leaves     int    `json:"expected_leaf_intents"`
	PerIntent  int    `json:"per_intent"`
	Samples    int    `json:"expected_samples"`
	LeafOnly   bool   `json:"leaf_only"`
	SampleKind string `json:"sample_kind"`
}

func newPlan(topic string, levels, tags, perIntent int, leafOnly bool, kind string) plan {
	total, leaves := taxonomy.ExpectedCounts(levels, tags)
	targets := total
	if leafOnly {
		targets = leaves
	}
	return plan{
		Topic:      topic,
		Levels:     levels,
		Tags:       tags,
		Intents:    total,
		Leaves:     leaves,
		PerIntent:  perIntent,
		Samples:    targets * perIntent,
		LeafOnly:   leafOnly,
		SampleKind: kind,
	}
}

// printBanner prints the expected-count header; extra lines follow the
// per-intent line.
func (rt *runtime) printBanner(title string, p plan, extra ...string) {
	if rt.json {
		return
	}
	rule := pterm.Gray(strings.Repeat("=", 50))
	targets := p.Intents
	if p.LeafOnly {
		targets = p.Leaves
	}
	pterm.Println()
	pterm.Println(pterm.Bold.Sprint(pterm.LightCyan(title)))
	pterm.Println(rule)
	pterm.Printf("Topic: %s\n", pterm.Yellow(p.Topic))
	pterm.Printf("Taxonomy: %d levels × %d tags/level\n", p.Levels, p.Tags)
	pterm.Printf("Expected: ~%d total intents, ~%d leaf intents\n", p.Intents, p.Leaves)
	pterm.Printf("%s: %d per intent × %d intents\n", strings.ToUpper(p.SampleKind[:1])+p.SampleKind[1:], p.PerIntent, targets)
	for _, line := range extra {
		pterm.Println(line)
	}
	pterm.Printf("Total: %s\n", pterm.Green(fmt.Sprintf("~%d %s", p.Samples, p.SampleKind)))
	pterm.Println(rule)
	pterm.Println()
}

// buildTaxonomy runs stage 1: build or extend the tree, preview it and
// write the requested taxonomy exports.
func (rt *runtime) buildTaxonomy(cmd *cobra.Command, topic string, levels, tags int) (*taxonomy.Node, error) {
	resume, _ := cmd.Flags().GetString("resume")
	td := distill.NewTagDistiller(rt.gen, rt.opts)

	var root *taxonomy.Node
	var err error
	if resume != "" {
		existing, loadErr := taxonomy.LoadFile(resume)
		if loadErr != nil {
			return nil, loadErr
		}
		rt.log().Infow("Resuming taxonomy", "file", resume, "intents", taxonomy.CountNodes(existing)-1)
		root, err = td.BuildTaxonomyFrom(cmd.Context(), existing, levels, tags)
	} else {
		root, err = td.BuildTaxonomy(cmd.Context(), topic, levels, tags)
	}
	if err != nil {
		return nil, errors.Wrap(err, "taxonomy build interrupted")
	}
	if taxonomy.CountNodes(root) == 1 {
		return nil, errors.WithHint(
			errors.Newf("no intents were generated for %q", root.Name()),
			"run with -v to see per-request failures")
	}

	if !rt.json {
		pterm.Success.Println("Taxonomy built successfully!")
		if err := display.PrintTree(root); err != nil {
			rt.log().Warnw("Failed to render taxonomy tree", "error", err)
		}
	}

	if path, _ := cmd.Flags().GetString("export-taxonomy"); path != "" {
		if err := export.WriteTaxonomy(path, root); err != nil {
			return nil, err
		}
		rt.printf("%s\n", pterm.Gray("Taxonomy saved to "+path))
	}
	if path, _ := cmd.Flags().GetString("export-flat"); path != "" {
		if err := export.WriteFlatTaxonomy(path, root); err != nil {
			return nil, err
		}
		rt.printf("%s\n", pterm.Gray("Flat taxonomy saved to "+path))
	}
	return root, nil
}

// topicOrResume validates that a pipeline has somewhere to start from
func topicOrResume(cmd *cobra.Command) (string, error) {
	topic, _ := cmd.Flags().GetString("topic")
	resume, _ := cmd.Flags().GetString("resume")
	if topic == "" && resume == "" {
		return "", errors.WithHint(errors.New("a root topic is required"), "pass --topic, or --resume with a saved taxonomy")
	}
	return topic, nil
}

// printIntentBreakdown shows the most frequent intents at -v and above
func (rt *runtime) printIntentBreakdown(intents []string) {
	if rt.json || rt.verbosity < 1 {
		return
	}
	pterm.Println()
	if err := display.PrintTable(display.IntentTable(display.CountIntents(intents), previewLimit)); err != nil {
		rt.log().Warnw("Failed to render intent table", "error", err)
	}
}
