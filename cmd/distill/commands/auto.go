package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/taxonomy"
)

// AutoCmd runs the taxonomy + question pipeline
var AutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Build a taxonomy and generate questions for it",
	Long: `Fully automated intent distillation.

Stage 1 builds an intent taxonomy breadth-first from the topic.
Stage 2 generates labeled questions for every leaf intent (or every
intent with --leaf-only=false).

Examples:
  distill auto -t "Online Banking" --levels 2 --tags-per-level 6 -o banking.jsonl
  distill auto -t "电商客服" -l zh --questions-per-tag 30 -o ecommerce.jsonl --export-taxonomy tree.json
  distill auto --resume tree.json --levels 3 -o deeper.jsonl`,
	RunE: runAuto,
}

func init() {
	taxonomyFlags(AutoCmd, 3)
	AutoCmd.Flags().Int("questions-per-tag", 20, "Questions per intent (recommended: 20-50)")
	AutoCmd.Flags().Int("variations", 0, "Paraphrases to add per question")
	generationFlags(AutoCmd)
}

// pipelineSummary is the JSON result of a pipeline command
type pipelineSummary struct {
	Taxonomy display.TaxonomySummary `json:"taxonomy"`
	Samples  int                     `json:"samples"`
	Output   string                  `json:"output"`
}

func runAuto(cmd *cobra.Command, args []string) error {
	topic, err := topicOrResume(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	gen := rt.cfg.Generation
	levels := intFlag(cmd, "levels", gen.Levels)
	tags := intFlag(cmd, "tags-per-level", gen.TagsPerLevel)
	perIntent := intFlag(cmd, "questions-per-tag", gen.QuestionsPerTag)
	leafOnly := boolFlag(cmd, "leaf-only", gen.LeafOnly)
	variations, _ := cmd.Flags().GetInt("variations")
	output, _ := cmd.Flags().GetString("output")

	rt.printBanner("Intent Distillation Pipeline", newPlan(topic, levels, tags, perIntent, leafOnly, "questions"))

	rt.printf("%s\n", pterm.Bold.Sprint("Stage 1/2: Building Intent Taxonomy"))
	root, err := rt.buildTaxonomy(cmd, topic, levels, tags)
	if err != nil {
		return err
	}

	targets := taxonomy.Select(root, leafOnly)
	rt.printf("\n%s\n", pterm.Bold.Sprint("Stage 2/2: Generating Questions"))
	rt.printf("Generating questions for %d intents...\n\n", len(targets))

	qd := distill.NewQuestionDistiller(rt.gen, rt.opts)
	questions, err := qd.DistillQuestionsForTree(cmd.Context(), root, perIntent, leafOnly)
	if err != nil {
		return err
	}
	if variations > 0 {
		questions, err = qd.AugmentWithVariations(cmd.Context(), questions, variations)
		if err != nil {
			return err
		}
	}

	rt.printf("\n%s\n", pterm.Bold.Sprint("Saving Results"))
	if err := writeResults(output, questions); err != nil {
		return err
	}

	summary := pipelineSummary{
		Taxonomy: display.SummarizeTaxonomy(root, levels, tags),
		Samples:  len(questions),
		Output:   output,
	}
	if rt.json {
		return display.OutputJSON(summary)
	}

	pterm.Println()
	pterm.Success.Println("Distillation Complete!")
	pterm.Println()
	data := display.TaxonomyTable(summary.Taxonomy)
	data = append(data,
		[]string{"Target intents", fmt.Sprintf("%d", len(targets))},
		[]string{"Questions", fmt.Sprintf("%d", len(questions))},
		[]string{"Output", output},
	)
	if err := display.PrintTable(data); err != nil {
		return err
	}

	intents := make([]string, len(questions))
	for i, q := range questions {
		intents[i] = q.Intent
	}
	rt.printIntentBreakdown(intents)

	pterm.Printf("\n%s\n\n", pterm.Gray(fmt.Sprintf("Use 'distill export -i %s -o training.json --format alpaca' to export for training", output)))
	return nil
}
