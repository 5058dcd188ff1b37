package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/taxonomy"
)

// TaxonomyCmd inspects saved taxonomies
var TaxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect saved taxonomies",
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Display a taxonomy saved with --export-taxonomy",
	Long: `Display a saved taxonomy as a tree with summary counts.

Examples:
  distill taxonomy show tree.json
  distill taxonomy show tree.json --max-children 0 --max-depth 10
  distill taxonomy show tree.json --text`,
	Args: cobra.ExactArgs(1),
	RunE: runTaxonomyShow,
}

func init() {
	taxonomyShowCmd.Flags().Int("max-children", display.DefaultMaxChildren, "Children shown per intent (0 = all)")
	taxonomyShowCmd.Flags().Int("max-depth", display.DefaultMaxDepth, "Levels shown below the root")
	taxonomyShowCmd.Flags().Bool("text", false, "Print an indented outline instead of a tree")
	TaxonomyCmd.AddCommand(taxonomyShowCmd)
}

func runTaxonomyShow(cmd *cobra.Command, args []string) error {
	root, err := taxonomy.LoadFile(args[0])
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(struct {
			Summary display.TaxonomySummary `json:"summary"`
			Intents []taxonomy.FlatEntry    `json:"intents"`
		}{
			Summary: display.SummarizeTaxonomy(root, 0, 0),
			Intents: taxonomy.Flatten(root)[1:],
		})
	}

	if text, _ := cmd.Flags().GetBool("text"); text {
		pterm.Println(taxonomy.ExportText(root))
		return nil
	}

	maxChildren, _ := cmd.Flags().GetInt("max-children")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	out, err := pterm.DefaultTree.WithRoot(display.TreeNode(root, maxChildren, maxDepth)).Srender()
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println(root.Name())
	pterm.Println(out)
	return display.PrintTable(display.TaxonomyTable(display.SummarizeTaxonomy(root, 0, 0)))
}
