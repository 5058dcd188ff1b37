package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/taxonomy"
)

// TagsCmd generates one level of sub-intents for a parent intent
var TagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Generate sub-intents for a parent intent",
	Long: `Ask the model for sub-intents of one parent intent.

Existing siblings passed with --existing are shown to the model so it
avoids repeating them. --intent-path places the parent in a wider
taxonomy, e.g. "Banking -> 1 Cards -> 1.2 Card Security".

Examples:
  distill tags -p "Customer Support" -n 8
  distill tags -p "Card Security" --intent-path "Banking -> 1 Cards -> 1.2 Card Security" -o tags.json`,
	RunE: runTags,
}

func init() {
	TagsCmd.Flags().StringP("parent", "p", "", "Parent intent name")
	TagsCmd.Flags().IntP("count", "n", 10, "Number of sub-intents to generate")
	TagsCmd.Flags().String("intent-path", "", "Full intent path of the parent")
	TagsCmd.Flags().StringSlice("existing", nil, "Existing sibling intents to avoid (repeatable)")
	TagsCmd.Flags().StringP("output", "o", "", "Output file path")
	generationFlags(TagsCmd)
	_ = TagsCmd.MarkFlagRequired("parent")
}

// tagResult is one generated sub-intent as saved by the tags command
type tagResult struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	FullName string `json:"full_name"`
	Parent   string `json:"parent"`
}

func runTags(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	parentName, _ := cmd.Flags().GetString("parent")
	count, _ := cmd.Flags().GetInt("count")
	intentPath, _ := cmd.Flags().GetString("intent-path")
	existing, _ := cmd.Flags().GetStringSlice("existing")
	output, _ := cmd.Flags().GetString("output")

	parent := intentNode(parentName, intentPath)

	rt.printf("\n%s %s\n", pterm.LightCyan("Distilling sub-intents for:"), parentName)
	rt.printf("%s\n\n", pterm.Gray(fmt.Sprintf("Generating %d sub-intents...", count)))

	var spinner *pterm.SpinnerPrinter
	if !rt.json {
		spinner, _ = pterm.DefaultSpinner.Start("Generating intent tags...")
	}
	tags, err := distill.NewTagDistiller(rt.gen, rt.opts).DistillTags(cmd.Context(), parentName, count, parent, existing)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	results := make([]tagResult, len(tags))
	for i, tag := range tags {
		results[i] = tagResult{Name: tag.Name(), Number: tag.Number(), FullName: tag.FullName(), Parent: parentName}
	}

	if output != "" {
		if err := writeResults(output, results); err != nil {
			return err
		}
	}

	if rt.json {
		return display.OutputJSON(results)
	}

	pterm.Success.Println("Generated intent tags:")
	for _, tag := range tags {
		pterm.Printf("  • %s\n", tag.FullName())
	}
	if output != "" {
		pterm.Printf("\n%s\n", pterm.Green("Saved to "+output))
	}
	return nil
}

// intentNode returns the node for name, placed under the chain described by
// path when one is given.
func intentNode(name, path string) *taxonomy.Node {
	node := taxonomy.FromPath(path)
	if node == nil {
		return taxonomy.NewNode(name, "", nil)
	}
	if node.Name() == name || node.FullName() == name {
		return node
	}
	return taxonomy.NewNode(name, "", node)
}
