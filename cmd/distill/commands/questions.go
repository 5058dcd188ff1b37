package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/export"
)

// previewLimit caps how many generated items are echoed to the terminal
const previewLimit = 10

// QuestionsCmd generates labeled questions for one intent
var QuestionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate diverse questions for one intent",
	Long: `Ask the model for user questions expressing one intent.

--existing names a file of questions already collected for the intent:
a JSON array of strings, or JSON/JSONL records with a "question" field.
The model is shown up to 10 of them to avoid duplicates.

Examples:
  distill questions -i "Password Reset" -n 30 -o reset.jsonl
  distill questions -i "Password Reset" --intent-path "Support -> 1 Account -> 1.2 Password Reset" -e seen.json`,
	RunE: runQuestions,
}

func init() {
	QuestionsCmd.Flags().StringP("intent", "i", "", "Intent name")
	QuestionsCmd.Flags().String("intent-path", "", "Full intent path")
	QuestionsCmd.Flags().IntP("count", "n", 20, "Number of questions to generate")
	QuestionsCmd.Flags().StringP("existing", "e", "", "File with existing questions (to avoid duplicates)")
	QuestionsCmd.Flags().StringP("output", "o", "", "Output file path (.json or .jsonl)")
	QuestionsCmd.Flags().Int("variations", 0, "Paraphrases to add per question")
	generationFlags(QuestionsCmd)
	_ = QuestionsCmd.MarkFlagRequired("intent")
}

func runQuestions(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	intent, _ := cmd.Flags().GetString("intent")
	intentPath, _ := cmd.Flags().GetString("intent-path")
	count, _ := cmd.Flags().GetInt("count")
	existingPath, _ := cmd.Flags().GetString("existing")
	output, _ := cmd.Flags().GetString("output")
	variations, _ := cmd.Flags().GetInt("variations")

	var existing []string
	if existingPath != "" {
		existing, err = LoadExistingQuestions(existingPath)
		if err != nil {
			return err
		}
		rt.log().Infow("Loaded existing questions", "count", len(existing), "file", existingPath)
	}

	node := intentNode(intent, intentPath)

	rt.printf("\n%s %s\n", pterm.LightCyan("Generating questions for intent:"), intent)
	rt.printf("%s\n\n", pterm.Gray(fmt.Sprintf("Generating %d diverse questions...", count)))

	var spinner *pterm.SpinnerPrinter
	if !rt.json {
		spinner, _ = pterm.DefaultSpinner.Start("Generating questions...")
	}
	qd := distill.NewQuestionDistiller(rt.gen, rt.opts)
	questions, err := qd.DistillQuestions(cmd.Context(), node, count, existing)
	if err == nil && variations > 0 {
		questions, err = qd.AugmentWithVariations(cmd.Context(), questions, variations)
	}
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	if output != "" {
		if err := writeResults(output, questions); err != nil {
			return err
		}
	}

	if rt.json {
		return display.OutputJSON(questions)
	}

	pterm.Success.Println("Generated questions:")
	for i, q := range questions[:min(len(questions), previewLimit)] {
		pterm.Printf("  %d. %s\n", i+1, q.Question)
	}
	if len(questions) > previewLimit {
		pterm.Printf("\n  %s\n", pterm.Gray(fmt.Sprintf("... and %d more", len(questions)-previewLimit)))
	}
	if output != "" {
		pterm.Printf("\n%s\n", pterm.Green(fmt.Sprintf("Saved %d questions to %s", len(questions), output)))
	} else {
		pterm.Printf("\n%s\n", pterm.Yellow("Use --output to save questions"))
	}
	return nil
}

// LoadExistingQuestions reads question texts from a JSON array of strings,
// or from JSON/JSONL records carrying a "question" field.
func LoadExistingQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read existing questions %s", path)
	}
	var plain []string
	if json.Unmarshal(data, &plain) == nil {
		return plain, nil
	}

	records, err := export.Load(path)
	if err != nil {
		return nil, errors.WithHint(err, "use a JSON array of strings or records with a \"question\" field")
	}
	questions := make([]string, 0, len(records))
	for _, r := range records {
		if q, ok := r["question"].(string); ok && q != "" {
			questions = append(questions, q)
		}
	}
	return questions, nil
}
