package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/config"
	"github.com/teranos/distill/display"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/export"
	"github.com/teranos/distill/logger"
)

// ExportCmd converts generated results into training datasets
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export generated results to a training format",
	Long: `Export question or conversation results to a training format.

Formats: alpaca, sharegpt, json, jsonl, csv.

Conversation records are exploded by --mode:
  intent-classification  one sample per labeled user turn, with up to
                         4 preceding turns as context (default)
  conversation           one sample per conversation

Examples:
  distill export -i banking.jsonl -o train.json -f alpaca
  distill export -i convs.jsonl -o chat.json -f sharegpt --mode conversation --split 0.9`,
	RunE: runExport,
}

func init() {
	ExportCmd.Flags().StringP("input", "i", "", "Input results file (.jsonl or JSON array)")
	ExportCmd.Flags().StringP("output", "o", "", "Output dataset file")
	ExportCmd.Flags().StringP("format", "f", "alpaca", "Export format (alpaca/sharegpt/json/jsonl/csv)")
	ExportCmd.Flags().Float64("split", 0, "Train/test split ratio (e.g., 0.8)")
	ExportCmd.Flags().String("system-prompt", "", "System prompt for training data")
	ExportCmd.Flags().String("mode", "", "Export mode for conversations (intent-classification/conversation)")
	_ = ExportCmd.MarkFlagRequired("input")
	_ = ExportCmd.MarkFlagRequired("output")
}

// exportResult reports the files an export wrote
type exportResult struct {
	Loaded int            `json:"loaded"`
	Files  map[string]int `json:"files"`
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	split, _ := cmd.Flags().GetFloat64("split")
	mode, _ := cmd.Flags().GetString("mode")
	opts := export.Options{
		Format:       format,
		SystemPrompt: stringFlag(cmd, "system-prompt", cfg.Export.SystemPrompt),
		Mode:         export.Mode(mode),
		Logger:       logger.Logger.Named("export"),
	}
	if !config.IsExportFormat(format) {
		return errors.WithHintf(
			errors.Mark(errors.Newf("unsupported export format: %s", format), errors.ErrUnsupportedFormat),
			"supported formats: %v", config.ExportFormats)
	}
	if split < 0 || split >= 1 {
		return errors.NewConfigError("--split must be in (0, 1), got %g", split)
	}

	records, err := export.Load(input)
	if err != nil {
		return err
	}
	jsonOut := display.ShouldOutputJSON(cmd)
	if !jsonOut {
		pterm.Printf("Loaded %d samples\n", len(records))
	}

	result := exportResult{Loaded: len(records), Files: map[string]int{}}
	if split > 0 {
		train, test := export.Split(records, split)
		trainPath, testPath := export.SplitPaths(output)
		nTrain, err := export.Export(train, trainPath, opts)
		if err != nil {
			return err
		}
		nTest, err := export.Export(test, testPath, opts)
		if err != nil {
			return err
		}
		result.Files[trainPath] = nTrain
		result.Files[testPath] = nTest
		if !jsonOut {
			pterm.Println(pterm.Green(fmt.Sprintf("Train set (%d samples): %s", nTrain, trainPath)))
			pterm.Println(pterm.Green(fmt.Sprintf("Test set (%d samples): %s", nTest, testPath)))
		}
	} else {
		n, err := export.Export(records, output, opts)
		if err != nil {
			return err
		}
		result.Files[output] = n
		if !jsonOut {
			pterm.Println(pterm.Green(fmt.Sprintf("Exported %d samples to %s", n, output)))
		}
	}

	if jsonOut {
		return display.OutputJSON(result)
	}
	return nil
}
