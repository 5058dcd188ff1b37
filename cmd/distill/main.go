package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/distill/cmd/distill/commands"
	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "distill - Synthetic intent data through knowledge distillation",
	Long: `distill - Generate intent-classification training data with an LLM.

distill builds an intent taxonomy for a topic, then generates labeled
user questions or multi-turn conversations for its intents, and exports
them to training formats.

Available commands:
  tags          - Generate sub-intents for one parent intent
  questions     - Generate questions for one intent
  auto          - Taxonomy + questions pipeline
  conversations - Taxonomy + multi-turn conversations pipeline
  export        - Convert results to alpaca/sharegpt/json/jsonl/csv
  taxonomy      - Inspect saved taxonomies
  config        - Show and validate configuration
  usage         - Show LLM token usage and cost

Examples:
  distill auto -t "Online Banking" -o banking.jsonl --export-taxonomy tree.json
  distill conversations -t "Telecom Support" -o convs.jsonl
  distill export -i banking.jsonl -o train.json -f alpaca --split 0.9`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(cmd)
	},
}

// initLogging configures the global logger from the log section and -v.
// A config that fails to load still gets console logging; the command
// reports the config error itself.
func initLogging(cmd *cobra.Command) error {
	opts := logger.Options{Verbosity: commands.Verbosity(cmd)}
	if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
		opts.JSON = true
	}

	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err == nil {
		opts.JSON = opts.JSON || cfg.Log.JSON
		opts.File = cfg.Log.File
		opts.MaxSizeMB = cfg.Log.MaxSizeMB
		opts.MaxBackups = cfg.Log.MaxBackups
		opts.Theme = cfg.Log.Theme
	}

	if err := logger.Initialize(opts); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./distill.toml, ~/.distill/config.toml)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results and progress as JSON")

	rootCmd.AddCommand(commands.TagsCmd)
	rootCmd.AddCommand(commands.QuestionsCmd)
	rootCmd.AddCommand(commands.AutoCmd)
	rootCmd.AddCommand(commands.ConversationsCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.TaxonomyCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.UsageCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
