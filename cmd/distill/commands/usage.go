package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/db"
	"github.com/teranos/distill/display"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

// UsageCmd reports recorded LLM usage
var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show LLM token usage and cost",
	Long: `Summarize LLM requests recorded in the usage database.

Tracking is enabled by setting usage.db_path (or DISTILL_USAGE_DB).

Examples:
  distill usage                 # Last 30 days
  distill usage --since 24h     # Last day
  distill usage --db runs.db    # Read a specific database`,
	RunE: runUsage,
}

func init() {
	UsageCmd.Flags().Duration("since", 30*24*time.Hour, "Report window")
	UsageCmd.Flags().String("db", "", "Usage database path (default: usage.db_path)")
}

// usageReport is the JSON form of the usage command
type usageReport struct {
	Since      time.Time                    `json:"since"`
	Stats      *tracker.UsageStats          `json:"stats"`
	Models     []tracker.ModelBreakdown     `json:"models"`
	Operations []tracker.OperationBreakdown `json:"operations"`
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	path := stringFlag(cmd, "db", cfg.Usage.DBPath)
	if path == "" {
		return errors.WithHint(
			errors.NewConfigError("usage tracking is not enabled"),
			"set usage.db_path in your config or DISTILL_USAGE_DB, then rerun generation")
	}

	conn, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	window, _ := cmd.Flags().GetDuration("since")
	since := time.Now().Add(-window)
	t := tracker.NewUsageTracker(conn)

	report := usageReport{Since: since}
	if report.Stats, err = t.GetUsageStats(since); err != nil {
		return err
	}
	if report.Models, err = t.GetModelBreakdown(since); err != nil {
		return err
	}
	if report.Operations, err = t.GetOperationBreakdown(since); err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(report)
	}

	pterm.DefaultSection.Printf("LLM usage since %s", since.Format("2006-01-02 15:04"))
	if report.Stats.TotalRequests == 0 {
		pterm.Info.Println("No requests recorded")
		return nil
	}
	pterm.Printf("Success rate: %.1f%%  Models: %d\n\n", report.Stats.SuccessRate*100, report.Stats.UniqueModels)
	if err := display.PrintTable(display.UsageTable(report.Stats, report.Models)); err != nil {
		return err
	}
	pterm.Println()
	return display.PrintTable(display.OperationTable(report.Operations))
}
