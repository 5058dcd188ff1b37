// Package commands implements the distill CLI.
package commands

import (
	"database/sql"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/distill/ai/provider"
	"github.com/teranos/distill/config"
	"github.com/teranos/distill/db"
	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/export"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/prompts"
)

// LoadConfig reads the file named by --config, or the merged user and
// project configuration when the flag is empty, and validates it.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Verbosity returns the -v count
func Verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

// runtime bundles what a generation command needs
type runtime struct {
	cfg       *config.Config
	gen       distill.Generator
	db        *sql.DB
	opts      distill.Options
	json      bool
	verbosity int
}

// generationFlags are shared by every command that calls the model
func generationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("language", "l", "en", "Language (en/zh)")
	cmd.Flags().StringP("model", "m", "", "Provider key from llm.providers (default: llm.default)")
	cmd.Flags().Int("workers", 1, "Concurrent LLM requests")
	cmd.Flags().Uint64("seed", 0, "Random seed for reproducible sampling (0 = random)")
}

// newRuntime loads configuration and builds the requester, usage DB and
// distiller options from flags, falling back to configured defaults.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	verbosity := Verbosity(cmd)
	log := logger.Logger

	lang, err := prompts.ParseLanguage(stringFlag(cmd, "language", cfg.Generation.Language))
	if err != nil {
		return nil, err
	}

	var usageDB *sql.DB
	if cfg.Usage.DBPath != "" {
		usageDB, err = db.OpenWithMigrations(cfg.Usage.DBPath, log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open usage database")
		}
	}

	model, _ := cmd.Flags().GetString("model")
	gen, err := provider.NewRequester(cfg, provider.Options{
		Model:     model,
		DB:        usageDB,
		Logger:    log,
		Verbosity: verbosity,
	})
	if err != nil {
		if usageDB != nil {
			usageDB.Close()
		}
		return nil, err
	}

	rt := &runtime{
		cfg:       cfg,
		gen:       gen,
		db:        usageDB,
		json:      display.ShouldOutputJSON(cmd),
		verbosity: verbosity,
	}
	rt.opts = distill.Options{
		Language: lang,
		Workers:  intFlag(cmd, "workers", cfg.Generation.Workers),
		Logger:   log,
		Progress: rt.emitter(),
	}
	if seed := uint64Flag(cmd, "seed", cfg.Generation.Seed); seed != 0 {
		rt.opts.Rand = rand.New(rand.NewPCG(seed, seed))
		log.Infow("Using fixed seed", "seed", seed)
	}
	return rt, nil
}

func (rt *runtime) emitter() distill.ProgressEmitter {
	if rt.json {
		return display.NewJSONEmitter(os.Stderr)
	}
	return display.NewCLIEmitter(rt.verbosity)
}

func (rt *runtime) Close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			logger.Warnw("Failed to close usage database", logger.FieldError, err)
		}
	}
}

// printf writes human-facing output; it is silent in JSON mode
func (rt *runtime) printf(format string, args ...interface{}) {
	if !rt.json {
		pterm.Printf(format, args...)
	}
}

func (rt *runtime) log() *zap.SugaredLogger {
	return logger.OrNop(rt.opts.Logger)
}

// writeResults saves items as JSON lines when path ends in .jsonl and as a
// JSON array otherwise.
func writeResults[T any](path string, items []T) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if strings.HasSuffix(path, ".jsonl") {
		return export.WriteJSONL(path, items)
	}
	return export.WriteJSON(path, items)
}

func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return fallback
}

func uint64Flag(cmd *cobra.Command, name string, fallback uint64) uint64 {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetUint64(name)
		return v
	}
	return fallback
}

func floatFlag(cmd *cobra.Command, name string, fallback float64) float64 {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetFloat64(name)
		return v
	}
	return fallback
}

func boolFlag(cmd *cobra.Command, name string, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}
	return fallback
}
