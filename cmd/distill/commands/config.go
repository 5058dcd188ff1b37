package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/distill/ai/provider"
	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage distill configuration",
	Long: `Display and validate distill configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (DISTILL_* prefix)
3. Project config (./distill.toml, ./distill.yaml, ./config.toml or ./config.yaml)
4. User config (~/.distill/config.toml)
5. Default values

String values may reference the environment as ${VAR} or ${VAR:default}.

Examples:
  distill config show                 # Show current configuration
  distill config show --format yaml   # Show configuration as YAML
  distill config validate             # Validate current configuration
  distill config where                # List configuration files`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the merged configuration from all sources. API keys are masked.",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which are missing.`,
	RunE: runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := LoadConfig(cmd); err != nil {
		return err
	}
	settings := maskSecrets(config.GetViper().AllSettings())

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Printf("# distill configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Printf("# distill configuration\n%s", string(data))

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	pterm.Success.Println("Configuration is valid")

	available := provider.Available(cfg)
	for _, name := range cfg.ProviderNames() {
		entry := cfg.LLM.Providers[name]
		status := pterm.Yellow("no API key")
		for _, a := range available {
			if a == name {
				status = pterm.Green("ready")
			}
		}
		marker := ""
		if name == cfg.LLM.Default {
			marker = " (default)"
		}
		pterm.Printf("  %s%s: %s via %s [%s]\n", name, marker, entry.Model, entry.Kind, status)
	}
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	pterm.Println("Configuration sources (lowest precedence first):")

	explicit, _ := cmd.Flags().GetString("config")
	candidates := []struct{ label, path string }{
		{"user", config.UserConfigPath()},
		{"project", config.FindProjectConfig()},
	}
	if explicit != "" {
		candidates = []struct{ label, path string }{{"--config", explicit}}
	}

	for _, c := range candidates {
		switch {
		case c.path == "":
			pterm.Printf("  %-8s %s\n", c.label, pterm.Gray("(none found)"))
		case fileExists(c.path):
			pterm.Printf("  %-8s %s %s\n", c.label, c.path, pterm.Green("✓"))
		default:
			pterm.Printf("  %-8s %s %s\n", c.label, c.path, pterm.Gray("(missing)"))
		}
	}
	pterm.Printf("  %-8s %s\n", "env", "DISTILL_* variables")
	return nil
}

// maskSecrets replaces non-empty api_key values at any depth
func maskSecrets(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = maskSecrets(val)
		case string:
			if k == "api_key" && val != "" {
				out[k] = maskKey(val)
			} else {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
