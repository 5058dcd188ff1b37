package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

var globalConfig *Config
var viperInstance *viper.Viper

// projectConfigNames are searched in each directory, in preference order
var projectConfigNames = []string{"distill.toml", "distill.yaml", "config.toml", "config.yaml"}

// Load reads the distill configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance.
// Environment references in string values are expanded before unmarshalling.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	substituteEnv(v, logger.Logger)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
// The format is inferred from the extension (toml, yaml, yml, json).
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(configPath)
	if ext := strings.TrimPrefix(filepath.Ext(configPath), "."); ext == "" {
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}

	viperInstance = v
	globalConfig = config
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// newViper returns a Viper with defaults and environment bindings but no files
func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("DISTILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)
	return v
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := newViper()

	// Merge configs in precedence order: user -> project -> env vars
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// FindProjectConfig searches for a project config by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range projectConfigNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// UserConfigPath returns ~/.distill/config.toml
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".distill", "config.toml")
}

// ConfigSources lists the config files that exist, lowest precedence first
func ConfigSources() []string {
	var sources []string
	for _, path := range []string{UserConfigPath(), FindProjectConfig()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			sources = append(sources, path)
		}
	}
	return sources
}

// mergeConfigFiles merges configuration files in the correct precedence order
// Precedence (lowest to highest): user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	for _, configPath := range ConfigSources() {
		tempViper := viper.New()
		tempViper.SetConfigFile(configPath)

		if err := tempViper.ReadInConfig(); err != nil {
			logger.Warnw("Skipping unreadable config file", logger.FieldFile, configPath, logger.FieldError, err)
			continue
		}
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			logger.Warnw("Failed to merge config file", logger.FieldFile, configPath, logger.FieldError, err)
		}
	}
}
