package config

import (
	"os"
	"regexp"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// envPattern matches ${VAR_NAME} and ${VAR_NAME:default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// ExpandEnv substitutes ${VAR} and ${VAR:default} references in s.
// Unset variables without a default expand to the empty string and are
// reported through missing.
func ExpandEnv(s string, missing func(name string)) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		if def == "" && missing != nil {
			missing(name)
		}
		return def
	})
}

// substituteEnv expands environment references in every string setting.
// Lists of strings are expanded element-wise.
func substituteEnv(v *viper.Viper, log *zap.SugaredLogger) {
	missing := func(name string) {
		if log != nil {
			log.Debugw("Environment variable not set and no default provided", "variable", name)
		}
	}
	for _, key := range v.AllKeys() {
		switch val := v.Get(key).(type) {
		case string:
			if expanded := ExpandEnv(val, missing); expanded != val {
				v.Set(key, expanded)
			}
		case []interface{}:
			changed := false
			out := make([]interface{}, len(val))
			for i, item := range val {
				out[i] = item
				if s, ok := item.(string); ok {
					if expanded := ExpandEnv(s, missing); expanded != s {
						out[i] = expanded
						changed = true
					}
				}
			}
			if changed {
				v.Set(key, out)
			}
		}
	}
}
