package display

import (
	"encoding/json"
	"flag"
)

// MarshalJSON marshals JSON with compact formatting for agent callers,
// pretty formatting for human-readable output
func MarshalJSON(v interface{}) ([]byte, error) {
	// Always pretty under go test
	if flag.Lookup("test.v") != nil {
		return json.MarshalIndent(v, "", "  ")
	}

	if IsAgentEnvironment() {
		return json.Marshal(v)
	}

	return json.MarshalIndent(v, "", "  ")
}
