package display

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/distill/errors"
)

// ShouldOutputJSON determines if a command should output JSON based on flags and agent detection
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return IsAgentEnvironment()
	}

	// Check if --json flag was explicitly set
	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	// Check global --json flag
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return IsAgentEnvironment()
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Println(string(data))
	return nil
}
