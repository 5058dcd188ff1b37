package display

import "os"

// IsAgentEnvironment reports whether distill is being driven by a coding agent
// rather than a person at a terminal. DISTILL_CALLER=llm forces it on.
func IsAgentEnvironment() bool {
	if os.Getenv("DISTILL_CALLER") == "llm" {
		return true
	}
	for _, key := range []string{"CLAUDECODE", "CLAUDE_CODE_ENTRYPOINT", "CURSOR", "GITHUB_COPILOT"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}
