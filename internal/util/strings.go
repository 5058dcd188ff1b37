package util

// Truncate shortens s to at most n runes, appending "..." when cut.
// Used to keep prompts and completions readable in debug logs.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
