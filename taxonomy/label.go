package taxonomy

import "strings"

// ParseLabel splits a generated tag label into its ordinal and name.
//
// The label is trimmed and split on the first space. When that yields two
// parts the first is the number and the second the name; otherwise the whole
// label is the name. A label such as "Refund Request" therefore parses as
// number "Refund", name "Request". This matches how existing taxonomies were
// numbered and is kept as is.
func ParseLabel(label string) (number, name string) {
	label = strings.TrimSpace(label)
	if number, name, ok := strings.Cut(label, " "); ok {
		return number, name
	}
	return "", label
}
