package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/internal/util"
)

// fencePattern matches ```json ... ``` and bare ``` ... ``` blocks
var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSON recovers a JSON value from a completion.
// It tries, in order: the whole text, each fenced code block, and the first
// complete object or array embedded in the text. Returns ErrNoJSON when
// nothing parses.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.Wrap(errors.ErrNoJSON, "empty response")
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	for _, match := range fencePattern.FindAllStringSubmatch(trimmed, -1) {
		block := strings.TrimSpace(match[1])
		if json.Valid([]byte(block)) {
			return json.RawMessage(block), nil
		}
	}

	// Try each '{' or '[' as the start of an embedded value; the decoder
	// stops at the end of the first complete value.
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != '{' && trimmed[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(trimmed[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return bytes.TrimSpace(raw), nil
		}
	}

	return nil, errors.Wrapf(errors.ErrNoJSON, "could not extract JSON from response: %s", util.Truncate(trimmed, 200))
}
