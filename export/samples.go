package export

import (
	"fmt"
	"strings"
)

// contextTurns is how many preceding turns an intent-classification sample carries
const contextTurns = 4

// AlpacaSample is an instruction-tuning record
type AlpacaSample struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// Message is one role-tagged message in a ShareGPT sample
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ShareGPTSample is a chat-tuning record
type ShareGPTSample struct {
	Messages []Message `json:"messages"`
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type turn struct {
	role    string
	content string
	intent  string
}

// IsConversation reports whether r is a conversation record
func IsConversation(r Record) bool {
	_, ok := r["turns"].([]any)
	return ok
}

// isQuestion reports whether r carries both a question and its intent
func isQuestion(r Record) bool {
	_, q := r["question"]
	_, i := r["intent"]
	return q && i
}

// ToAlpaca converts records into Alpaca samples. Question records map the
// question to the input and the intent to the output; records that are
// neither questions nor conversations are skipped.
func ToAlpaca(records []Record, systemPrompt string, mode Mode) []AlpacaSample {
	instruction := systemPrompt
	if instruction == "" {
		instruction = DefaultInstruction
	}

	var samples []AlpacaSample
	for _, r := range records {
		if !IsConversation(r) {
			if !isQuestion(r) {
				continue
			}
			samples = append(samples, AlpacaSample{
				Instruction: instruction,
				Input:       stringField(r, "question"),
				Output:      stringField(r, "intent"),
			})
			continue
		}

		turns := turnsOf(r)
		if mode == ModeConversation {
			last := lastAssistant(turns)
			if last < 0 {
				continue
			}
			samples = append(samples, AlpacaSample{
				Instruction: instruction,
				Input:       transcript(turns[:last]),
				Output:      turns[last].content,
			})
			continue
		}

		for i, t := range turns {
			if t.role != RoleUser || t.intent == "" {
				continue
			}
			samples = append(samples, AlpacaSample{
				Instruction: instruction,
				Input:       classificationInput(turns, i),
				Output:      t.intent,
			})
		}
	}
	return samples
}

// ToShareGPT converts records into ShareGPT samples, prefixed with a system
// message when systemPrompt is set.
func ToShareGPT(records []Record, systemPrompt string, mode Mode) []ShareGPTSample {
	start := func() []Message {
		if systemPrompt == "" {
			return nil
		}
		return []Message{{Role: RoleSystem, Content: systemPrompt}}
	}

	var samples []ShareGPTSample
	for _, r := range records {
		if !IsConversation(r) {
			if !isQuestion(r) {
				continue
			}
			msgs := append(start(),
				Message{Role: RoleUser, Content: stringField(r, "question")},
				Message{Role: RoleAssistant, Content: stringField(r, "intent")},
			)
			samples = append(samples, ShareGPTSample{Messages: msgs})
			continue
		}

		turns := turnsOf(r)
		if mode == ModeConversation {
			msgs := start()
			for _, t := range turns {
				role := RoleUser
				if t.role == RoleAssistant {
					role = RoleAssistant
				}
				msgs = append(msgs, Message{Role: role, Content: t.content})
			}
			if len(turns) > 0 {
				samples = append(samples, ShareGPTSample{Messages: msgs})
			}
			continue
		}

		for i, t := range turns {
			if t.role != RoleUser || t.intent == "" {
				continue
			}
			msgs := append(start(),
				Message{Role: RoleUser, Content: classificationInput(turns, i)},
				Message{Role: RoleAssistant, Content: t.intent},
			)
			samples = append(samples, ShareGPTSample{Messages: msgs})
		}
	}
	return samples
}

// classificationInput renders the user turn at i with up to contextTurns
// preceding turns as history.
func classificationInput(turns []turn, i int) string {
	history := turns[max(0, i-contextTurns):i]
	if len(history) == 0 {
		return turns[i].content
	}
	return fmt.Sprintf("Conversation history:\n%s\n\nCurrent query: %s", transcript(history), turns[i].content)
}

func transcript(turns []turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		role := t.role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		lines[i] = role + ": " + t.content
	}
	return strings.Join(lines, "\n")
}

func lastAssistant(turns []turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].role == RoleAssistant {
			return i
		}
	}
	return -1
}

func turnsOf(r Record) []turn {
	raw, _ := r["turns"].([]any)
	turns := make([]turn, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		turns = append(turns, turn{
			role:    stringField(m, "role"),
			content: stringField(m, "content"),
			intent:  stringField(m, "intent"),
		})
	}
	return turns
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
