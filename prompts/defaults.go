package prompts

import (
	"fmt"
	"strings"
)

var defaultScenarios = map[Language]string{
	English: "A helpful customer support conversation where users seek assistance and the assistant provides professional guidance.",
	Chinese: "一个有帮助的客户支持对话，用户寻求帮助，助手提供专业指导。",
}

// Roles names the two conversation participants
type Roles struct {
	User      string
	Assistant string
}

var defaultRoles = map[Language]Roles{
	English: {User: "User", Assistant: "Assistant"},
	Chinese: {User: "用户", Assistant: "助手"},
}

// DefaultScenario returns the built-in conversation scenario for lang
func DefaultScenario(lang Language) string {
	if s, ok := defaultScenarios[lang]; ok {
		return s
	}
	return defaultScenarios[English]
}

// DefaultRoles returns the built-in role labels for lang
func DefaultRoles(lang Language) Roles {
	if r, ok := defaultRoles[lang]; ok {
		return r
	}
	return defaultRoles[English]
}

// InitialQuestions returns the phrasings used to open a conversation about intent.
// English phrasings use the lowercased intent name.
func InitialQuestions(lang Language, intent string) []string {
	if lang == Chinese {
		return []string{
			fmt.Sprintf("如何%s？", intent),
			fmt.Sprintf("能帮我%s吗？", intent),
			fmt.Sprintf("我需要%s方面的帮助", intent),
			fmt.Sprintf("%s的流程是什么？", intent),
		}
	}
	lower := strings.ToLower(intent)
	return []string{
		fmt.Sprintf("How do I %s?", lower),
		fmt.Sprintf("Can you help me with %s?", lower),
		fmt.Sprintf("I need assistance with %s", lower),
		fmt.Sprintf("What's the process for %s?", lower),
	}
}
