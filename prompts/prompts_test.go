package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/errors"
)

func TestParseLanguage(t *testing.T) {
	lang, err := ParseLanguage("EN")
	require.NoError(t, err)
	assert.Equal(t, English, lang)

	lang, err = ParseLanguage("zh")
	require.NoError(t, err)
	assert.Equal(t, Chinese, lang)

	lang, err = ParseLanguage("")
	require.NoError(t, err)
	assert.Equal(t, English, lang)

	_, err = ParseLanguage("fr")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestTags(t *testing.T) {
	prompt, err := Tags(English, TagsData{ParentIntent: "Account", Count: 5, IntentPath: "Support -> 1 Account"})
	require.NoError(t, err)
	assert.Contains(t, prompt, `Generate 5 professional sub-intent tags for the topic "Account"`)
	assert.Contains(t, prompt, "The full intent chain is: Support -> 1 Account")
	assert.NotContains(t, prompt, "## Existing Tags:")

	prompt, err = Tags(English, TagsData{ParentIntent: "Account", Count: 3, ExistingTags: []string{"Password Reset", "Login"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, "The full intent chain is: Account")
	assert.Contains(t, prompt, "Existing sub-tags include: Password Reset, Login")

	prompt, err = Tags(Chinese, TagsData{ParentIntent: "账户", Count: 4, ExistingTags: []string{"密码重置"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, `为主题"账户"生成4个专业的子意图标签`)
	assert.Contains(t, prompt, "已有的子标签包括：密码重置")
}

func TestQuestions_TruncatesExisting(t *testing.T) {
	existing := make([]string, 15)
	for i := range existing {
		existing[i] = fmt.Sprintf("existing question %02d", i+1)
	}

	prompt, err := Questions(English, QuestionsData{CurrentIntent: "Password Reset", Count: 20, Existing: existing})
	require.NoError(t, err)
	assert.Contains(t, prompt, "- existing question 10\n")
	assert.NotContains(t, prompt, "existing question 11")
	assert.Equal(t, MaxExistingQuestions, strings.Count(prompt, "- existing question"))
	assert.Contains(t, prompt, "The full intent chain is: Password Reset")
}

func TestAssistantReply(t *testing.T) {
	data := ReplyData{
		Scenario:      "Bank support",
		RoleUser:      "Customer",
		RoleAssistant: "Agent",
		CurrentIntent: "Card Loss",
		IntentPath:    "Banking -> Cards -> Card Loss",
		History:       "User: I lost my card",
		CurrentTurn:   2,
		TotalTurns:    4,
	}
	prompt, err := AssistantReply(English, data)
	require.NoError(t, err)
	assert.Contains(t, prompt, "This is turn 2 of conversation (total 4 turns)")
	assert.Contains(t, prompt, "- Agent: Assistant (your role)")
	assert.Contains(t, prompt, `"content": "Your complete response as Agent"`)

	prompt, err = AssistantReply(Chinese, data)
	require.NoError(t, err)
	assert.Contains(t, prompt, "这是对话的第 2 轮（总共 4 轮）")
}

func TestNextQuestion(t *testing.T) {
	data := NextQuestionData{
		Scenario:       "Bank support",
		RoleUser:       "User",
		RoleAssistant:  "Assistant",
		PrimaryIntent:  "Card Loss",
		RelatedIntents: "Card Activation, PIN Change",
		IntentPath:     "Banking -> Cards -> Card Loss",
		History:        "User: hi\nAssistant: hello",
		NextTurn:       3,
		TotalTurns:     8,
		TransitionRate: 0.29,
	}
	prompt, err := NextQuestion(English, data)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Related Intents: Card Activation, PIN Change")
	assert.Contains(t, prompt, "About to start turn 3 of conversation (total 8 turns)")
	assert.Contains(t, prompt, "Intent transition probability: 28%")
}

func TestTransitionPercent(t *testing.T) {
	assert.Equal(t, 30, NextQuestionData{TransitionRate: 0.3}.TransitionPercent())
	assert.Equal(t, 0, NextQuestionData{}.TransitionPercent())
	assert.Equal(t, 100, NextQuestionData{TransitionRate: 1}.TransitionPercent())
}

func TestUnknownLanguage(t *testing.T) {
	_, err := Tags(Language("fr"), TagsData{ParentIntent: "x", Count: 1})
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, Roles{User: "User", Assistant: "Assistant"}, DefaultRoles(English))
	assert.Equal(t, Roles{User: "用户", Assistant: "助手"}, DefaultRoles(Chinese))
	assert.Contains(t, DefaultScenario(English), "customer support")
	assert.Equal(t, DefaultScenario(English), DefaultScenario("fr"))

	en := InitialQuestions(English, "Password Reset")
	require.Len(t, en, 4)
	assert.Equal(t, "How do I password reset?", en[0])

	zh := InitialQuestions(Chinese, "重置密码")
	require.Len(t, zh, 4)
	assert.Equal(t, "能帮我重置密码吗？", zh[1])
}
