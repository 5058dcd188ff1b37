// Package prompts renders the LLM prompt templates used by the distillers.
// Every template exists in English and Chinese.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/teranos/distill/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Language selects a template set
type Language string

const (
	English Language = "en"
	Chinese Language = "zh"
)

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English, "":
		return English, nil
	case Chinese:
		return Chinese, nil
	default:
		return "", errors.WithHint(
			errors.NewConfigError("unsupported language %q", s),
			"use en or zh")
	}
}

// MaxExistingQuestions bounds how many existing questions are shown to the model
const MaxExistingQuestions = 10

// System prompts for the conversation turn requests
const (
	ReplySystemPrompt        = "You are a helpful assistant generating natural conversation responses."
	NextQuestionSystemPrompt = "You are generating natural follow-up questions in a conversation."
)

// TagsData parameterizes the sub-intent tag prompt
type TagsData struct {
	ParentIntent string
	Count        int
	IntentPath   string   // Defaults to ParentIntent
	ExistingTags []string // Sibling names the model should not repeat
}

// Tags renders the sub-intent tag prompt
func Tags(lang Language, data TagsData) (string, error) {
	if data.IntentPath == "" {
		data.IntentPath = data.ParentIntent
	}
	return render("tags", lang, data)
}

// QuestionsData parameterizes the question prompt
type QuestionsData struct {
	CurrentIntent string
	Count         int
	IntentPath    string   // Defaults to CurrentIntent
	Existing      []string // Only the first MaxExistingQuestions are rendered
}

// Questions renders the question prompt
func Questions(lang Language, data QuestionsData) (string, error) {
	if data.IntentPath == "" {
		data.IntentPath = data.CurrentIntent
	}
	if len(data.Existing) > MaxExistingQuestions {
		data.Existing = data.Existing[:MaxExistingQuestions]
	}
	return render("questions", lang, data)
}

// ReplyData parameterizes the assistant reply prompt
type ReplyData struct {
	Scenario      string
	RoleUser      string
	RoleAssistant string
	CurrentIntent string
	IntentPath    string
	History       string
	CurrentTurn   int
	TotalTurns    int
}

// AssistantReply renders the assistant reply prompt
func AssistantReply(lang Language, data ReplyData) (string, error) {
	return render("reply", lang, data)
}

// NextQuestionData parameterizes the follow-up question prompt
type NextQuestionData struct {
	Scenario       string
	RoleUser       string
	RoleAssistant  string
	PrimaryIntent  string
	RelatedIntents string // Comma separated names, or "None"
	IntentPath     string
	History        string
	NextTurn       int
	TotalTurns     int
	TransitionRate float64 // Probability in [0,1]
}

// TransitionPercent is the transition rate as a truncated whole percentage
func (d NextQuestionData) TransitionPercent() int {
	return int(d.TransitionRate * 100)
}

// NextQuestion renders the follow-up question prompt
func NextQuestion(lang Language, data NextQuestionData) (string, error) {
	return render("next_question", lang, data)
}

func render(kind string, lang Language, data any) (string, error) {
	if lang == "" {
		lang = English
	}
	name := fmt.Sprintf("%s_%s.tmpl", kind, lang)
	tmpl := templates.Lookup(name)
	if tmpl == nil {
		return "", errors.Newf("no %s prompt for language %q", kind, lang)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s prompt", kind)
	}
	return buf.String(), nil
}
