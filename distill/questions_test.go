package distill

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/taxonomy"
)

func TestDistillQuestions_Records(t *testing.T) {
	node := taxonomy.FromPath("Support -> 1 Account -> 1.2 Password Reset")
	gen := fixed(`{"questions": ["forgot my password", "how do I reset my password?"]}`)
	d := NewQuestionDistiller(gen, testOptions())

	questions, err := d.DistillQuestions(context.Background(), node, 2, nil)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	q := questions[1]
	assert.Equal(t, "how do I reset my password?", q.Question)
	assert.Equal(t, "Password Reset", q.Intent)
	assert.Equal(t, "1.2", q.IntentNumber)
	assert.Equal(t, "1.2 Password Reset", q.IntentFullName)
	assert.Equal(t, "Support -> Account -> Password Reset", q.IntentPath)
	assert.Equal(t, "Support -> 1 Account -> 1.2 Password Reset", q.IntentNumberedPath)
	assert.Equal(t, []string{"Support", "Account", "Password Reset"}, q.IntentHierarchy)
	assert.Equal(t, 2, q.QuestionIndex)
	assert.Equal(t, "2025-03-14T09:26:53.589793Z", q.Timestamp)
	assert.False(t, q.IsVariation)

	assert.Contains(t, gen.prompts[0], `user questions for the intent "Password Reset"`)
	assert.Contains(t, gen.prompts[0], "The full intent chain is: Support -> 1 Account -> 1.2 Password Reset")
}

func TestDistillQuestions_ExistingTruncatedToTen(t *testing.T) {
	node := taxonomy.NewNode("Billing", "1", taxonomy.NewNode("Support", "", nil))
	gen := fixed(`["new question"]`)
	d := NewQuestionDistiller(gen, testOptions())

	existing := make([]string, 12)
	for i := range existing {
		existing[i] = fmt.Sprintf("old question #%d", i+1)
	}
	_, err := d.DistillQuestions(context.Background(), node, 1, existing)
	require.NoError(t, err)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "- old question #10\n")
	assert.NotContains(t, prompt, "old question #11")
	assert.NotContains(t, prompt, "old question #12")
	assert.Equal(t, 10, strings.Count(prompt, "- old question #"))
}

func TestDistillQuestions_MalformedIsHardFailure(t *testing.T) {
	node := taxonomy.NewNode("Billing", "", nil)
	d := NewQuestionDistiller(fixed(`{"items": ["a"]}`), testOptions())

	_, err := d.DistillQuestions(context.Background(), node, 1, nil)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedResponse(err))
}

func TestDistillQuestionsForTree(t *testing.T) {
	root := taxonomy.NewNode("Support", "", nil)
	billing := taxonomy.NewNode("Billing", "1", root)
	taxonomy.NewNode("Refunds", "1.1", billing)
	taxonomy.NewNode("Invoices", "1.2", billing)
	taxonomy.NewNode("Shipping", "2", root)

	gen := newStub(func(prompt, _ string) (string, error) {
		if strings.Contains(prompt, `intent "Invoices"`) {
			return `{"unexpected": true}`, nil
		}
		return `["q1", "q2"]`, nil
	})

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			opts := testOptions()
			opts.Workers = workers
			d := NewQuestionDistiller(gen, opts)

			questions, err := d.DistillQuestionsForTree(context.Background(), root, 2, true)
			require.NoError(t, err)
			require.Len(t, questions, 4, "Invoices fails and is skipped")
			assert.Equal(t, "Refunds", questions[0].Intent)
			assert.Equal(t, "Refunds", questions[1].Intent)
			assert.Equal(t, "Shipping", questions[2].Intent)
			assert.Equal(t, 1, questions[2].QuestionIndex)
		})
	}

	d := NewQuestionDistiller(gen, testOptions())
	all, err := d.DistillQuestionsForTree(context.Background(), root, 2, false)
	require.NoError(t, err)
	assert.Len(t, all, 8, "five nodes minus the failing one")
	assert.Equal(t, "Support", all[0].Intent)
}

func TestAugmentWithVariations(t *testing.T) {
	gen := newStub(func(prompt, _ string) (string, error) {
		switch {
		case strings.Contains(prompt, `"broken"`):
			return "", errors.New("rate limited")
		case strings.Contains(prompt, `"odd"`):
			return `{"paraphrases": ["x"]}`, nil
		default:
			return `{"variations": ["v1", "v2"]}`, nil
		}
	})
	d := NewQuestionDistiller(gen, testOptions())

	input := []Question{
		{Question: "reset password", Intent: "Password Reset", IntentHierarchy: []string{"Support", "Password Reset"}, QuestionIndex: 1},
		{Question: "broken", Intent: "Password Reset", QuestionIndex: 2},
		{Question: "odd", Intent: "Password Reset", QuestionIndex: 3},
	}
	out, err := d.AugmentWithVariations(context.Background(), input, 2)
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, input[0], out[0])
	assert.Equal(t, "v1", out[1].Question)
	assert.True(t, out[1].IsVariation)
	assert.Equal(t, "reset password", out[1].OriginalQuestion)
	assert.Equal(t, 1, out[1].VariationIndex)
	assert.Equal(t, 2, out[2].VariationIndex)
	assert.Equal(t, 1, out[2].QuestionIndex)
	assert.Equal(t, input[1], out[3], "failed request keeps the original")
	assert.Equal(t, input[2], out[4], "unexpected shape keeps the original")

	assert.Contains(t, gen.prompts[0], `Generate 2 variations of the following question that express the same intent "Password Reset"`)

	out[1].IntentHierarchy[0] = "mutated"
	assert.Equal(t, "Support", input[0].IntentHierarchy[0])
}
