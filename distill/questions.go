package distill

import (
	"context"
	"fmt"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/prompts"
	"github.com/teranos/distill/taxonomy"
)

// Question is one generated, self-contained training sample
type Question struct {
	Question           string   `json:"question"`
	Intent             string   `json:"intent"`
	IntentNumber       string   `json:"intent_number"`
	IntentFullName     string   `json:"intent_full_name"`
	IntentPath         string   `json:"intent_path"`
	IntentNumberedPath string   `json:"intent_numbered_path"`
	IntentHierarchy    []string `json:"intent_hierarchy"`
	QuestionIndex      int      `json:"question_index"`
	Timestamp          string   `json:"timestamp"`

	// Set on paraphrases produced by AugmentWithVariations
	IsVariation      bool   `json:"is_variation,omitempty"`
	OriginalQuestion string `json:"original_question,omitempty"`
	VariationIndex   int    `json:"variation_index,omitempty"`
}

// variationPrompt is sent per question by AugmentWithVariations
const variationPrompt = `Generate %d variations of the following question that express the same intent "%s":

Original question: "%s"

Requirements:
- Each variation should be a natural, different way to express the same intent
- Vary the phrasing, length, and formality
- Keep the core meaning the same

Return only a JSON array of variation strings.`

// QuestionDistiller generates labeled user questions per intent
type QuestionDistiller struct {
	gen  Generator
	opts Options
}

// NewQuestionDistiller creates a question distiller
func NewQuestionDistiller(gen Generator, opts Options) *QuestionDistiller {
	return &QuestionDistiller{gen: gen, opts: opts.withDefaults("distill.questions")}
}

// DistillQuestions asks for count questions about node. Up to the first ten
// existing questions are shown to the model as examples to avoid.
// A malformed reply is returned as an error.
func (d *QuestionDistiller) DistillQuestions(ctx context.Context, node *taxonomy.Node, count int, existing []string) ([]Question, error) {
	log := d.opts.Logger.With(logger.FieldIntent, node.FullName())
	log.Infow("Distilling questions", logger.FieldCount, count)

	prompt, err := prompts.Questions(d.opts.Language, prompts.QuestionsData{
		CurrentIntent: node.Name(),
		Count:         count,
		IntentPath:    node.NumberedPath(),
		Existing:      existing,
	})
	if err != nil {
		return nil, err
	}

	ctx = tracker.WithOperation(ctx, tracker.Operation{Type: "distill.questions", EntityType: "intent", EntityID: node.NumberedPath()})
	raw, err := d.gen.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to distill questions for %s", node.FullName())
	}

	texts, err := decodeStringList(raw, "questions")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to distill questions for %s", node.FullName())
	}

	questions := make([]Question, len(texts))
	for i, text := range texts {
		questions[i] = Question{
			Question:           text,
			Intent:             node.Name(),
			IntentNumber:       node.Number(),
			IntentFullName:     node.FullName(),
			IntentPath:         node.Path(),
			IntentNumberedPath: node.NumberedPath(),
			IntentHierarchy:    node.Hierarchy(),
			QuestionIndex:      i + 1,
			Timestamp:          d.opts.timestamp(),
		}
	}

	log.Infow("Generated questions", logger.FieldCount, len(questions))
	return questions, nil
}

// DistillQuestionsForTree generates perIntent questions for each leaf of root
// (or every node when leafOnly is false). Nodes that fail are logged and
// skipped. Results keep node order.
func (d *QuestionDistiller) DistillQuestionsForTree(ctx context.Context, root *taxonomy.Node, perIntent int, leafOnly bool) ([]Question, error) {
	targets := taxonomy.Select(root, leafOnly)
	d.opts.Logger.Infow("Distilling questions for intent tree",
		"root", root.Name(), logger.FieldTotalCount, len(targets), "leaf_only", leafOnly)
	d.opts.Progress.EmitStage("questions", fmt.Sprintf("%d intents, %d questions each", len(targets), perIntent))

	results := make([][]Question, len(targets))
	err := forEach(ctx, len(targets), d.opts.Workers, func(ctx context.Context, i int) {
		node := targets[i]
		questions, err := d.DistillQuestions(ctx, node, perIntent, nil)
		if err != nil {
			d.opts.Logger.Errorw("Failed to distill questions",
				logger.FieldIntent, node.FullName(), logger.FieldError, err)
			d.opts.Progress.EmitError("questions", err)
			return
		}
		results[i] = questions
		d.opts.Progress.EmitProgress(len(questions), map[string]interface{}{"type": "questions", "intent": node.FullName()})
	})

	var all []Question
	for _, questions := range results {
		all = append(all, questions...)
	}
	d.opts.Logger.Infow("Total questions distilled", logger.FieldTotalCount, len(all))
	return all, err
}

// AugmentWithVariations returns every input question followed by n
// paraphrases of it. When a question's paraphrase request fails the
// original is still kept.
func (d *QuestionDistiller) AugmentWithVariations(ctx context.Context, questions []Question, n int) ([]Question, error) {
	d.opts.Logger.Infow("Generating variations", "per_question", n, logger.FieldTotalCount, len(questions))
	d.opts.Progress.EmitStage("variations", fmt.Sprintf("%d questions, %d variations each", len(questions), n))

	results := make([][]Question, len(questions))
	err := forEach(ctx, len(questions), d.opts.Workers, func(ctx context.Context, i int) {
		original := questions[i]
		results[i] = []Question{original}

		variations, err := d.variations(ctx, original, n)
		if err != nil {
			d.opts.Logger.Warnw("Failed to generate variations",
				"question", original.Question, logger.FieldError, err)
			return
		}
		for j, text := range variations {
			v := original
			v.IntentHierarchy = append([]string(nil), original.IntentHierarchy...)
			v.Question = text
			v.IsVariation = true
			v.OriginalQuestion = original.Question
			v.VariationIndex = j + 1
			results[i] = append(results[i], v)
		}
		d.opts.Progress.EmitProgress(len(variations), map[string]interface{}{"type": "variations"})
	})

	var augmented []Question
	for i, r := range results {
		if r == nil {
			// Never scheduled because ctx was cancelled
			r = []Question{questions[i]}
		}
		augmented = append(augmented, r...)
	}
	d.opts.Logger.Infow("Generated questions including variations", logger.FieldTotalCount, len(augmented))
	return augmented, err
}

func (d *QuestionDistiller) variations(ctx context.Context, q Question, n int) ([]string, error) {
	prompt := fmt.Sprintf(variationPrompt, n, q.Intent, q.Question)
	ctx = tracker.WithOperation(ctx, tracker.Operation{Type: "distill.variations", EntityType: "intent", EntityID: q.IntentNumberedPath})
	raw, err := d.gen.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return nil, err
	}
	return decodeStringList(raw, "variations")
}
