package distill

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/prompts"
	"github.com/teranos/distill/taxonomy"
)

// Role is a conversation participant
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fallbacks used when a turn request fails
const (
	FallbackReply    = "I'm happy to help with that."
	FallbackQuestion = "Can you tell me more about that?"
)

// MaxRelatedIntents caps the sibling intents a conversation may move to
const MaxRelatedIntents = 5

// Turn is one message in a conversation. Intent is set on user turns only.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Intent  string `json:"intent,omitempty"`
	Turn    int    `json:"turn"`
}

// Conversation is one generated multi-turn dialogue
type Conversation struct {
	ID                  string   `json:"conversation_id"`
	PrimaryIntent       string   `json:"primary_intent"`
	PrimaryIntentNumber string   `json:"primary_intent_number"`
	PrimaryIntentPath   string   `json:"primary_intent_path"`
	AllIntents          []string `json:"all_intents"`
	Turns               []Turn   `json:"turns"`
	NumTurns            int      `json:"num_turns"`
	TransitionPoints    []int    `json:"transition_points"`
	Timestamp           string   `json:"timestamp"`
}

// ConversationOptions controls the shape of generated conversations.
// Empty scenario and role labels fall back to the language defaults.
type ConversationOptions struct {
	Turns          int     // User/assistant exchanges (>= 1)
	TransitionRate float64 // Chance in [0,1] of moving to a sibling intent before a follow-up
	Scenario       string
	RoleUser       string
	RoleAssistant  string
}

// ConversationDistiller synthesizes conversations that may drift between
// sibling intents
type ConversationDistiller struct {
	gen  Generator
	opts Options

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewConversationDistiller creates a conversation distiller
func NewConversationDistiller(gen Generator, opts Options) *ConversationDistiller {
	opts = opts.withDefaults("distill.conversations")
	return &ConversationDistiller{gen: gen, opts: opts, rng: opts.Rand}
}

// deriveRand returns an independent source seeded from the distiller's source
func (d *ConversationDistiller) deriveRand() *rand.Rand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64()))
}

// DistillConversation generates one conversation about node.
// Turn-level request failures are replaced by fallbacks, so an error is only
// returned for invalid options or cancellation.
func (d *ConversationDistiller) DistillConversation(ctx context.Context, node *taxonomy.Node, opts ConversationOptions) (*Conversation, error) {
	return d.run(ctx, node, opts, d.deriveRand())
}

// DistillConversationsForTree generates perIntent conversations for each leaf
// of root (or every node when leafOnly is false). Failed conversations are
// logged and skipped. Output order follows node order regardless of workers.
func (d *ConversationDistiller) DistillConversationsForTree(ctx context.Context, root *taxonomy.Node, perIntent int, opts ConversationOptions, leafOnly bool) ([]Conversation, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	targets := taxonomy.Select(root, leafOnly)
	d.opts.Logger.Infow("Generating conversations",
		logger.FieldTotalCount, len(targets), "per_intent", perIntent, "leaf_only", leafOnly)
	d.opts.Progress.EmitStage("conversations", fmt.Sprintf("%d intents, %d conversations each", len(targets), perIntent))

	type job struct {
		node *taxonomy.Node
		idx  int
		rng  *rand.Rand
	}
	// Sources are derived up front so results do not depend on scheduling
	jobs := make([]job, 0, len(targets)*perIntent)
	for _, node := range targets {
		for i := 0; i < perIntent; i++ {
			jobs = append(jobs, job{node: node, idx: i, rng: d.deriveRand()})
		}
	}

	results := make([]*Conversation, len(jobs))
	err := forEach(ctx, len(jobs), d.opts.Workers, func(ctx context.Context, i int) {
		j := jobs[i]
		conv, err := d.run(ctx, j.node, opts, j.rng)
		if err != nil {
			d.opts.Logger.Errorw("Failed to generate conversation",
				logger.FieldIntent, j.node.FullName(), logger.FieldError, err)
			d.opts.Progress.EmitError("conversations", err)
			return
		}
		results[i] = conv
		d.opts.Logger.Infow(fmt.Sprintf("Generated conversation %d/%d", j.idx+1, perIntent),
			logger.FieldIntent, j.node.FullName(), logger.FieldConversation, conv.ID)
		d.opts.Progress.EmitProgress(1, map[string]interface{}{"type": "conversations", "intent": j.node.FullName()})
	})

	var all []Conversation
	for _, conv := range results {
		if conv != nil {
			all = append(all, *conv)
		}
	}
	d.opts.Logger.Infow("Total conversations generated", logger.FieldTotalCount, len(all))
	return all, err
}

// RelatedIntents returns node's siblings in child order, at most MaxRelatedIntents
func RelatedIntents(node *taxonomy.Node) []*taxonomy.Node {
	siblings := node.Siblings()
	if len(siblings) > MaxRelatedIntents {
		siblings = siblings[:MaxRelatedIntents]
	}
	return siblings
}

// Transcript formats turns as "Role: content" lines
func Transcript(turns []Turn) string {
	if len(turns) == 0 {
		return "No previous conversation"
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = capitalize(string(t.Role)) + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type conversationState int

const (
	awaitingFirstQuestion conversationState = iota
	awaitingAssistantReply
	awaitingNextQuestion
	conversationDone
)

// conversationRun is the explicit state of one conversation being generated
type conversationRun struct {
	state       conversationState
	primary     *taxonomy.Node
	active      *taxonomy.Node
	related     []*taxonomy.Node
	turns       []Turn
	allIntents  []string
	transitions []int
	exchange    int // 1-based index of the current user/assistant exchange
}

func (r *conversationRun) appendTurn(role Role, content, intent string) {
	r.turns = append(r.turns, Turn{Role: role, Content: content, Intent: intent, Turn: len(r.turns) + 1})
}

func (r *conversationRun) seen(intent string) bool {
	for _, name := range r.allIntents {
		if name == intent {
			return true
		}
	}
	return false
}

// Validate checks the turn count and transition rate
func (o ConversationOptions) Validate() error {
	if o.Turns < 1 {
		return errors.NewConfigError("conversation needs at least one turn, got %d", o.Turns)
	}
	if o.TransitionRate < 0 || o.TransitionRate > 1 {
		return errors.NewConfigError("transition rate %.2f outside [0,1]", o.TransitionRate)
	}
	return nil
}

func (d *ConversationDistiller) resolve(opts ConversationOptions) ConversationOptions {
	roles := prompts.DefaultRoles(d.opts.Language)
	if opts.Scenario == "" {
		opts.Scenario = prompts.DefaultScenario(d.opts.Language)
	}
	if opts.RoleUser == "" {
		opts.RoleUser = roles.User
	}
	if opts.RoleAssistant == "" {
		opts.RoleAssistant = roles.Assistant
	}
	return opts
}

func (d *ConversationDistiller) run(ctx context.Context, node *taxonomy.Node, opts ConversationOptions, rng *rand.Rand) (*Conversation, error) {
	if node == nil {
		return nil, errors.New("conversation intent is nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = d.resolve(opts)

	id := fmt.Sprintf("conv_%s_%s", d.opts.Now().UTC().Format("20060102_150405"), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	log := d.opts.Logger.With(logger.FieldConversation, id, logger.FieldIntent, node.FullName())
	log.Infow("Generating conversation")
	ctx = tracker.WithOperation(ctx, tracker.Operation{Type: "distill.conversation", EntityType: "conversation", EntityID: id})

	r := &conversationRun{
		state:      awaitingFirstQuestion,
		primary:    node,
		active:     node,
		related:    RelatedIntents(node),
		allIntents: []string{node.Name()},
	}

	for r.state != conversationDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch r.state {
		case awaitingFirstQuestion:
			questions := prompts.InitialQuestions(d.opts.Language, node.Name())
			r.appendTurn(RoleUser, questions[rng.IntN(len(questions))], node.Name())
			r.exchange = 1
			r.state = awaitingAssistantReply

		case awaitingAssistantReply:
			reply := d.assistantReply(ctx, log, r, opts)
			r.appendTurn(RoleAssistant, reply, "")
			if r.exchange < opts.Turns {
				r.state = awaitingNextQuestion
			} else {
				r.state = conversationDone
			}

		case awaitingNextQuestion:
			// Always drawn, even when no transition is possible
			draw := rng.Float64()
			if draw < opts.TransitionRate && len(r.related) > 0 && r.exchange > 1 {
				r.active = r.related[rng.IntN(len(r.related))]
				if !r.seen(r.active.Name()) {
					r.allIntents = append(r.allIntents, r.active.Name())
					r.transitions = append(r.transitions, len(r.turns)+1)
				}
				log.Infow("Transitioning to related intent", "related_intent", r.active.Name(), logger.FieldTurn, len(r.turns)+1)
			}

			question, intent := d.nextQuestion(ctx, log, r, opts)
			r.appendTurn(RoleUser, question, intent)
			r.exchange++
			r.state = awaitingAssistantReply
		}
	}

	return &Conversation{
		ID:                  id,
		PrimaryIntent:       node.Name(),
		PrimaryIntentNumber: node.Number(),
		PrimaryIntentPath:   node.Path(),
		AllIntents:          r.allIntents,
		Turns:               r.turns,
		NumTurns:            len(r.turns),
		TransitionPoints:    nonNil(r.transitions),
		Timestamp:           d.opts.timestamp(),
	}, nil
}

func (d *ConversationDistiller) assistantReply(ctx context.Context, log *zap.SugaredLogger, r *conversationRun, opts ConversationOptions) string {
	prompt, err := prompts.AssistantReply(d.opts.Language, prompts.ReplyData{
		Scenario:      opts.Scenario,
		RoleUser:      opts.RoleUser,
		RoleAssistant: opts.RoleAssistant,
		CurrentIntent: r.active.Name(),
		IntentPath:    r.active.Path(),
		History:       Transcript(r.turns),
		CurrentTurn:   r.exchange,
		TotalTurns:    opts.Turns,
	})
	if err != nil {
		log.Errorw("Error building assistant reply prompt", logger.FieldError, err)
		return FallbackReply
	}

	raw, err := d.gen.GenerateJSON(ctx, prompt, prompts.ReplySystemPrompt)
	if err != nil {
		log.Errorw("Error generating assistant reply", logger.FieldTurn, len(r.turns)+1, logger.FieldError, err)
		return FallbackReply
	}
	fields, err := decodeObject(raw)
	if err != nil || fields["content"] == "" {
		log.Errorw("Assistant reply missing content", logger.FieldTurn, len(r.turns)+1, logger.FieldError, err)
		return FallbackReply
	}
	return fields["content"]
}

func (d *ConversationDistiller) nextQuestion(ctx context.Context, log *zap.SugaredLogger, r *conversationRun, opts ConversationOptions) (question, intent string) {
	fallbackIntent := r.active.Name()

	related := "None"
	if len(r.related) > 0 {
		names := make([]string, len(r.related))
		for i, n := range r.related {
			names[i] = n.Name()
		}
		related = strings.Join(names, ", ")
	}

	prompt, err := prompts.NextQuestion(d.opts.Language, prompts.NextQuestionData{
		Scenario:       opts.Scenario,
		RoleUser:       opts.RoleUser,
		RoleAssistant:  opts.RoleAssistant,
		PrimaryIntent:  r.primary.Name(),
		RelatedIntents: related,
		IntentPath:     r.active.Path(),
		History:        Transcript(r.turns),
		NextTurn:       len(r.turns) + 1,
		TotalTurns:     opts.Turns * 2,
		TransitionRate: opts.TransitionRate,
	})
	if err != nil {
		log.Errorw("Error building next question prompt", logger.FieldError, err)
		return FallbackQuestion, fallbackIntent
	}

	raw, err := d.gen.GenerateJSON(ctx, prompt, prompts.NextQuestionSystemPrompt)
	if err != nil {
		log.Errorw("Error generating next question", logger.FieldTurn, len(r.turns)+1, logger.FieldError, err)
		return FallbackQuestion, fallbackIntent
	}
	fields, err := decodeObject(raw)
	if err != nil {
		log.Errorw("Next question is not an object", logger.FieldTurn, len(r.turns)+1, logger.FieldError, err)
		return FallbackQuestion, fallbackIntent
	}

	question, intent = fields["question"], fields["intent"]
	if question == "" {
		question = FallbackQuestion
	}
	if intent == "" {
		intent = fallbackIntent
	}
	return question, intent
}

func nonNil(points []int) []int {
	if points == nil {
		return []int{}
	}
	return points
}
