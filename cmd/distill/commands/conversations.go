package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/distill/display"
	"github.com/teranos/distill/distill"
	"github.com/teranos/distill/prompts"
	"github.com/teranos/distill/taxonomy"
)

// ConversationsCmd runs the taxonomy + conversation pipeline
var ConversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Build a taxonomy and synthesize multi-turn conversations",
	Long: `Generate multi-turn conversations with intent transitions.

Stage 1 builds an intent taxonomy breadth-first from the topic.
Stage 2 synthesizes conversations anchored on each target intent. After
each assistant reply the next user turn switches to a sibling intent with
probability --transition-rate.

Examples:
  distill conversations -t "Telecom Support" --turns-per-conversation 5 -o convs.jsonl
  distill conversations -t "Hotel Booking" --scenario "A hotel front desk chat" --role-assistant Receptionist -o hotel.jsonl`,
	RunE: runConversations,
}

func init() {
	taxonomyFlags(ConversationsCmd, 2)
	ConversationsCmd.Flags().Int("conversations-per-tag", 5, "Conversations per intent")
	ConversationsCmd.Flags().Int("turns-per-conversation", 4, "Turns per conversation (user+assistant pairs)")
	ConversationsCmd.Flags().Float64("transition-rate", 0.3, "Intent transition probability (0-1)")
	ConversationsCmd.Flags().String("scenario", "", "Custom conversation scenario description")
	ConversationsCmd.Flags().String("role-user", "", "Name of the user role in prompts")
	ConversationsCmd.Flags().String("role-assistant", "", "Name of the assistant role in prompts")
	generationFlags(ConversationsCmd)
}

func runConversations(cmd *cobra.Command, args []string) error {
	topic, err := topicOrResume(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	gen := rt.cfg.Generation
	levels := intFlag(cmd, "levels", gen.Levels)
	tags := intFlag(cmd, "tags-per-level", gen.TagsPerLevel)
	perIntent := intFlag(cmd, "conversations-per-tag", gen.ConversationsPerTag)
	leafOnly := boolFlag(cmd, "leaf-only", gen.LeafOnly)
	output, _ := cmd.Flags().GetString("output")

	scenario, _ := cmd.Flags().GetString("scenario")
	roleUser, _ := cmd.Flags().GetString("role-user")
	roleAssistant, _ := cmd.Flags().GetString("role-assistant")
	convOpts := distill.ConversationOptions{
		Turns:          intFlag(cmd, "turns-per-conversation", gen.TurnsPerConversation),
		TransitionRate: floatFlag(cmd, "transition-rate", gen.TransitionRate),
		Scenario:       scenario,
		RoleUser:       roleUser,
		RoleAssistant:  roleAssistant,
	}

	if err := convOpts.Validate(); err != nil {
		return err
	}

	p := newPlan(topic, levels, tags, perIntent, leafOnly, "conversations")
	rt.printBanner("Multi-Turn Conversation Distillation", p,
		fmt.Sprintf("Turns: %d turns per conversation", convOpts.Turns),
		fmt.Sprintf("Intent transitions: %d%% probability", prompts.NextQuestionData{TransitionRate: convOpts.TransitionRate}.TransitionPercent()),
	)

	rt.printf("%s\n", pterm.Bold.Sprint("Stage 1/2: Building Intent Taxonomy"))
	root, err := rt.buildTaxonomy(cmd, topic, levels, tags)
	if err != nil {
		return err
	}

	targets := taxonomy.Select(root, leafOnly)
	rt.printf("\n%s\n", pterm.Bold.Sprint("Stage 2/2: Generating Multi-Turn Conversations"))
	rt.printf("Generating %d conversations for %d intents...\n\n", perIntent*len(targets), len(targets))

	cd := distill.NewConversationDistiller(rt.gen, rt.opts)
	conversations, err := cd.DistillConversationsForTree(cmd.Context(), root, perIntent, convOpts, leafOnly)
	if err != nil {
		return err
	}

	rt.printf("\n%s\n", pterm.Bold.Sprint("Saving Results"))
	if err := writeResults(output, conversations); err != nil {
		return err
	}

	summary := pipelineSummary{
		Taxonomy: display.SummarizeTaxonomy(root, levels, tags),
		Samples:  len(conversations),
		Output:   output,
	}
	if rt.json {
		return display.OutputJSON(summary)
	}

	turns, transitions := 0, 0
	intents := make([]string, 0, len(conversations))
	for _, c := range conversations {
		turns += len(c.Turns)
		transitions += len(c.TransitionPoints)
		intents = append(intents, c.PrimaryIntent)
	}

	pterm.Println()
	pterm.Success.Println("Conversation Distillation Complete!")
	pterm.Println()
	data := display.TaxonomyTable(summary.Taxonomy)
	data = append(data,
		[]string{"Target intents", fmt.Sprintf("%d", len(targets))},
		[]string{"Conversations", fmt.Sprintf("%d", len(conversations))},
		[]string{"Total turns", fmt.Sprintf("%d", turns)},
		[]string{"Intent transitions", fmt.Sprintf("%d", transitions)},
		[]string{"Output", output},
	)
	if err := display.PrintTable(data); err != nil {
		return err
	}
	rt.printIntentBreakdown(intents)

	pterm.Printf("\n%s\n\n", pterm.Gray(fmt.Sprintf("Use 'distill export -i %s -o training.json --format sharegpt' for ShareGPT format", output)))
	return nil
}
