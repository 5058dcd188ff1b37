package distill

import (
	"context"
	"fmt"
	"strings"

	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/prompts"
	"github.com/teranos/distill/taxonomy"
)

// TagDistiller grows an intent taxonomy one level at a time
type TagDistiller struct {
	gen  Generator
	opts Options
}

// NewTagDistiller creates a tag distiller
func NewTagDistiller(gen Generator, opts Options) *TagDistiller {
	return &TagDistiller{gen: gen, opts: opts.withDefaults("distill.tags")}
}

// DistillTags asks for count sub-intents of parentIntent and attaches them to
// parent. existing lists sibling names the model should avoid. A nil parent
// produces detached root-level nodes.
//
// Malformed replies are returned as errors and no children are attached.
func (d *TagDistiller) DistillTags(ctx context.Context, parentIntent string, count int, parent *taxonomy.Node, existing []string) ([]*taxonomy.Node, error) {
	log := d.opts.Logger.With(logger.FieldParent, parentIntent)
	log.Infow("Distilling sub-intents", logger.FieldCount, count)

	intentPath := parentIntent
	if parent != nil {
		intentPath = parent.NumberedPath()
	}

	prompt, err := prompts.Tags(d.opts.Language, prompts.TagsData{
		ParentIntent: parentIntent,
		Count:        count,
		IntentPath:   intentPath,
		ExistingTags: existing,
	})
	if err != nil {
		return nil, err
	}

	ctx = tracker.WithOperation(ctx, tracker.Operation{Type: "distill.tags", EntityType: "intent", EntityID: intentPath})
	raw, err := d.gen.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to distill tags for %s", parentIntent)
	}

	labels, err := decodeStringList(raw, "tags")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to distill tags for %s", parentIntent)
	}

	nodes := make([]*taxonomy.Node, 0, len(labels))
	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		number, name := taxonomy.ParseLabel(label)
		nodes = append(nodes, taxonomy.NewNode(name, number, parent))
	}

	log.Infow("Generated sub-intents", logger.FieldCount, len(nodes), "tags", fullNames(nodes))
	return nodes, nil
}

// BuildTaxonomy builds a tree of the given depth under a new root named rootTopic
func (d *TagDistiller) BuildTaxonomy(ctx context.Context, rootTopic string, levels, tagsPerLevel int) (*taxonomy.Node, error) {
	return d.BuildTaxonomyFrom(ctx, taxonomy.NewNode(rootTopic, "", nil), levels, tagsPerLevel)
}

// BuildTaxonomyFrom expands an existing tree breadth-first, starting from the
// root, for the given number of levels. Each parent is asked for tagsPerLevel
// children and told the names of the children it already has.
//
// A parent whose request fails gets no children at that level. When a whole
// level produces nothing the build stops and the partial tree is returned
// without error. Cancellation returns the tree built so far with ctx.Err().
func (d *TagDistiller) BuildTaxonomyFrom(ctx context.Context, root *taxonomy.Node, levels, tagsPerLevel int) (*taxonomy.Node, error) {
	d.opts.Logger.Infow("Building intent taxonomy",
		"topic", root.Name(), "levels", levels, "tags_per_level", tagsPerLevel)

	frontier := []*taxonomy.Node{root}
	for level := 1; level <= levels; level++ {
		d.opts.Logger.Infow("Building level", logger.FieldLevel, level, "parents", len(frontier))
		d.opts.Progress.EmitStage("taxonomy", fmt.Sprintf("level %d/%d (%d parents)", level, levels, len(frontier)))

		created := make([][]*taxonomy.Node, len(frontier))
		err := forEach(ctx, len(frontier), d.opts.Workers, func(ctx context.Context, i int) {
			parent := frontier[i]
			children, err := d.DistillTags(ctx, parent.Name(), tagsPerLevel, parent, parent.ChildNames())
			if err != nil {
				d.opts.Logger.Errorw("Failed to distill tags",
					logger.FieldParent, parent.FullName(), logger.FieldLevel, level, logger.FieldError, err)
				d.opts.Progress.EmitError("taxonomy", err)
				return
			}
			created[i] = children
			d.opts.Progress.EmitProgress(len(children), map[string]interface{}{"type": "intents", "parent": parent.FullName()})
		})

		var next []*taxonomy.Node
		for _, children := range created {
			next = append(next, children...)
		}
		if err != nil {
			return root, err
		}

		frontier = next
		if len(frontier) == 0 {
			d.opts.Logger.Warnw("No nodes generated, stopping", logger.FieldLevel, level)
			break
		}
	}

	d.opts.Logger.Infow("Taxonomy building complete", logger.FieldTotalCount, taxonomy.CountNodes(root))
	return root, nil
}

func fullNames(nodes []*taxonomy.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.FullName()
	}
	return names
}
