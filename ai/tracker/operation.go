package tracker

import "context"

// Operation labels a provider call with the pipeline stage that issued it.
// Distillers attach it to the context; provider clients read it back when
// recording usage.
type Operation struct {
	Type       string // e.g. "taxonomy", "questions", "conversation.reply"
	EntityType string // e.g. "intent"
	EntityID   string // e.g. the intent's numbered path
}

type operationKey struct{}

// WithOperation returns a context carrying op
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation attached to ctx, or an "unlabeled" one
func OperationFrom(ctx context.Context) Operation {
	op, _ := ctx.Value(operationKey{}).(Operation)
	return op.withDefaults()
}

func (op Operation) withDefaults() Operation {
	if op.Type == "" {
		op.Type = "unlabeled"
	}
	if op.EntityType == "" {
		op.EntityType = "none"
	}
	return op
}
