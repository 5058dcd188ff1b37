// Package distill turns LLM completions into intent taxonomies, labeled
// questions and multi-turn conversations.
//
// Each distiller issues independent requests through a Generator. Failures of
// a single request are isolated: tree-level drivers log and skip the failing
// node or conversation and keep going.
package distill

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/prompts"
)

// Generator is the LLM surface the distillers depend on.
// *llm.Requester satisfies it.
type Generator interface {
	// GenerateJSON returns the JSON value recovered from the model's reply
	GenerateJSON(ctx context.Context, prompt, systemPrompt string) (json.RawMessage, error)
}

// Options configures a distiller
type Options struct {
	Language prompts.Language   // "" = English
	Workers  int                // Concurrent requests for tree-level drivers (<= 1 = sequential)
	Logger   *zap.SugaredLogger // nil = nop logger
	Progress ProgressEmitter    // nil = no progress events
	Now      func() time.Time   // nil = time.Now
	Rand     *rand.Rand         // Source for conversation sampling; nil = randomly seeded
}

func (o Options) withDefaults(component string) Options {
	if o.Language == "" {
		o.Language = prompts.English
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	o.Logger = logger.OrNop(o.Logger).Named(component)
	if o.Progress == nil {
		o.Progress = NopEmitter{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// TimestampFormat is the UTC timestamp layout used in generated records
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

func (o Options) timestamp() string {
	return o.Now().UTC().Format(TimestampFormat)
}

// decodeStringList accepts either a bare JSON array of strings or an object
// holding such an array under key. Anything else is a malformed response.
func decodeStringList(raw json.RawMessage, key string) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.NewMalformedResponse("empty response, expected a list or {%q: [...]}", key)
	}

	switch trimmed[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "expected a list of strings"), errors.ErrMalformedResponse)
		}
		return list, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid JSON object"), errors.ErrMalformedResponse)
		}
		value, ok := obj[key]
		if !ok {
			return nil, errors.NewMalformedResponse("response object has no %q key", key)
		}
		var list []string
		if err := json.Unmarshal(value, &list); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "%q is not a list of strings", key), errors.ErrMalformedResponse)
		}
		return list, nil
	default:
		return nil, errors.NewMalformedResponse("unexpected response format: %s", truncateRaw(trimmed))
	}
}

// decodeObject decodes a JSON object reply into a string map, ignoring
// non-string values. A non-object reply is malformed.
func decodeObject(raw json.RawMessage) (map[string]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "expected a JSON object"), errors.ErrMalformedResponse)
	}
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if json.Unmarshal(v, &s) == nil {
			fields[k] = s
		}
	}
	return fields, nil
}

func truncateRaw(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}

// forEach runs fn for indices 0..n-1 using at most workers goroutines.
// fn handles its own failures; forEach stops scheduling once ctx is done
// and returns ctx.Err().
func forEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
