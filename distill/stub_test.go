package distill

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"
)

// stubGenerator answers GenerateJSON from a function and records every call
type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	systems []string
	respond func(prompt, system string) (string, error)
}

func newStub(respond func(prompt, system string) (string, error)) *stubGenerator {
	return &stubGenerator{respond: respond}
}

func fixed(response string) *stubGenerator {
	return newStub(func(string, string) (string, error) { return response, nil })
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, prompt, system string) (json.RawMessage, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, system)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.respond(prompt, system)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func testOptions() Options {
	return Options{
		Now:  func() time.Time { return fixedNow },
		Rand: rand.New(rand.NewPCG(1, 2)),
	}
}
