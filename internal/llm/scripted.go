package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedClient replays a fixed sequence of responses. It backs tests
// and offline dry runs.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     []ScriptedCall
}

// ScriptedCall records one request made against a ScriptedClient.
type ScriptedCall struct {
	System string
	Prompt string
}

// NewScriptedClient creates a client that returns the given responses
// in order.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

func (s *ScriptedClient) Name() string { return "scripted" }

func (s *ScriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *ScriptedClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ScriptedCall{System: system, Prompt: prompt})
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted client exhausted after %d calls", len(s.calls))
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

// Calls returns the requests recorded so far.
func (s *ScriptedClient) Calls() []ScriptedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScriptedCall, len(s.calls))
	copy(out, s.calls)
	return out
}
