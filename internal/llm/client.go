// Package llm provides chat completion clients for the providers the
// agent can run against.
package llm

import (
	"context"
	"fmt"
)

// Client is a minimal chat completion interface. Implementations return
// the raw model text; callers extract structured payloads themselves.
type Client interface {
	// Complete sends a single user prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a system instruction plus a user prompt.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
	// Name identifies the provider for logging.
	Name() string
}

// Options configures a provider client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New builds a client for the named provider.
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case "gemini":
		return NewGemini(opts)
	case "openai":
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
