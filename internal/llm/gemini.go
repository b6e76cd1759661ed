package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"marknav/internal/logging"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini talks to the Gemini API through the official genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client.
func NewGemini(opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, "", prompt)
}

func (g *Gemini) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return g.generate(ctx, system, prompt)
}

func (g *Gemini) generate(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	// Retry loop for rate limits
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			logging.APIDebug("Gemini retry %d after error: %v", i, lastErr)
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		start := time.Now()
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			lastErr = err
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = fmt.Errorf("Gemini returned empty response")
			continue
		}

		logging.APIDebug("Gemini call completed in %v (%d chars)", time.Since(start), len(text))
		return text, nil
	}

	return "", fmt.Errorf("Gemini request failed after %d retries: %w", maxRetries, lastErr)
}
