package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"marknav/internal/logging"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI talks to the OpenAI chat completions API, or any compatible
// endpoint when BaseURL is overridden (llama.cpp, vLLM, OpenRouter).
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai/" + o.model }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, "", prompt)
}

func (o *OpenAI) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return o.generate(ctx, system, prompt)
}

func (o *OpenAI) generate(ctx context.Context, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}

	// Retry loop for rate limits
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			logging.APIDebug("OpenAI retry %d after error: %v", i, lastErr)
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		start := time.Now()
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if !isRetryable(err) {
				return "", fmt.Errorf("OpenAI API call failed: %w", err)
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("OpenAI returned no choices")
			continue
		}

		logging.APIDebug("OpenAI call completed in %v (finish: %s)",
			time.Since(start), resp.Choices[0].FinishReason)
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("OpenAI request failed after %d retries: %w", maxRetries, lastErr)
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Transport-level failures are worth another attempt.
	return true
}
