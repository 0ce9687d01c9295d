// Package nim implements the advisor's collaborator interfaces on top
// of an LLM backend and an HTTP retrieval service.
package nim

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// LLMClient is a thin wrapper around the official genai client. It
// only covers the API call itself; retries, timeouts and metrics are
// applied by the reflection controller.
type LLMClient struct {
	cli   *genai.Client
	model string
}

// NewLLMClient creates a client for the given model. The API key is
// read from the environment by the underlying genai client.
func NewLLMClient(ctx context.Context, model string) (*LLMClient, error) {
	if model == "" {
		return nil, errors.New("model name is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return &LLMClient{cli: cli, model: model}, nil
}

// generate sends one prompt and returns the raw text of the first
// candidate. mimeType may be empty for plain text or
// "application/json" for structured output.
func (c *LLMClient) generate(ctx context.Context, prompt, mimeType string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if mimeType != "" {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: mimeType}
	}
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
