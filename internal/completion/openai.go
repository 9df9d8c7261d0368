package completion

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI calls any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client   *openai.Client
	model    string
	sampling Sampling
}

// NewOpenAI creates an OpenAI-compatible client. An empty baseURL selects the
// OpenAI API; an empty model selects gpt-4o-mini.
func NewOpenAI(apiKey, baseURL, model string, sampling Sampling) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = newHTTPClient()
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		sampling: sampling,
	}
}

// Complete sends the system instruction and message as a two-message chat
// and returns the first choice's content, or "" if there is none.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.sampling.Temperature,
		MaxTokens:   c.sampling.MaxOutputTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &UpstreamError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
