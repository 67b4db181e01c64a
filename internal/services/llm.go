package services

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/sashabaranov/go-openai"
)

// Provider produces a chat completion for a system and user prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ChatProvider is an OpenAI-compatible chat completion endpoint.
//
// Gemini is reached through its OpenAI-compatible base URL so both providers share this type.
type ChatProvider struct {
	name   string
	model  string
	client *openai.Client
}

// NewChatProvider creates a provider; an empty baseURL keeps the OpenAI default.
func NewChatProvider(name, apiKey, baseURL, model string, timeout time.Duration) *ChatProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &ChatProvider{name: name, model: model, client: openai.NewClientWithConfig(config)}
}

// Name returns the provider label used in logs and metrics.
func (p *ChatProvider) Name() string { return p.name }

// Complete sends a two-message chat and returns the first choice.
func (p *ChatProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s completion: %w", shared.ErrAPIRequest, p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", shared.ErrEmptySummary, p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// ProvidersFromConfig returns the configured providers in fallback order: Gemini, then OpenAI.
func ProvidersFromConfig(cfg shared.LLMConfig) []Provider {
	var providers []Provider
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, NewChatProvider("gemini", cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.Timeout))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, NewChatProvider("openai", cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout))
	}
	return providers
}

var (
	leadingHTMLFence = regexp.MustCompile(`(?i)^` + "```" + `html\s*`)
	leadingFence     = regexp.MustCompile(`^` + "```" + `\s*`)
	trailingFence    = regexp.MustCompile(`\s*` + "```" + `$`)
)

// stripFences removes a markdown code fence wrapped around a model answer.
func stripFences(s string) string {
	s = leadingHTMLFence.ReplaceAllString(s, "")
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
