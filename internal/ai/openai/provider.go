// Package openai implements ai.Provider on top of the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/nocap/internal/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config for the OpenAI provider
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string // optional, for compatible gateways and tests
}

// Provider wraps the OpenAI API client
type Provider struct {
	client    *goopenai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// New creates an OpenAI provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:    goopenai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}

// Complete sends one chat completion request in JSON mode.
func (p *Provider) Complete(ctx context.Context, params ai.CompleteParams) (*ai.Completion, error) {
	req := goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: ai.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: ai.BuildUserPrompt(params.Messages, params.Context)},
		},
		MaxCompletionTokens: p.maxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	if err != nil {
		mapped := mapError(ctx, err)
		p.logger.Warn("openai request failed", "error", err, "duration", duration)
		return nil, mapped
	}

	if len(resp.Choices) > 0 && resp.Choices[0].FinishReason == goopenai.FinishReasonContentFilter {
		return nil, fmt.Errorf("%w: finish_reason content_filter", ai.EAIContentPolicy)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: no choices in response", ai.EAIMalformedResponse)
	}

	p.logger.Debug("openai completion received",
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return &ai.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: ai.UsageInfo{
			Model:        p.model,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			Duration:     duration,
		},
	}, nil
}

// mapError converts client errors to the ai sentinel errors.
func mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.EAITimeout, err)
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ai.EAIUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ai.EAIRateLimit, err)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %v", ai.EAITimeout, err)
	default:
		return fmt.Errorf("%w: %v", ai.EAIUnavailable, err)
	}
}
