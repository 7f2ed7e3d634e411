// Package anthropic is the Claude Messages API backend for the analysis
// gateway. It makes exactly one HTTP call per Complete and never retries.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/nocap/internal/ai"
)

const (
	APIBaseURL   = "https://api.anthropic.com/v1/messages"
	APIVersion   = "2023-06-01"
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens comfortably fits the three-signal JSON verdict.
	DefaultMaxTokens = 2000

	// Cents per 1M tokens.
	PricingInputCents  = 300
	PricingOutputCents = 1500

	// maxResponseBytes bounds how much of a reply is read into memory.
	maxResponseBytes = 1 << 20
)

// Config configures the provider. BaseURL overrides APIBaseURL in tests.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// Provider implements ai.Provider against the Messages API.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New returns a provider. The caller's context bounds each request; the
// client itself has no timeout.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}

	return &Provider{
		config: config,
		client: &http.Client{},
		logger: logger.With("provider", "anthropic"),
	}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Complete sends the excerpt once and returns the first text block.
func (p *Provider) Complete(ctx context.Context, params ai.CompleteParams) (*ai.Completion, error) {
	started := time.Now()

	payload, err := json.Marshal(messagesRequest{
		Model:     p.config.Model,
		MaxTokens: p.config.MaxTokens,
		System:    ai.SystemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: ai.BuildUserPrompt(params.Messages, params.Context)}},
		}},
	})
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}

	reply, err := p.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	switch reply.StopReason {
	case "max_tokens":
		return nil, fmt.Errorf("%w: reply truncated at %d tokens", ai.EAIMalformedResponse, p.config.MaxTokens)
	case "refusal":
		return nil, fmt.Errorf("%w: model declined the excerpt", ai.EAIContentPolicy)
	}

	text := reply.firstText()
	if text == "" {
		return nil, fmt.Errorf("%w: no text content in response", ai.EAIMalformedResponse)
	}

	return &ai.Completion{
		Text: text,
		Usage: ai.UsageInfo{
			Model:        p.config.Model,
			InputTokens:  reply.Usage.InputTokens,
			OutputTokens: reply.Usage.OutputTokens,
			CostCents:    costCents(reply.Usage.InputTokens, reply.Usage.OutputTokens),
			Duration:     time.Since(started),
		},
	}, nil
}

func (p *Provider) post(ctx context.Context, payload []byte) (*messagesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ai.EAITimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ai.EAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ai.EAIUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp.StatusCode, body)
		p.logger.Warn("messages request failed",
			"status", resp.StatusCode,
			"request_id", resp.Header.Get("request-id"),
			"error", err,
		)
		return nil, err
	}

	var reply messagesResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ai.EAIMalformedResponse, err)
	}
	return &reply, nil
}

var statusSentinels = map[int]error{
	http.StatusUnauthorized:        ai.EAIUnauthorized,
	http.StatusForbidden:           ai.EAIUnauthorized,
	http.StatusTooManyRequests:     ai.EAIRateLimit,
	http.StatusRequestTimeout:      ai.EAITimeout,
	http.StatusGatewayTimeout:      ai.EAITimeout,
	http.StatusInternalServerError: ai.EAIUnavailable,
	http.StatusBadGateway:          ai.EAIUnavailable,
	http.StatusServiceUnavailable:  ai.EAIUnavailable,
	529:                            ai.EAIUnavailable, // overloaded
}

// statusError maps a non-200 reply to a gateway sentinel. Anything unlisted,
// including 400, counts as the provider being unavailable for this request.
func statusError(status int, body []byte) error {
	if sentinel, ok := statusSentinels[status]; ok {
		return sentinel
	}
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	return fmt.Errorf("%w: status %d: %s", ai.EAIUnavailable, status, e.Error.Message)
}

func costCents(inputTokens, outputTokens int) int {
	return inputTokens*PricingInputCents/1_000_000 + outputTokens*PricingOutputCents/1_000_000
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *messagesResponse) firstText() string {
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
