package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/nocap/internal/ai"
)

// DefaultResponse is a well-formed analysis wrapped in a code fence, the
// way models often reply.
const DefaultResponse = "```json\n" + `{
  "score": 73,
  "signals": [
    {"emoji": "⏸️", "title": "Micro-pause detected", "description": "Took way too long to answer a simple question", "severity": "medium"},
    {"emoji": "📖", "title": "Story doing cardio", "description": "A yes-or-no question became a three-part series", "severity": "high"},
    {"emoji": "🎭", "title": "Random detail drop", "description": "Mentioned unrelated stuff nobody asked about"}
  ],
  "verdict": {
    "title": "Story Doing Cardio",
    "body": "Micro-pause. Over-explaining. Random details.\n\nBestie, this story has WiFi but no signal."
  }
}` + "\n```"

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	Response string
	Error    error
	Delay    time.Duration

	// Call tracking for testing
	Calls      int
	LastParams ai.CompleteParams
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Name returns "mock".
func (p *Provider) Name() string {
	return "mock"
}

// Complete returns the configured response, or DefaultResponse.
func (p *Provider) Complete(ctx context.Context, params ai.CompleteParams) (*ai.Completion, error) {
	p.mu.Lock()
	p.Calls++
	p.LastParams = params
	resp, err, delay := p.Response, p.Error, p.Delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ai.EAITimeout
		}
	}

	if err != nil {
		return nil, err
	}
	if resp == "" {
		resp = DefaultResponse
	}

	if p.logger != nil {
		p.logger.Debug("mock analysis", "messages", len(params.Messages), "context", params.Context)
	}

	return &ai.Completion{
		Text: resp,
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  350,
			OutputTokens: 180,
			Duration:     delay,
		},
	}, nil
}

// CallCount returns the number of Complete calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = 0
	p.LastParams = ai.CompleteParams{}
	p.Response = ""
	p.Error = nil
	p.Delay = 0
}
