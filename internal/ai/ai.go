// Package ai is the adapter to the external analysis backend.
//
// A Provider turns a chat excerpt into raw model text. The Gateway owns
// everything around that call: input validation, the safety pre-filter,
// the request timeout and parsing the text into a domain.AnalysisResult.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/nocap/internal/domain"
)

// Provider is a single LLM backend.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Complete sends one analysis prompt and returns the model's raw text.
	// Implementations must not retry.
	Complete(ctx context.Context, params CompleteParams) (*Completion, error)
}

// CompleteParams contains the excerpt to analyze.
type CompleteParams struct {
	Messages []string
	Context  domain.ScanContext
}

// Completion is the raw output of a provider call.
type Completion struct {
	Text  string
	Usage UsageInfo
}

// UsageInfo tracks API usage for monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIContentPolicy indicates the provider refused the content
	EAIContentPolicy = errors.New("content violates provider policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAIMalformedResponse indicates the model output does not have the
	// expected analysis shape
	EAIMalformedResponse = errors.New("malformed analysis response")
)

// IsMalformed reports whether err came from parsing the model output rather
// than from reaching the provider.
func IsMalformed(err error) bool {
	return errors.Is(err, EAIMalformedResponse)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
