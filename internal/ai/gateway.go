package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/go-playground/validator/v10"
)

// DefaultRequestTimeout bounds a single provider call.
const DefaultRequestTimeout = 30 * time.Second

// AnalyzeInput is a chat excerpt submitted for analysis.
type AnalyzeInput struct {
	Messages []string           `validate:"min=1,max=10,dive,nonblank"`
	Context  domain.ScanContext `validate:"scan_context"`
}

// Analysis is a parsed result plus what it cost to get.
type Analysis struct {
	Result   domain.AnalysisResult
	Usage    UsageInfo
	Provider string
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	RequestTimeout time.Duration
	BlockList      []string
}

// Gateway validates and screens input, calls the provider once and parses
// the reply.
type Gateway struct {
	provider Provider
	validate *validator.Validate
	safety   *SafetyFilter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGateway creates a Gateway in front of provider.
func NewGateway(provider Provider, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	// Operator terms extend the self-harm list; they never replace it.
	blockList := append(slices.Clone(DefaultBlockList), cfg.BlockList...)

	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("scan_context", func(fl validator.FieldLevel) bool {
		return domain.ScanContext(fl.Field().String()).Valid()
	})

	return &Gateway{
		provider: provider,
		validate: v,
		safety:   NewSafetyFilter(blockList),
		timeout:  cfg.RequestTimeout,
		logger:   logger,
	}
}

// Screen runs the cheap checks: shape validation, then the safety filter.
// It never calls the provider.
func (g *Gateway) Screen(in AnalyzeInput) error {
	const op = "ai.screen"

	if err := g.validate.Struct(in); err != nil {
		return toValidationError(op, err)
	}

	if term, blocked := g.safety.Blocked(in.Messages); blocked {
		g.logger.Warn("scan blocked by safety filter", "term", term, "context", in.Context)
		return domain.SafetyBlocked(op)
	}
	return nil
}

// Analyze screens the input and performs exactly one provider call under the
// gateway timeout. A timeout or provider error is returned as-is, wrapped;
// unparseable output wraps EAIMalformedResponse.
func (g *Gateway) Analyze(ctx context.Context, in AnalyzeInput) (*Analysis, error) {
	if err := g.Screen(in); err != nil {
		return nil, err
	}

	name := g.provider.Name()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	completion, err := g.provider.Complete(ctx, CompleteParams{
		Messages: in.Messages,
		Context:  in.Context,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, EAITimeout) {
			err = fmt.Errorf("%w: %v", EAITimeout, err)
		}
		metrics.AICall(name, callStatus(err), elapsed)
		g.logger.Error("analysis call failed", "provider", name, "error", err)
		return nil, WrapError("complete", err)
	}

	metrics.AITokens(completion.Usage.InputTokens, completion.Usage.OutputTokens)

	result, err := ParseAnalysis(completion.Text)
	if err != nil {
		metrics.AICall(name, callStatus(err), elapsed)
		g.logger.Error("analysis output rejected", "provider", name, "error", err, "output_len", len(completion.Text))
		return nil, WrapError("parse", err)
	}
	metrics.AICall(name, "success", elapsed)

	g.logger.Debug("analysis completed",
		"provider", name,
		"score", result.Score,
		"input_tokens", completion.Usage.InputTokens,
		"output_tokens", completion.Usage.OutputTokens,
		"duration", completion.Usage.Duration,
	)

	return &Analysis{
		Result:   *result,
		Usage:    completion.Usage,
		Provider: name,
	}, nil
}

func callStatus(err error) string {
	switch {
	case errors.Is(err, EAITimeout):
		return "timeout"
	case errors.Is(err, EAIRateLimit):
		return "rate_limited"
	case errors.Is(err, EAIUnauthorized):
		return "unauthorized"
	case errors.Is(err, EAIContentPolicy):
		return "content_policy"
	case IsMalformed(err):
		return "malformed"
	default:
		return "error"
	}
}

func toValidationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid(op, "Invalid scan request")
	}

	ve := &domain.ValidationError{Op: op, Fields: map[string]string{}}
	for _, fe := range verrs {
		switch {
		case fe.StructField() == "Messages" && fe.Tag() == "min":
			ve.Fields["messages"] = "Please provide at least 1 message"
		case fe.StructField() == "Messages" && fe.Tag() == "max":
			ve.Fields["messages"] = "Maximum 10 messages allowed"
		case strings.HasPrefix(fe.StructField(), "Messages["):
			ve.Fields["messages"] = "Messages cannot be empty"
		case fe.StructField() == "Context":
			ve.Fields["context"] = "Invalid context"
		default:
			ve.Fields[strings.ToLower(fe.Field())] = "Invalid value"
		}
	}
	return ve
}
