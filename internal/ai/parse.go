package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/DukeRupert/nocap/internal/domain"
)

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```\\s*$")
)

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = fenceOpen.ReplaceAllString(cleaned, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ParseAnalysis turns raw model text into a normalized AnalysisResult.
//
// The score must be a whole number in 0-100, there must be exactly three
// signals and the verdict needs a title and a body. A missing or unknown
// severity becomes "medium". Every failure wraps EAIMalformedResponse.
func ParseAnalysis(text string) (*domain.AnalysisResult, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty output", EAIMalformedResponse)
	}

	var out analysisOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", EAIMalformedResponse, err)
	}

	if out.Score == nil {
		return nil, fmt.Errorf("%w: missing score", EAIMalformedResponse)
	}
	score := *out.Score
	if score != math.Trunc(score) || score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: score %v out of range", EAIMalformedResponse, score)
	}

	if len(out.Signals) != domain.SignalsPerResult {
		return nil, fmt.Errorf("%w: expected %d signals, got %d", EAIMalformedResponse, domain.SignalsPerResult, len(out.Signals))
	}

	if out.Verdict == nil || strings.TrimSpace(out.Verdict.Title) == "" || strings.TrimSpace(out.Verdict.Body) == "" {
		return nil, fmt.Errorf("%w: missing verdict", EAIMalformedResponse)
	}

	result := &domain.AnalysisResult{
		Score:   int(score),
		Signals: make([]domain.Signal, 0, len(out.Signals)),
		Verdict: domain.Verdict{
			Title: out.Verdict.Title,
			Body:  out.Verdict.Body,
		},
	}

	for _, s := range out.Signals {
		severity := domain.Severity(strings.ToLower(strings.TrimSpace(s.Severity)))
		if !severity.Valid() {
			severity = domain.SeverityMedium
		}
		result.Signals = append(result.Signals, domain.Signal{
			Emoji:       s.Emoji,
			Title:       s.Title,
			Description: s.Description,
			Severity:    severity,
		})
	}

	return result, nil
}

// analysisOutput represents the JSON structure returned by the model
type analysisOutput struct {
	Score   *float64       `json:"score"`
	Signals []outputSignal `json:"signals"`
	Verdict *outputVerdict `json:"verdict"`
}

type outputSignal struct {
	Emoji       string `json:"emoji"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type outputVerdict struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
