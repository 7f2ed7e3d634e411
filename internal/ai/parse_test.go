package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/nocap/internal/domain"
)

const validOutput = `{
  "score": 73,
  "signals": [
    {"emoji": "⏸️", "title": "Micro-pause", "description": "Slow answer", "severity": "medium"},
    {"emoji": "📖", "title": "Story doing cardio", "description": "Too long", "severity": "HIGH"},
    {"emoji": "🎭", "title": "Random detail", "description": "Unrelated stuff"}
  ],
  "verdict": {"title": "Story Doing Cardio", "body": "Bestie, this story has WiFi but no signal."}
}`

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```  ", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestParseAnalysis_Valid(t *testing.T) {
	for name, text := range map[string]string{
		"plain":  validOutput,
		"fenced": "```json\n" + validOutput + "\n```",
	} {
		t.Run(name, func(t *testing.T) {
			result, err := ParseAnalysis(text)
			require.NoError(t, err)

			assert.Equal(t, 73, result.Score)
			require.Len(t, result.Signals, 3)
			assert.Equal(t, domain.SeverityMedium, result.Signals[0].Severity)
			assert.Equal(t, domain.SeverityHigh, result.Signals[1].Severity, "severity is case-insensitive")
			assert.Equal(t, domain.SeverityMedium, result.Signals[2].Severity, "missing severity defaults to medium")
			assert.Equal(t, "Story Doing Cardio", result.Verdict.Title)
		})
	}
}

func TestParseAnalysis_UnknownSeverityBecomesMedium(t *testing.T) {
	text := `{"score": 0, "signals": [
		{"emoji":"a","title":"t","description":"d","severity":"extreme"},
		{"emoji":"b","title":"t","description":"d","severity":"low"},
		{"emoji":"c","title":"t","description":"d","severity":""}
	], "verdict": {"title":"Angel","body":"All good."}}`

	result, err := ParseAnalysis(text)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, domain.SeverityMedium, result.Signals[0].Severity)
	assert.Equal(t, domain.SeverityLow, result.Signals[1].Severity)
	assert.Equal(t, domain.SeverityMedium, result.Signals[2].Severity)
}

func TestParseAnalysis_Malformed(t *testing.T) {
	threeSignals := `[{"title":"a"},{"title":"b"},{"title":"c"}]`
	verdict := `{"title":"t","body":"b"}`

	tests := []struct {
		name string
		text string
	}{
		{"empty", "   "},
		{"not json", "The vibes are off, 73/100."},
		{"missing score", `{"signals": ` + threeSignals + `, "verdict": ` + verdict + `}`},
		{"score above range", `{"score": 101, "signals": ` + threeSignals + `, "verdict": ` + verdict + `}`},
		{"negative score", `{"score": -1, "signals": ` + threeSignals + `, "verdict": ` + verdict + `}`},
		{"fractional score", `{"score": 72.5, "signals": ` + threeSignals + `, "verdict": ` + verdict + `}`},
		{"score as string", `{"score": "73", "signals": ` + threeSignals + `, "verdict": ` + verdict + `}`},
		{"two signals", `{"score": 50, "signals": [{"title":"a"},{"title":"b"}], "verdict": ` + verdict + `}`},
		{"four signals", `{"score": 50, "signals": [{},{},{},{}], "verdict": ` + verdict + `}`},
		{"missing verdict", `{"score": 50, "signals": ` + threeSignals + `}`},
		{"blank verdict body", `{"score": 50, "signals": ` + threeSignals + `, "verdict": {"title":"t","body":"  "}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseAnalysis(tt.text)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, EAIMalformedResponse))
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt([]string{"where were you", "at the gym lol"}, domain.ContextDating)

	assert.Contains(t, prompt, "Context: dating")
	assert.Contains(t, prompt, "Message 1: where were you")
	assert.Contains(t, prompt, "Message 2: at the gym lol")
	assert.Contains(t, prompt, "return ONLY JSON")
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("complete", nil))

	err := WrapError("complete", EAITimeout)
	assert.True(t, errors.Is(err, EAITimeout))
	assert.Equal(t, "ai complete: ai request timed out", err.Error())
}
