package ai

import (
	"fmt"
	"strings"

	"github.com/DukeRupert/nocap/internal/domain"
)

// SystemPrompt fixes the output contract every provider must follow.
const SystemPrompt = `You analyze short text conversations for an entertainment app and rate how evasive or inconsistent they read.

Return ONLY a JSON object with this exact structure and no other text:

{
  "score": 0-100 integer,
  "signals": [
    {"emoji": "single emoji", "title": "short pattern name", "description": "one sentence", "severity": "low|medium|high"}
  ],
  "verdict": {"title": "short headline", "body": "two or three short lines"}
}

Rules:
- Always exactly 3 signals
- Keep it playful and entertainment-framed; never claim to detect lies
- Never use clinical or mental health terms
- If the messages seem distressed, tone it down`

// BuildUserPrompt formats the excerpt as the user turn of the conversation.
func BuildUserPrompt(messages []string, scanContext domain.ScanContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n\nConversation:\n", scanContext)
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Message %d: %s", i+1, m)
	}
	b.WriteString("\n\nAnalyze and return ONLY JSON.")
	return b.String()
}
