package ai

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultBlockList holds the self-harm phrases that stop a scan before it
// reaches the provider.
var DefaultBlockList = []string{"suicide", "kill myself", "self-harm", "end it all"}

// SafetyFilter matches the joined excerpt against a fixed block-list,
// ignoring case.
type SafetyFilter struct {
	terms []string
}

// NewSafetyFilter creates a filter for terms.
func NewSafetyFilter(terms []string) *SafetyFilter {
	folder := cases.Fold()
	folded := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			folded = append(folded, folder.String(t))
		}
	}
	return &SafetyFilter{terms: folded}
}

// Blocked reports whether any term appears anywhere in the space-joined messages.
// It returns the matched term for logging.
func (f *SafetyFilter) Blocked(messages []string) (string, bool) {
	text := cases.Fold().String(strings.Join(messages, " "))
	for _, term := range f.terms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}
