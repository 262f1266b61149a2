// Package matcher is the deterministic local classifier. It is always
// available and serves as the fallback for the remote classifier.
package matcher

import (
	"strings"

	"action-engine/internal/actions/intent"
)

// Match classifies rawText with the ordered rule table.
// It never fails: no matching rule yields an unresolved intent.
func Match(rawText string) intent.ActionIntent {
	a, _ := MatchWithRule(rawText)
	return a
}

// MatchWithRule is Match that also reports the name of the matching rule,
// or "" when nothing matched.
func MatchWithRule(rawText string) (intent.ActionIntent, string) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawText), ".!?")
	lower := strings.ToLower(trimmed)

	// Captured values keep the operator's casing when lowering kept byte offsets.
	source := trimmed
	if len(source) != len(lower) {
		source = lower
	}

	for _, r := range rules {
		loc := r.pattern.FindStringSubmatchIndex(lower)
		if loc == nil {
			continue
		}
		g := make(groups, len(loc)/2)
		for i := range g {
			if start, end := loc[2*i], loc[2*i+1]; start >= 0 {
				g[i] = source[start:end]
			}
		}
		return intent.New(r.kind, intent.MatchedConfidence, r.extract(g), rawText), r.name
	}

	return intent.New(intent.Unresolved, intent.UnmatchedConfidence, nil, rawText), ""
}

// RuleNames lists rule names in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}
