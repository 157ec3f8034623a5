package complexity

import (
	"fmt"
	"strings"
)

const maxExplainedKeywords = 3

// Explain describes which signals contributed to the question's score.
// The score shown is the same one Score returns.
func (s *Scorer) Explain(question string) string {
	return s.Analyze(question).Explain()
}

// Explain renders the analysis as "Complexity: S/10 (signal; signal)".
func (a Analysis) Explain() string {
	var parts []string

	switch {
	case a.WordCount > 30:
		parts = append(parts, fmt.Sprintf("Long question (%d words)", a.WordCount))
	case a.WordCount > 15:
		parts = append(parts, fmt.Sprintf("Medium-length question (%d words)", a.WordCount))
	}

	if len(a.MatchedKeywords) > 0 {
		kws := a.MatchedKeywords
		if len(kws) > maxExplainedKeywords {
			kws = kws[:maxExplainedKeywords]
		}
		parts = append(parts, "Complex keywords detected: "+strings.Join(kws, ", "))
	}

	if indicatorPoints(a.Indicators) > 0 {
		parts = append(parts, fmt.Sprintf("Several question words (%d)", a.Indicators))
	}
	if conjunctionPoints(a.Conjunctions) > 0 {
		parts = append(parts, fmt.Sprintf("Multi-part question (%d conjunctions)", a.Conjunctions))
	}
	if a.PatternMatched {
		parts = append(parts, "Comprehensive information request")
	}

	if len(parts) == 0 {
		parts = append(parts, "Simple, direct question")
	}

	return fmt.Sprintf("Complexity: %d/%d (%s)", a.Score, MaxScore, strings.Join(parts, "; "))
}
