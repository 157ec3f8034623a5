// Package complexity scores how demanding a question is and turns the score
// into a retrieval depth ("chunk budget").
package complexity

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinScore = 1
	MaxScore = 10

	DefaultMinChunks = 3
	DefaultMaxChunks = 15
)

// Analysis is the breakdown of the signals found in one question.
type Analysis struct {
	WordCount       int
	Indicators      int
	KeywordHits     int
	MatchedKeywords []string // vocabulary order
	Conjunctions    int
	PatternMatched  bool
	Score           int
}

// Scorer computes complexity scores from a Vocabulary. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	vocab    Vocabulary
	patterns []*regexp.Regexp
}

// NewScorer compiles the vocabulary patterns.
func NewScorer(vocab Vocabulary) (*Scorer, error) {
	patterns := make([]*regexp.Regexp, 0, len(vocab.Patterns))
	for _, p := range vocab.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Scorer{vocab: vocab, patterns: patterns}, nil
}

// DefaultScorer returns a scorer over DefaultVocabulary.
func DefaultScorer() *Scorer {
	s, err := NewScorer(DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return s
}

// Analyze evaluates every signal of the question.
func (s *Scorer) Analyze(question string) Analysis {
	q := strings.ToLower(question)

	a := Analysis{WordCount: len(strings.Fields(question))}
	a.Indicators = countAll(q, s.vocab.QuestionIndicators)
	for _, kw := range s.vocab.ComplexKeywords {
		if n := strings.Count(q, strings.ToLower(kw)); n > 0 {
			a.KeywordHits += n
			a.MatchedKeywords = append(a.MatchedKeywords, kw)
		}
	}
	a.Conjunctions = countAll(q, s.vocab.Conjunctions)
	for _, re := range s.patterns {
		if re.MatchString(q) {
			a.PatternMatched = true
			break
		}
	}

	score := MinScore
	score += lengthPoints(a.WordCount)
	score += indicatorPoints(a.Indicators)
	score += keywordPoints(a.KeywordHits)
	score += conjunctionPoints(a.Conjunctions)
	if a.PatternMatched {
		score += 2
	}
	a.Score = min(score, MaxScore)
	return a
}

// Score returns the complexity of the question in [MinScore, MaxScore].
func (s *Scorer) Score(question string) int {
	return s.Analyze(question).Score
}

// Budget returns the number of chunks to retrieve for the question.
func (s *Scorer) Budget(question string, minChunks, maxChunks int) int {
	return Budget(s.Score(question), minChunks, maxChunks)
}

// Budget maps a score onto [minChunks, maxChunks] linearly, so score 1 gives
// minChunks and score 10 gives maxChunks. Bounds below 1 or inverted bounds
// are normalised rather than rejected.
func Budget(score, minChunks, maxChunks int) int {
	if minChunks < 1 {
		minChunks = 1
	}
	if maxChunks < minChunks {
		maxChunks = minChunks
	}
	score = max(MinScore, min(score, MaxScore))

	n := minChunks + (score-1)*(maxChunks-minChunks)/(MaxScore-MinScore)
	return max(minChunks, min(n, maxChunks))
}

func countAll(q string, terms []string) int {
	total := 0
	for _, t := range terms {
		if t == "" {
			continue
		}
		total += strings.Count(q, strings.ToLower(t))
	}
	return total
}

func lengthPoints(words int) int {
	switch {
	case words > 50:
		return 3
	case words > 30:
		return 2
	case words > 15:
		return 1
	}
	return 0
}

func indicatorPoints(n int) int {
	switch {
	case n > 3:
		return 2
	case n > 2:
		return 1
	}
	return 0
}

func keywordPoints(n int) int {
	switch {
	case n > 5:
		return 3
	case n > 3:
		return 2
	case n > 1:
		return 1
	}
	return 0
}

func conjunctionPoints(n int) int {
	switch {
	case n > 2:
		return 2
	case n > 0:
		return 1
	}
	return 0
}
