package complexity

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the term and pattern tables the scorer matches against.
// All terms are matched case-insensitively as substrings of the question.
type Vocabulary struct {
	QuestionIndicators []string `yaml:"question_indicators"`
	ComplexKeywords    []string `yaml:"complex_keywords"`
	Conjunctions       []string `yaml:"conjunctions"`
	Patterns           []string `yaml:"patterns"`
}

// DefaultVocabulary returns the built-in English tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		QuestionIndicators: []string{"?", "what", "how", "why", "when", "where", "who", "which"},
		ComplexKeywords: []string{
			"compare", "contrast", "analyze", "explain", "describe", "detail", "comprehensive",
			"thorough", "complete", "all", "every", "various", "different", "multiple",
			"process", "procedure", "steps", "requirements", "criteria", "conditions",
			"eligibility", "qualification", "documentation", "application", "enrollment",
			"benefits", "coverage", "services", "options", "alternatives", "exceptions",
		},
		// leading and trailing spaces are significant
		Conjunctions: []string{" and ", " or ", " but ", " also ", " additionally", " furthermore", " moreover"},
		Patterns: []string{
			`what are (?:all )?the .* for`,
			`how (?:do|can) i .* and .*`,
			`what is the difference between`,
			`can you (?:explain|describe|list) (?:all|the)`,
			`what (?:steps|process|procedure)`,
			`(?:list|show|tell me about) (?:all|every|the various)`,
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Tables missing from the file
// fall back to the defaults. An empty path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Vocabulary{}, fmt.Errorf("vocabulary file %s not found", path)
		}
		return Vocabulary{}, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}
	applyVocabularyDefaults(&v)
	return v, nil
}

func applyVocabularyDefaults(v *Vocabulary) {
	def := DefaultVocabulary()
	if len(v.QuestionIndicators) == 0 {
		v.QuestionIndicators = def.QuestionIndicators
	}
	if len(v.ComplexKeywords) == 0 {
		v.ComplexKeywords = def.ComplexKeywords
	}
	if len(v.Conjunctions) == 0 {
		v.Conjunctions = def.Conjunctions
	}
	if len(v.Patterns) == 0 {
		v.Patterns = def.Patterns
	}
}
