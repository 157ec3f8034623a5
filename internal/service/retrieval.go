package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// SearchMode selects which indexes a retrieval consults.
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeLexical  SearchMode = "lexical"
	// SearchModeOff disables retrieval; answers use the ungrounded prompt.
	SearchModeOff SearchMode = "off"
)

const (
	defaultCandidateMultiplier = 4
	defaultMinCandidates       = 20
	defaultMaxCandidates       = 200

	rrfK           = 60
	semanticWeight = 1.0
	lexicalWeight  = 0.85
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {}, "not": {},
}

// ParseSearchMode normalises a configured mode, defaulting to hybrid.
func ParseSearchMode(mode string) SearchMode {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(SearchModeSemantic):
		return SearchModeSemantic
	case string(SearchModeLexical):
		return SearchModeLexical
	case string(SearchModeOff), "none", "disabled":
		return SearchModeOff
	default:
		return SearchModeHybrid
	}
}

// RetrievalService fetches the chunks that ground an answer
type RetrievalService struct {
	repo      ChunkSearchRepository
	embedding EmbeddingClient
	mode      SearchMode
}

// NewRetrievalService creates a new RetrievalService. Without an embedding
// client only lexical search is available.
func NewRetrievalService(repo ChunkSearchRepository, embedding EmbeddingClient, mode SearchMode) *RetrievalService {
	if embedding == nil && mode != SearchModeOff {
		mode = SearchModeLexical
	}
	return &RetrievalService{repo: repo, embedding: embedding, mode: mode}
}

// Enabled reports whether answers are grounded on retrieval.
func (s *RetrievalService) Enabled() bool {
	return s != nil && s.repo != nil && s.mode != SearchModeOff
}

// Mode returns the effective search mode.
func (s *RetrievalService) Mode() SearchMode {
	return s.mode
}

// Retrieve returns at most limit chunks for the question, most relevant
// first, restricted to the effective-date range. Any collaborator failure is
// reported as ErrSearchUnavailable.
func (s *RetrievalService) Retrieve(ctx context.Context, question string, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		Operation:   "retrieve",
		ChunkBudget: limit,
	})
	defer span.End()

	query := strings.TrimSpace(question)
	if query == "" || limit <= 0 || !s.Enabled() {
		return []domain.RetrievedChunk{}, nil
	}
	if err := dates.Validate(); err != nil {
		return nil, err
	}

	candidateLimit := limit * defaultCandidateMultiplier
	if candidateLimit < defaultMinCandidates {
		candidateLimit = defaultMinCandidates
	}
	if candidateLimit > defaultMaxCandidates {
		candidateLimit = defaultMaxCandidates
	}

	var semantic, lexical []domain.RetrievedChunk

	if s.mode != SearchModeLexical {
		embedding, err := s.embedding.GenerateEmbedding(ctx, query)
		if err != nil {
			span.SetError(err)
			return nil, domain.ErrSearchUnavailable.WithCause(err)
		}
		semantic, err = s.repo.SearchChunksSemantic(ctx, embedding, dates, candidateLimit)
		if err != nil {
			span.SetError(err)
			return nil, domain.ErrSearchUnavailable.WithCause(err)
		}
	}

	if s.mode != SearchModeSemantic {
		if keywords := lexicalQuery(query); keywords != "" {
			var err error
			lexical, err = s.repo.SearchChunksLexical(ctx, keywords, dates, candidateLimit)
			if err != nil {
				span.SetError(err)
				return nil, domain.ErrSearchUnavailable.WithCause(err)
			}
		}
	}

	var merged []domain.RetrievedChunk
	switch s.mode {
	case SearchModeSemantic:
		merged = dedupeChunks(semantic)
	case SearchModeLexical:
		merged = dedupeChunks(lexical)
	default:
		merged = mergeHybridChunks(semantic, lexical)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func chunkKey(c domain.RetrievedChunk) string {
	return c.SourceID + "#" + strconv.Itoa(c.ChunkIndex)
}

func dedupeChunks(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		key := chunkKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

type fusionCandidate struct {
	chunk    domain.RetrievedChunk
	rrfScore float32
	firstAt  int
}

// mergeHybridChunks fuses the two rankings with weighted reciprocal rank fusion.
func mergeHybridChunks(semantic, lexical []domain.RetrievedChunk) []domain.RetrievedChunk {
	candidates := make(map[string]*fusionCandidate)
	seen := 0
	addList := func(list []domain.RetrievedChunk, weight float32) {
		for i, c := range list {
			key := chunkKey(c)
			cand, ok := candidates[key]
			if !ok {
				cand = &fusionCandidate{chunk: c, firstAt: seen}
				candidates[key] = cand
				seen++
			}
			cand.rrfScore += weight / float32(rrfK+i+1)
		}
	}

	addList(semantic, semanticWeight)
	addList(lexical, lexicalWeight)

	ordered := make([]*fusionCandidate, 0, len(candidates))
	for _, cand := range candidates {
		ordered = append(ordered, cand)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].rrfScore != ordered[j].rrfScore {
			return ordered[i].rrfScore > ordered[j].rrfScore
		}
		return ordered[i].firstAt < ordered[j].firstAt
	})

	out := make([]domain.RetrievedChunk, 0, len(ordered))
	for _, cand := range ordered {
		c := cand.chunk
		c.Score = cand.rrfScore
		out = append(out, c)
	}
	return out
}

// lexicalQuery drops stopwords and punctuation and joins the remaining terms
// with "or" so that any of them can match.
func lexicalQuery(query string) string {
	var tokens []string
	for _, token := range strings.FieldsFunc(query, unicode.IsSpace) {
		clean := strings.ToLower(strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if clean == "" {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		tokens = append(tokens, clean)
	}
	return strings.Join(tokens, " or ")
}
