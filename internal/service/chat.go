package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/citewise/internal/citation"
	"github.com/cloo-solutions/citewise/internal/complexity"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/prompt"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// CompletionClient generates the answer text for a prompt
type CompletionClient interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ChatConfig holds the per-deployment knobs of a chat turn
type ChatConfig struct {
	Model     string
	MinChunks int
	MaxChunks int
}

// ChatService answers questions within a session
type ChatService struct {
	scorer      *complexity.Scorer
	retrieval   *RetrievalService
	assembler   *prompt.Assembler
	completion  CompletionClient
	transcripts TranscriptRepositoryInterface
	cfg         ChatConfig
	now         func() time.Time
}

// NewChatService creates a new ChatService. retrieval may be nil, in which
// case every answer uses the ungrounded prompt.
func NewChatService(
	scorer *complexity.Scorer,
	retrieval *RetrievalService,
	assembler *prompt.Assembler,
	completion CompletionClient,
	transcripts TranscriptRepositoryInterface,
	cfg ChatConfig,
) *ChatService {
	if scorer == nil {
		scorer = complexity.DefaultScorer()
	}
	if assembler == nil {
		assembler = prompt.NewAssembler()
	}
	if cfg.MinChunks == 0 && cfg.MaxChunks == 0 {
		cfg.MinChunks = complexity.DefaultMinChunks
		cfg.MaxChunks = complexity.DefaultMaxChunks
	}
	return &ChatService{
		scorer:      scorer,
		retrieval:   retrieval,
		assembler:   assembler,
		completion:  completion,
		transcripts: transcripts,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AskInput is one question in a session
type AskInput struct {
	UserID      string
	Question    string
	DateRange   domain.DateRange
	ShowSources bool
}

// AskOutput is the answer to one question
type AskOutput struct {
	SessionID   string
	Answer      string
	HTML        string
	Sources     []domain.RetrievedChunk
	Grounded    bool
	Score       int
	Budget      int
	Explanation string
	ChunkInfo   string
	// TurnIndex is the position of the assistant turn in the session.
	TurnIndex int
	// OutOfRange lists cited indices with no matching source.
	OutOfRange []int
}

// Analysis is the complexity assessment of a question without answering it
type Analysis struct {
	Score       int
	Budget      int
	Explanation string
}

// Analyze scores a question and reports the chunk budget it would get.
func (s *ChatService) Analyze(question string) Analysis {
	a := s.scorer.Analyze(question)
	return Analysis{
		Score:       a.Score,
		Budget:      complexity.Budget(a.Score, s.cfg.MinChunks, s.cfg.MaxChunks),
		Explanation: a.Explain(),
	}
}

// Ask answers the question and appends the exchange to the session. When any
// collaborator fails the error is returned and the session is left unchanged.
func (s *ChatService) Ask(ctx context.Context, sess *domain.Session, input AskInput) (*AskOutput, error) {
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Ask", telemetry.SpanAttributes{
		UserID:    input.UserID,
		SessionID: sess.ID,
		Operation: "ask",
	})
	defer span.End()

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	analysis := s.Analyze(question)
	span.SetData("complexity_score", analysis.Score)
	span.SetData("chunk_budget", analysis.Budget)

	grounded := s.retrieval.Enabled()
	var chunks []domain.RetrievedChunk
	if grounded {
		var err error
		chunks, err = s.retrieval.Retrieve(ctx, question, input.DateRange, analysis.Budget)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		chunks = prompt.Truncate(chunks, analysis.Budget)
	}

	text := s.assembler.Build(prompt.Input{
		Grounded:   grounded,
		Chunks:     chunks,
		Budget:     analysis.Budget,
		Transcript: sess.Turns,
		Question:   question,
	})

	answer, err := s.completion.Complete(ctx, s.cfg.Model, text)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrCompletionFailed.WithCause(err)
	}

	var chunkInfo string
	var sourcesJSON []byte
	if grounded {
		chunkInfo = fmt.Sprintf("%d chunks selected dynamically", analysis.Budget)
		sourcesJSON, err = encodeSources(chunks)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	entry := &domain.TranscriptEntry{
		SessionID:   sess.ID,
		UserID:      input.UserID,
		Question:    question,
		Answer:      answer,
		SourcesJSON: sourcesJSON,
		ChunkInfo:   chunkInfo,
		CreatedAt:   now,
	}
	if err := domain.ValidateTranscriptEntry(entry); err != nil {
		return nil, err
	}
	if err := s.transcripts.Append(ctx, entry); err != nil {
		span.SetError(err)
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}

	if err := sess.Append(domain.Turn{Role: domain.RoleUser, Text: question, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := sess.Append(domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      answer,
		Sources:   chunks,
		ChunkInfo: chunkInfo,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	var outOfRange []int
	if grounded {
		outOfRange = citation.OutOfRange(answer, len(chunks))
		if len(outOfRange) > 0 {
			log.Printf("chat: session %s cites missing sources %v (have %d)", sess.ID, outOfRange, len(chunks))
		}
	}

	renderer := citation.Renderer{ShowSources: input.ShowSources && grounded, SourceCount: len(chunks)}

	return &AskOutput{
		SessionID:   sess.ID,
		Answer:      answer,
		HTML:        renderer.Render(answer),
		Sources:     chunks,
		Grounded:    grounded,
		Score:       analysis.Score,
		Budget:      analysis.Budget,
		Explanation: analysis.Explanation,
		ChunkInfo:   chunkInfo,
		TurnIndex:   sess.Len() - 1,
		OutOfRange:  outOfRange,
	}, nil
}
