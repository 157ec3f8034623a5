package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const simpleQuestion = "Is parking permitted"

func testChunks(n int) []domain.RetrievedChunk {
	chunks := make([]domain.RetrievedChunk, n)
	for i := range chunks {
		chunks[i] = domain.RetrievedChunk{
			Text:       fmt.Sprintf("chunk text %d", i+1),
			SourceID:   fmt.Sprintf("policies/doc%d.pdf", i+1),
			ChunkIndex: i,
		}
	}
	return chunks
}

type chatFixture struct {
	search      *MockSearchRepo
	completion  *MockCompletionClient
	transcripts *MockTranscriptRepo
	service     *ChatService
}

func newChatFixture(grounded bool) *chatFixture {
	f := &chatFixture{
		search:      new(MockSearchRepo),
		completion:  new(MockCompletionClient),
		transcripts: new(MockTranscriptRepo),
	}
	var retrieval *RetrievalService
	if grounded {
		retrieval = NewRetrievalService(f.search, nil, SearchModeLexical)
	}
	f.service = NewChatService(nil, retrieval, prompt.NewAssembler(), f.completion, f.transcripts, ChatConfig{
		Model:     "gpt-test",
		MinChunks: 3,
		MaxChunks: 15,
	})
	return f
}

func TestChatService_Ask_Grounded(t *testing.T) {
	f := newChatFixture(true)
	ctx := context.Background()
	sess := domain.NewSession()

	f.search.On("SearchChunksLexical", mock.Anything, "parking or permitted", domain.DateRange{}, 20).
		Return(testChunks(5), nil)
	f.completion.On("Complete", mock.Anything, "gpt-test", mock.AnythingOfType("string")).
		Return("Parking is permitted [1,2].\n\nSee also [3].", nil)
	f.transcripts.On("Append", mock.Anything, mock.AnythingOfType("*domain.TranscriptEntry")).Return(nil)

	out, err := f.service.Ask(ctx, sess, AskInput{UserID: "alice", Question: simpleQuestion, ShowSources: true})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Score)
	assert.Equal(t, 3, out.Budget)
	assert.True(t, out.Grounded)
	assert.Len(t, out.Sources, 3)
	assert.Equal(t, "3 chunks selected dynamically", out.ChunkInfo)
	assert.Equal(t, "Complexity: 1/10 (Simple, direct question)", out.Explanation)
	assert.Equal(t, 1, out.TurnIndex)
	assert.Empty(t, out.OutOfRange)
	assert.Contains(t, out.HTML, `href="#source_1"`)

	sent := f.completion.Calls[0].Arguments.String(2)
	assert.Contains(t, sent, "Source 3 - policies/doc3.pdf")
	assert.NotContains(t, sent, "Source 4")
	assert.Contains(t, sent, "Make use of all 3 sources")
	assert.True(t, strings.HasSuffix(sent, "\nUser: "+simpleQuestion))

	entry := f.transcripts.Calls[0].Arguments.Get(1).(*domain.TranscriptEntry)
	assert.Equal(t, sess.ID, entry.SessionID)
	assert.Equal(t, "alice", entry.UserID)
	assert.Equal(t, "3 chunks selected dynamically", entry.ChunkInfo)
	assert.NotEmpty(t, entry.SourcesJSON)

	require.Equal(t, 2, sess.Len())
	assert.Equal(t, domain.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, simpleQuestion, sess.Turns[0].Text)
	assert.Equal(t, domain.RoleAssistant, sess.Turns[1].Role)
	assert.Len(t, sess.Turns[1].Sources, 3)

	f.search.AssertExpectations(t)
	f.completion.AssertExpectations(t)
	f.transcripts.AssertExpectations(t)
}

func TestChatService_Ask_IncludesTranscript(t *testing.T) {
	f := newChatFixture(false)
	sess := domain.RestoreSession("s-1", []domain.Turn{
		{Role: domain.RoleUser, Text: "First question"},
		{Role: domain.RoleAssistant, Text: "First answer"},
	})

	f.completion.On("Complete", mock.Anything, "gpt-test", mock.AnythingOfType("string")).Return("Second answer", nil)
	f.transcripts.On("Append", mock.Anything, mock.Anything).Return(nil)

	out, err := f.service.Ask(context.Background(), sess, AskInput{UserID: "alice", Question: "Second question"})
	require.NoError(t, err)

	sent := f.completion.Calls[0].Arguments.String(2)
	assert.Contains(t, sent, "User: First question\n\nAssistant: First answer\n\n\nUser: Second question")
	assert.Equal(t, 3, out.TurnIndex)
	assert.Equal(t, 4, sess.Len())
}

func TestChatService_Ask_Ungrounded(t *testing.T) {
	f := newChatFixture(false)
	sess := domain.NewSession()

	f.completion.On("Complete", mock.Anything, "gpt-test", mock.AnythingOfType("string")).Return("General answer [1].", nil)
	f.transcripts.On("Append", mock.Anything, mock.Anything).Return(nil)

	out, err := f.service.Ask(context.Background(), sess, AskInput{UserID: "alice", Question: simpleQuestion, ShowSources: true})
	require.NoError(t, err)

	assert.False(t, out.Grounded)
	assert.Empty(t, out.Sources)
	assert.Empty(t, out.ChunkInfo)
	assert.NotContains(t, out.HTML, "href=")

	sent := f.completion.Calls[0].Arguments.String(2)
	assert.NotContains(t, sent, "Context:")
	assert.NotContains(t, sent, "Sources:")

	entry := f.transcripts.Calls[0].Arguments.Get(1).(*domain.TranscriptEntry)
	assert.Nil(t, entry.SourcesJSON)
	f.search.AssertNotCalled(t, "SearchChunksLexical", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Ask_EmptyQuestion(t *testing.T) {
	f := newChatFixture(true)
	sess := domain.NewSession()

	_, err := f.service.Ask(context.Background(), sess, AskInput{Question: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Equal(t, 0, sess.Len())
	f.completion.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Ask_SearchFailureLeavesSessionUnchanged(t *testing.T) {
	f := newChatFixture(true)
	sess := domain.RestoreSession("s-1", []domain.Turn{{Role: domain.RoleUser, Text: "earlier"}})

	f.search.On("SearchChunksLexical", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := f.service.Ask(context.Background(), sess, AskInput{Question: simpleQuestion})

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	assert.Equal(t, 1, sess.Len())
	f.completion.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	f.transcripts.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestChatService_Ask_CompletionFailureLeavesSessionUnchanged(t *testing.T) {
	f := newChatFixture(true)
	sess := domain.NewSession()

	f.search.On("SearchChunksLexical", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(testChunks(3), nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := f.service.Ask(context.Background(), sess, AskInput{Question: simpleQuestion})

	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.Equal(t, 0, sess.Len())
	f.transcripts.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestChatService_Ask_StoreFailureLeavesSessionUnchanged(t *testing.T) {
	f := newChatFixture(true)
	sess := domain.NewSession()

	f.search.On("SearchChunksLexical", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(testChunks(3), nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("answer [1]", nil)
	f.transcripts.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := f.service.Ask(context.Background(), sess, AskInput{Question: simpleQuestion})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 0, sess.Len())
}

func TestChatService_Ask_InvalidEntryIsNotPersisted(t *testing.T) {
	f := newChatFixture(false)
	sess := domain.RestoreSession("", nil)

	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)

	_, err := f.service.Ask(context.Background(), sess, AskInput{Question: simpleQuestion})

	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	assert.Equal(t, 0, sess.Len())
	f.transcripts.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestChatService_Ask_ReportsCitationsBeyondSources(t *testing.T) {
	f := newChatFixture(true)
	sess := domain.NewSession()

	f.search.On("SearchChunksLexical", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(testChunks(2), nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Yes [1], see [7].", nil)
	f.transcripts.On("Append", mock.Anything, mock.Anything).Return(nil)

	out, err := f.service.Ask(context.Background(), sess, AskInput{Question: simpleQuestion, ShowSources: true})
	require.NoError(t, err)

	assert.Equal(t, []int{7}, out.OutOfRange)
	assert.Contains(t, out.HTML, `href="#source_1"`)
	assert.NotContains(t, out.HTML, `href="#source_7"`)
	assert.Equal(t, "3 chunks selected dynamically", out.ChunkInfo)
}

func TestChatService_Ask_NilSession(t *testing.T) {
	f := newChatFixture(true)

	_, err := f.service.Ask(context.Background(), nil, AskInput{Question: simpleQuestion})

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatService_Analyze(t *testing.T) {
	f := newChatFixture(true)

	simple := f.service.Analyze("Hi")
	assert.Equal(t, 1, simple.Score)
	assert.Equal(t, 3, simple.Budget)

	detailed := f.service.Analyze("Can you explain all the requirements and eligibility criteria for the benefits, and how do I compare the different coverage options and exceptions?")
	assert.Greater(t, detailed.Score, simple.Score)
	assert.Greater(t, detailed.Budget, simple.Budget)
	assert.True(t, strings.HasPrefix(detailed.Explanation, fmt.Sprintf("Complexity: %d/10 (", detailed.Score)))
}
