package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"short text"}, chunkText("  short text \n", DefaultChunkConfig()))
	assert.Nil(t, chunkText("   ", DefaultChunkConfig()))
}

func TestChunkText_PrefersParagraphBreaks(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 60, MinChars: 10, Overlap: 0}
	text := "First paragraph is here. It has two sentences.\n\nSecond paragraph follows and is long enough."

	chunks := chunkText(text, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "First paragraph is here. It has two sentences.", chunks[0])
}

func TestChunkText_FallsBackToSentenceEnds(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 40, MinChars: 10, Overlap: 0}
	text := "One short sentence. Another sentence that runs past the limit."

	chunks := chunkText(text, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "One short sentence.", chunks[0])
}

func TestChunkText_RespectsLimits(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 100, MinChars: 30, Overlap: 20, MaxChunks: 5}
	text := strings.Repeat("word ", 500)

	chunks := chunkText(text, cfg)

	assert.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
}

func TestChunkText_Overlap(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 30, MinChars: 5, Overlap: 10}
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"

	chunks := chunkText(text, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	last := strings.Fields(chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], last[len(last)-1]) || strings.Contains(chunks[1], last[len(last)-1]))
}
