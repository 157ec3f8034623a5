package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how documents are split for the search index.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1500,
		MinChars:  500,
		Overlap:   200,
		MaxChunks: 500,
	}
}

// chunkText splits text into overlapping windows of at most MaxChars runes.
// Each window ends at the latest paragraph break past MinChars, else the latest
// sentence end, else the latest whitespace.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			minCut := start + cfg.MinChars
			if minCut >= end {
				minCut = start
			}
			end = bestCut(runes, minCut, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			next = end - cfg.Overlap
			// Start the overlap on a word boundary.
			for next < end && !unicode.IsSpace(runes[next-1]) {
				next++
			}
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func bestCut(runes []rune, lo, hi int) int {
	for i := hi; i > lo+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := hi; i > lo+1; i-- {
		if unicode.IsSpace(runes[i-1]) && strings.ContainsRune(".!?", runes[i-2]) {
			return i
		}
	}
	for i := hi; i > lo; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return hi
}
