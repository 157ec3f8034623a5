// Package prompt builds the single prompt string sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/citewise/internal/domain"
)

const previewLength = 100

// Input is everything one prompt is built from.
type Input struct {
	// Grounded is false when no retrieval took place for this turn.
	Grounded bool
	// Chunks are ordered by relevance. Only the first Budget are used when
	// Budget is positive.
	Chunks     []domain.RetrievedChunk
	Budget     int
	Transcript []domain.Turn
	Question   string
}

// Templates holds the fixed prose around the generated sections.
type Templates struct {
	GroundedPreamble string
	// SourceNotes and GroundedInstructions may contain one %d for the source count.
	SourceNotes          string
	GroundedInstructions string
	Ungrounded           string
}

// Assembler renders prompts. The zero value is not usable; use NewAssembler.
type Assembler struct {
	tpl Templates
}

// NewAssembler returns an Assembler using the default templates.
func NewAssembler() *Assembler {
	return &Assembler{tpl: DefaultTemplates()}
}

// NewAssemblerWithTemplates returns an Assembler using custom templates.
func NewAssemblerWithTemplates(tpl Templates) *Assembler {
	return &Assembler{tpl: tpl}
}

// Build returns the complete prompt: system message, transcript, then the
// new question as the final "User:" line.
func (a *Assembler) Build(in Input) string {
	var system string
	if in.Grounded {
		system = a.System(in.Chunks, in.Budget)
	} else {
		system = a.tpl.Ungrounded
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n")
	b.WriteString(Transcript(in.Transcript))
	b.WriteString("\nUser: ")
	b.WriteString(in.Question)
	return b.String()
}

// System renders the grounded system message for the given chunks.
func (a *Assembler) System(chunks []domain.RetrievedChunk, budget int) string {
	chunks = Truncate(chunks, budget)
	n := len(chunks)

	var b strings.Builder
	b.WriteString(a.tpl.GroundedPreamble)
	b.WriteString("\n\nContext:\n")
	b.WriteString(Context(chunks))
	b.WriteString("\nSources:\n")
	b.WriteString(Previews(chunks))
	b.WriteString("\n")
	b.WriteString(formatCount(a.tpl.SourceNotes, n))
	b.WriteString("\n\n")
	b.WriteString(formatCount(a.tpl.GroundedInstructions, n))
	return b.String()
}

// Truncate keeps the first budget chunks. A non-positive budget keeps all.
func Truncate(chunks []domain.RetrievedChunk, budget int) []domain.RetrievedChunk {
	if budget > 0 && len(chunks) > budget {
		return chunks[:budget]
	}
	return chunks
}

// Context renders the numbered source blocks.
func Context(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "Source %d - %s", i+1, sourceTitle(c))
		if d := c.EffectiveDateString(); d != "" {
			fmt.Fprintf(&b, " (Effective Date: %s)", d)
		}
		fmt.Fprintf(&b, ":\n%s\n\n", c.Text)
	}
	return b.String()
}

// Previews renders the short citation-guidance list.
func Previews(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "Source %d: %s\n\n", i+1, Preview(c.Text))
	}
	return b.String()
}

// Preview returns the first 100 characters of text followed by "..." when
// the text is longer.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength]) + "..."
}

// Transcript serializes prior turns as "User: ..." / "Assistant: ..." blocks.
func Transcript(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		role := "User"
		if t.Role == domain.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, t.Text)
	}
	return b.String()
}

func sourceTitle(c domain.RetrievedChunk) string {
	if c.SourceID == "" {
		return "Unknown"
	}
	return c.SourceID
}

func formatCount(tpl string, n int) string {
	if strings.Contains(tpl, "%d") {
		return fmt.Sprintf(tpl, n)
	}
	return tpl
}
