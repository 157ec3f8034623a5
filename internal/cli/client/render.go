package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/citewise/internal/citation"
)

var (
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4b4b")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sourceStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const previewLimit = 300

// Source is one retrieved chunk as returned with an answer.
type Source struct {
	Index         int     `json:"index"`
	Anchor        string  `json:"anchor"`
	SourceID      string  `json:"source_id"`
	EffectiveDate string  `json:"effective_date,omitempty"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	Score         float32 `json:"score,omitempty"`
}

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// renderAnswer highlights citation markers line by line. Markers citing an
// index outside [1, sourceCount] are shown dimmed so they stand out as
// unsupported.
func renderAnswer(text string, sourceCount int) string {
	lines := citation.Paragraphs(text)
	for i, line := range lines {
		var b strings.Builder
		for _, seg := range citation.Split(line) {
			switch {
			case !seg.Marker:
				b.WriteString(seg.Text)
			case sourceCount > 0 && !inRange(seg.Sources, sourceCount):
				b.WriteString(dimStyle.Render(seg.Text))
			default:
				b.WriteString(markerStyle.Render(seg.Text))
			}
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

func inRange(indices []int, n int) bool {
	for _, i := range indices {
		if i < 1 || i > n {
			return false
		}
	}
	return true
}

func renderSources(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Sources (%d)", len(sources))))
	b.WriteString("\n")
	for _, s := range sources {
		title := fmt.Sprintf("[%d] %s", s.Index, s.SourceID)
		if s.EffectiveDate != "" {
			title += dimStyle.Render(" (Effective Date: " + s.EffectiveDate + ")")
		}
		b.WriteString(sourceStyle.Render(markerStyle.Render(title) + "\n" + preview(s.Text, previewLimit)))
		b.WriteString("\n")
	}
	return b.String()
}

func preview(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
