// Package citation finds "[n]" / "[n,m]" markers in answers and renders them
// for display.
package citation

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// MarkerPattern matches one citation marker.
var MarkerPattern = regexp.MustCompile(`\[\d+(?:,\s*\d+)*\]`)

var (
	digitsPattern = regexp.MustCompile(`\d+`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

const (
	highlightStyle = "color: #ff4b4b; font-weight: bold;"
	linkStyle      = "color: #ff4b4b; text-decoration: none;"
)

// Segment is a piece of one paragraph: either plain text or a marker.
type Segment struct {
	Text    string
	Marker  bool
	Sources []int // 1-based, set for markers
}

// Split breaks a paragraph into text and marker segments, in order.
func Split(paragraph string) []Segment {
	var segs []Segment
	last := 0
	for _, loc := range MarkerPattern.FindAllStringIndex(paragraph, -1) {
		if loc[0] > last {
			segs = append(segs, Segment{Text: paragraph[last:loc[0]]})
		}
		marker := paragraph[loc[0]:loc[1]]
		segs = append(segs, Segment{Text: marker, Marker: true, Sources: indices(marker)})
		last = loc[1]
	}
	if last < len(paragraph) {
		segs = append(segs, Segment{Text: paragraph[last:]})
	}
	return segs
}

// Paragraphs splits text on line breaks. Every line is its own rendering
// unit; empty lines are kept.
func Paragraphs(text string) []string {
	return strings.Split(text, "\n")
}

// Markers returns the source indices of every marker in text, in order of appearance.
func Markers(text string) [][]int {
	var out [][]int
	for _, m := range MarkerPattern.FindAllString(text, -1) {
		out = append(out, indices(m))
	}
	return out
}

// OutOfRange returns the distinct cited indices outside [1, sourceCount].
func OutOfRange(text string, sourceCount int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, group := range Markers(text) {
		for _, n := range group {
			if (n < 1 || n > sourceCount) && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Renderer turns answer text into HTML.
type Renderer struct {
	// ShowSources links markers to "#source_<n>" anchors of the source list.
	ShowSources bool
	// SourceCount is the number of sources shown for the turn. Markers citing
	// an index above it stay highlighted but are not linked. Zero disables the check.
	SourceCount int
}

// RenderParagraphs returns one HTML fragment per input line. Empty lines
// yield empty fragments.
func (r Renderer) RenderParagraphs(text string) []string {
	lines := Paragraphs(text)
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out[i] = r.renderParagraph(line)
	}
	return out
}

// Render returns the HTML for the whole answer, paragraphs joined by "\n".
func (r Renderer) Render(text string) string {
	return strings.Join(r.RenderParagraphs(text), "\n")
}

func (r Renderer) renderParagraph(p string) string {
	var b strings.Builder
	for _, seg := range Split(p) {
		if !seg.Marker {
			b.WriteString(html.EscapeString(seg.Text))
			continue
		}
		b.WriteString(r.renderMarker(seg))
	}
	return b.String()
}

func (r Renderer) renderMarker(seg Segment) string {
	if !r.ShowSources || !r.linkable(seg.Sources) {
		return fmt.Sprintf(`<span style="%s">%s</span>`, highlightStyle, seg.Text)
	}
	return fmt.Sprintf(`<span style="%s"><a href="#%s" data-sources="%s" style="%s">%s</a></span>`,
		highlightStyle, Anchor(seg.Sources[0]), joinInts(seg.Sources, ","), linkStyle, seg.Text)
}

func (r Renderer) linkable(sources []int) bool {
	if len(sources) == 0 {
		return false
	}
	if r.SourceCount <= 0 {
		return true
	}
	for _, n := range sources {
		if n < 1 || n > r.SourceCount {
			return false
		}
	}
	return true
}

// Anchor is the element id of the n-th source in a rendered source list.
func Anchor(n int) string {
	return "source_" + strconv.Itoa(n)
}

// PlainText strips markup from rendered or raw answer text, keeping the
// citation markers, for download as a text file.
func PlainText(text string) string {
	clean := tagPattern.ReplaceAllString(text, "")
	clean = html.UnescapeString(clean)
	return strings.TrimSpace(clean)
}

func indices(marker string) []int {
	digits := digitsPattern.FindAllString(marker, -1)
	out := make([]int, 0, len(digits))
	for _, d := range digits {
		n, err := strconv.Atoi(d)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, sep)
}
