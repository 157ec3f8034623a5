package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	segs := Split("Eligibility requires income verification [1,2].")

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Text: "Eligibility requires income verification "}, segs[0])
	assert.Equal(t, Segment{Text: "[1,2]", Marker: true, Sources: []int{1, 2}}, segs[1])
	assert.Equal(t, Segment{Text: "."}, segs[2])
}

func TestSplitWithoutMarkers(t *testing.T) {
	segs := Split("No citations here [a] [].")

	require.Len(t, segs, 1)
	assert.False(t, segs[0].Marker)
}

func TestMarkers(t *testing.T) {
	got := Markers("A [1]. B [2, 3]. C [10,11,12]. D [x].")

	assert.Equal(t, [][]int{{1}, {2, 3}, {10, 11, 12}}, got)
}

func TestRenderWithSources(t *testing.T) {
	r := Renderer{ShowSources: true}

	got := r.Render("Eligibility requires income verification [1,2].")

	assert.Equal(t,
		`Eligibility requires income verification <span style="color: #ff4b4b; font-weight: bold;">`+
			`<a href="#source_1" data-sources="1,2" style="color: #ff4b4b; text-decoration: none;">[1,2]</a></span>.`,
		got)
}

func TestRenderWithoutSources(t *testing.T) {
	r := Renderer{ShowSources: false}

	got := r.Render("Eligibility requires income verification [1,2].")

	assert.Equal(t,
		`Eligibility requires income verification <span style="color: #ff4b4b; font-weight: bold;">[1,2]</span>.`,
		got)
	assert.NotContains(t, got, "href")
}

func TestRenderPreservesParagraphs(t *testing.T) {
	r := Renderer{ShowSources: true}

	got := r.RenderParagraphs("First [1].\n\nSecond [2].\n")

	require.Len(t, got, 4)
	assert.Contains(t, got[0], "First ")
	assert.Contains(t, got[0], `href="#source_1"`)
	assert.Equal(t, "", got[1])
	assert.Contains(t, got[2], `href="#source_2"`)
	assert.Equal(t, "", got[3])
}

func TestRenderEscapesText(t *testing.T) {
	r := Renderer{}

	got := r.Render(`Use <b>form</b> & "sign" [1]`)

	assert.Contains(t, got, "Use &lt;b&gt;form&lt;/b&gt; &amp; &#34;sign&#34; ")
	assert.Contains(t, got, ">[1]</span>")
}

func TestRenderOutOfRangeMarkerIsNotLinked(t *testing.T) {
	r := Renderer{ShowSources: true, SourceCount: 3}

	got := r.Render("Known [2]. Unknown [7]. Mixed [3,4].")

	assert.Contains(t, got, `href="#source_2"`)
	assert.NotContains(t, got, "source_7")
	assert.NotContains(t, got, `href="#source_3"`)
	assert.Contains(t, got, `<span style="color: #ff4b4b; font-weight: bold;">[7]</span>`)
	assert.Contains(t, got, `<span style="color: #ff4b4b; font-weight: bold;">[3,4]</span>`)
}

func TestOutOfRange(t *testing.T) {
	assert.Equal(t, []int{7, 0}, OutOfRange("a [1,7] b [7] c [0]", 3))
	assert.Nil(t, OutOfRange("a [1] b [3]", 3))
}

func TestPlainText(t *testing.T) {
	rendered := Renderer{ShowSources: true}.Render("Income matters [1,2] &amp; more.")

	assert.Equal(t, "Income matters [1,2] &amp; more.", PlainText(rendered))
	assert.Equal(t, "line one\nline two [3]", PlainText("  line one\nline two [3]  "))
}

func TestPlainText_KeepsBackslashes(t *testing.T) {
	answer := `Save the export to C:\new\reports and quote it as \"final\".`

	assert.Equal(t, answer, PlainText(answer))
}
