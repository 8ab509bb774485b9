package rendering

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/career-roadmap/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRoadmap(t *testing.T) *types.CareerRoadmap {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "schemas", "testdata", "valid_roadmap.json"))
	require.NoError(t, err)
	var r types.CareerRoadmap
	require.NoError(t, json.Unmarshal(data, &r))
	return &r
}

func parse(t *testing.T, html []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	require.NoError(t, err)
	return doc
}

func render(t *testing.T, fn func(r *Renderer, buf *bytes.Buffer) error) []byte {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, fn(r, &buf))
	return buf.Bytes()
}

func TestRenderRoadmap_Structure(t *testing.T) {
	roadmap := loadRoadmap(t)
	out := render(t, func(r *Renderer, buf *bytes.Buffer) error { return r.RenderRoadmap(buf, roadmap) })
	doc := parse(t, out)

	assert.Equal(t, "Frontend Developer Roadmap", doc.Find("title").Text())
	assert.Equal(t, "Frontend Developer", doc.Find("h2.role").Text())
	assert.Equal(t, 2, doc.Find("ul.stack li").Length())
	assert.Contains(t, doc.Find(".time-to-job").Text(), "6 to 12 months")

	phases := doc.Find("section.phase")
	require.Equal(t, 2, phases.Length())
	assert.Contains(t, phases.Eq(0).Find(".phase-name").Text(), "Web Foundations")
	assert.Equal(t, "beginner", phases.Eq(0).AttrOr("data-level", ""))
	assert.Contains(t, phases.Eq(1).Find(".phase-name").Text(), "React and TypeScript")

	assert.Equal(t, 1, phases.Eq(0).Find(".projects").Length())
	assert.Equal(t, 0, phases.Eq(1).Find(".projects").Length(), "phase with zero projects renders no projects block")

	res := phases.Eq(0).Find(".resource")
	assert.Equal(t, "documentation", res.AttrOr("data-type", ""))
	assert.Equal(t, "https://developer.mozilla.org", res.Find("a").AttrOr("href", ""))
	assert.Equal(t, "40h", res.Find(".hours").Text())
	assert.Equal(t, 0, phases.Eq(1).Find(".resource .hours").Length(), "absent estimatedHours is not rendered")

	assert.Equal(t, 1, doc.Find(".certification").Length())
	assert.Equal(t, 1, doc.Find(".job-platforms li").Length())
	assert.Equal(t, 0, doc.Find(".contributors").Length())
}

func TestRenderRoadmap_Idempotent(t *testing.T) {
	roadmap := loadRoadmap(t)
	r, err := New()
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, r.RenderRoadmap(&a, roadmap))
	require.NoError(t, r.RenderRoadmap(&b, roadmap))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestRenderRoadmap_EscapesContent(t *testing.T) {
	roadmap := loadRoadmap(t)
	roadmap.Role = `<script>alert(1)</script>`
	roadmap.Phases[0].Resources[0].Link = "javascript:alert(1)"
	roadmap.Metadata.Contributors = []string{"Ada", "Grace"}

	out := render(t, func(r *Renderer, buf *bytes.Buffer) error { return r.RenderRoadmap(buf, roadmap) })
	assert.NotContains(t, string(out), "<script>alert(1)</script>")

	doc := parse(t, out)
	assert.NotContains(t, doc.Find(".resource a").First().AttrOr("href", ""), "javascript:")
	assert.Equal(t, "Ada, Grace", doc.Find(".contributors").Text())
}

func TestRenderRoadmap_Nil(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	var renderErr *RenderError
	assert.ErrorAs(t, r.RenderRoadmap(&bytes.Buffer{}, nil), &renderErr)
}

func TestRenderIndex(t *testing.T) {
	out := render(t, func(r *Renderer, buf *bytes.Buffer) error {
		return r.RenderIndex(buf, IndexData{Role: "Data Engineer", Stack: "Spark", Error: "An error occurred\x00 on   creating Roadmap"})
	})
	doc := parse(t, out)

	assert.Equal(t, "Data Engineer", doc.Find("#role").AttrOr("value", ""))
	assert.Equal(t, "Spark", doc.Find("#stack").AttrOr("value", ""))
	assert.Equal(t, "An error occurred on creating Roadmap", doc.Find("#error").Text())
	assert.Equal(t, 0, doc.Find("#roadmap").Length(), "failed submission never shows a roadmap")
}

func TestRenderIndex_WithRoadmap(t *testing.T) {
	roadmap := loadRoadmap(t)
	out := render(t, func(r *Renderer, buf *bytes.Buffer) error {
		return r.RenderIndex(buf, IndexData{Role: roadmap.Role, Roadmap: roadmap})
	})
	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find("#roadmap").Length())
	assert.Equal(t, 0, doc.Find("#error").Length())
}

func TestRenderFluency_Bands(t *testing.T) {
	result := &types.FluencyResult{
		Score: types.Scores{AccuracyScore: 88, FluencyScore: 70, CompletenessScore: 100, PronunciationScore: 81.5},
		WordWiseScore: []types.WordScore{
			{Word: "a", Score: 39}, {Word: "b", Score: 40}, {Word: "c", Score: 74},
			{Word: "d", Score: 75}, {Word: "e", Score: 100},
		},
		Transcript: "a b c d e",
	}
	out := render(t, func(r *Renderer, buf *bytes.Buffer) error {
		return r.RenderFluency(buf, FluencyPage{Language: "en", Endpoint: "/api/fluency", Ready: true, Result: result})
	})
	doc := parse(t, out)

	var classes []string
	doc.Find(".fluency-result .word").Each(func(_ int, s *goquery.Selection) {
		classes = append(classes, s.AttrOr("class", ""))
	})
	assert.Equal(t, []string{
		"word band-low", "word band-medium", "word band-medium", "word band-high", "word band-high",
	}, classes)
	assert.Equal(t, "81.5%", doc.Find(".pronunciation").Text())
	assert.Equal(t, "a b c d e", doc.Find(".transcript").Text())

	recorder := doc.Find("#recorder")
	assert.Equal(t, "en", recorder.AttrOr("data-language", ""))
	assert.Equal(t, "true", recorder.AttrOr("data-ready", ""))
	assert.Regexp(t, `var MEDIUM =\s*40\s*;`, doc.Find("script").Text())
}

func TestRenderFluency_ErrorSanitized(t *testing.T) {
	long := strings.Repeat("x", MaxDisplayTextLength+50)
	out := render(t, func(r *Renderer, buf *bytes.Buffer) error {
		return r.RenderFluency(buf, FluencyPage{Language: "en", Error: "<b>bad audio</b>\n" + long})
	})
	doc := parse(t, out)
	msg := doc.Find("#error").Text()
	assert.True(t, strings.HasPrefix(msg, "<b>bad audio</b> x"), msg)
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Equal(t, 0, doc.Find("#error b").Length())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRender_WriteFailure(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	err = r.RenderIndex(failingWriter{}, IndexData{})
	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}
