package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/jonathan/career-roadmap/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// shared templates parsed into every page
var baseFiles = []string{"templates/layout.html", "templates/error.html", "templates/roadmap.html"}

// page name -> file defining its "title" and "content" blocks
var pageFiles = map[string]string{
	"index":   "templates/index.html",
	"roadmap": "templates/roadmap_page.html",
	"fluency": "templates/fluency.html",
}

var funcs = template.FuncMap{
	"num":   formatNumber,
	"deref": func(f *float64) float64 { return *f },
	"join":  strings.Join,
	"band":  types.Band,
}

// IndexData is the form page. Roadmap is set only for the submission that produced it.
type IndexData struct {
	Role    string
	Stack   string
	Error   string
	Roadmap *types.CareerRoadmap
}

// FluencyPage is the recorder page
type FluencyPage struct {
	Language string
	// Endpoint receives the raw capture upload
	Endpoint string
	// Ready is false until the audio transcoder has initialized
	Ready  bool
	Result *types.FluencyResult
	Error  string
}

// MediumThreshold is the lowest medium-band score
func (FluencyPage) MediumThreshold() int { return types.MediumThreshold }

// HighThreshold is the lowest high-band score
func (FluencyPage) HighThreshold() int { return types.HighThreshold }

// Renderer executes the embedded page templates
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, baseFiles...)
	if err != nil {
		return nil, &TemplateError{Name: "base", Message: "failed to parse templates", Cause: err}
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for name, file := range pageFiles {
		page, err := base.Clone()
		if err != nil {
			return nil, &TemplateError{Name: name, Message: "failed to clone base templates", Cause: err}
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, &TemplateError{Name: name, Message: "failed to parse page template", Cause: err}
		}
		r.pages[name] = page
	}
	return r, nil
}

// RenderIndex writes the form page
func (r *Renderer) RenderIndex(w io.Writer, data IndexData) error {
	data.Error = SanitizeDisplayText(data.Error)
	return r.execute(w, "index", data)
}

// RenderRoadmap writes a standalone document for one roadmap.
// Phases keep their array order and output is byte-for-byte deterministic.
func (r *Renderer) RenderRoadmap(w io.Writer, roadmap *types.CareerRoadmap) error {
	if roadmap == nil {
		return &RenderError{Message: "roadmap is nil"}
	}
	return r.execute(w, "roadmap", roadmap)
}

// RenderFluency writes the recorder page
func (r *Renderer) RenderFluency(w io.Writer, data FluencyPage) error {
	data.Error = SanitizeDisplayText(data.Error)
	return r.execute(w, "fluency", data)
}

// execute buffers the whole page so a template failure never leaves partial output
func (r *Renderer) execute(w io.Writer, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return &TemplateError{Name: page, Message: "unknown page"}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return &TemplateError{Name: page, Message: "failed to execute template", Cause: err}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &RenderError{Message: "failed to write output", Cause: err}
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
