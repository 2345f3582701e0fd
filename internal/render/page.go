package render

import (
	"embed"
	"html/template"
	"io"

	"countrydash/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the name of the dashboard template.
const PageTemplate = "page.html"

// Templates holds every page template.
var Templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Page is everything the dashboard template needs.
type Page struct {
	Status     dashboard.Status
	Message    string
	IsError    bool
	FileName   string
	Categories []string
	Selected   string
	Table      *Table
	Chart      *Chart
}

// PageOptions carries the presentation settings that are not part of the outcome.
type PageOptions struct {
	FileName    string
	ChartWidth  int
	ChartHeight int
}

// BuildPage turns an outcome into the page model. Table and chart are only set when ready.
func BuildPage(out dashboard.Outcome, opts PageOptions) Page {
	p := Page{
		Status:     out.Status,
		Message:    out.Message,
		IsError:    out.Status.Halted() && out.Status != dashboard.StatusNoInput,
		FileName:   opts.FileName,
		Categories: out.Categories,
		Selected:   out.Selected,
	}
	if out.Status == dashboard.StatusReady {
		t := RenderTable(out.Ranking, out.Selected)
		c := RenderChart(out.Ranking, out.Selected, opts.ChartWidth, opts.ChartHeight)
		p.Table, p.Chart = &t, &c
	}
	return p
}

// WritePage renders p as HTML.
func WritePage(w io.Writer, p Page) error {
	return Templates.ExecuteTemplate(w, PageTemplate, p)
}
