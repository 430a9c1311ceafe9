package export

import (
	"embed"
	"html/template"
	"io"

	"periodical_index/models"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

type page struct {
	Lang      string
	Labels    Labels
	EmptyText string
	Periods   []periodGroup
}

// RenderHTML writes the hierarchy as a standalone HTML page with the same
// sections, ordering and filtering as RenderMarkdown.
func RenderHTML(w io.Writer, h *models.Hierarchy, opts Options) error {
	lang := opts.Labels.Lang
	if lang == "" {
		lang = "en"
	}
	return pageTemplate.Execute(w, page{
		Lang:      lang,
		Labels:    opts.Labels,
		EmptyText: opts.emptyText(),
		Periods:   layout(h, opts),
	})
}

// WriteHTML saves the HTML report to path
func WriteHTML(h *models.Hierarchy, path string, opts Options) error {
	return writeFile(path, func(w io.Writer) error {
		return RenderHTML(w, h, opts)
	})
}
