package export

import (
	"fmt"
	"io"
	"strings"

	"periodical_index/models"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")

// RenderMarkdown writes the tabular report: one heading per period, year and
// issue in sorted order, each issue followed by a table of the matching files
// or the empty-section line.
func RenderMarkdown(w io.Writer, h *models.Hierarchy, opts Options) error {
	l := opts.Labels
	ew := &errWriter{w: w}

	ew.printf("# %s\n\n", l.Title)
	for _, p := range layout(h, opts) {
		ew.printf("# %s\n\n", p.Name)
		for _, y := range p.Years {
			ew.printf("## %s\n\n", y.Name)
			for _, s := range y.Sections {
				ew.printf("### %s\n\n", s.Key.Issue)
				if s.Empty {
					ew.printf("%s\n\n", opts.emptyText())
					continue
				}
				ew.printf("| %s | %s | %s |\n", l.TitleColumn, l.PathColumn, l.SizeColumn)
				ew.printf("|------|------|------|\n")
				for _, r := range s.Rows {
					ew.printf("| %s | [%s](%s) | %s |\n",
						cellEscaper.Replace(r.Title),
						cellEscaper.Replace(r.Link),
						r.Href,
						r.Size)
				}
				ew.printf("\n")
			}
		}
	}
	return ew.err
}

// WriteMarkdown saves the tabular report to path
func WriteMarkdown(h *models.Hierarchy, path string, opts Options) error {
	return writeFile(path, func(w io.Writer) error {
		return RenderMarkdown(w, h, opts)
	})
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
