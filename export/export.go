// Package export renders a models.Hierarchy as JSON, Markdown and HTML.
package export

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"periodical_index/models"
)

// DefaultKind is the document extension listed in the report tables.
const DefaultKind = ".pdf"

// Labels holds the user-facing text of the Markdown and HTML reports.
type Labels struct {
	Lang        string `mapstructure:"lang"`
	Title       string `mapstructure:"title"`
	TitleColumn string `mapstructure:"title_column"`
	PathColumn  string `mapstructure:"path_column"`
	SizeColumn  string `mapstructure:"size_column"`
	SizeUnit    string `mapstructure:"size_unit"`
	// Empty is shown for a section without matching files. Derived from the kind when blank.
	Empty string `mapstructure:"empty"`
}

// DefaultLabels returns the English report labels
func DefaultLabels() Labels {
	return Labels{
		Lang:        "en",
		Title:       "File Directory Index",
		TitleColumn: "Title",
		PathColumn:  "Path",
		SizeColumn:  "Size",
		SizeUnit:    "KB",
	}
}

// Options control the tabular and document renderers.
type Options struct {
	Kind   string
	Labels Labels
}

// DefaultOptions lists PDF files with the default labels.
func DefaultOptions() Options {
	return Options{Kind: DefaultKind, Labels: DefaultLabels()}
}

func (o Options) kind() string {
	if o.Kind == "" {
		return DefaultKind
	}
	return strings.ToLower(o.Kind)
}

func (o Options) emptyText() string {
	if o.Labels.Empty != "" {
		return o.Labels.Empty
	}
	return fmt.Sprintf("No %s files", strings.ToUpper(strings.TrimPrefix(o.kind(), ".")))
}

// FilterKind returns the records whose extension matches kind, case-insensitively, in their original order.
func FilterKind(files []models.FileRecord, kind string) []models.FileRecord {
	kind = strings.ToLower(kind)
	var out []models.FileRecord
	for _, f := range files {
		if strings.ToLower(f.Extension) == kind {
			out = append(out, f)
		}
	}
	return out
}

// Title strips the kind's extension from the record's file name.
func Title(f models.FileRecord, kind string) string {
	if len(f.Name) >= len(kind) && strings.EqualFold(f.Name[len(f.Name)-len(kind):], kind) {
		return f.Name[:len(f.Name)-len(kind)]
	}
	return f.Name
}

// linkPath is the slash-separated relative path shown as the link label.
func linkPath(f models.FileRecord) string {
	return filepath.ToSlash(f.RelPath)
}

// linkHref is the link target for a record: every segment is percent-escaped
// and a first segment containing ':' gets a "./" prefix so it cannot read as
// a URL scheme.
func linkHref(f models.FileRecord) string {
	segments := strings.Split(linkPath(f), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	href := strings.Join(segments, "/")
	if strings.Contains(segments[0], ":") {
		href = "./" + href
	}
	return href
}

// section is one issue as the Markdown and HTML reports show it.
type section struct {
	Key   models.SectionKey
	Rows  []row
	Empty bool
}

type row struct {
	Title string
	Link  string
	Href  string
	Size  string
}

type yearGroup struct {
	Name     string
	Sections []section
}

type periodGroup struct {
	Name  string
	Years []yearGroup
}

// layout arranges the hierarchy in sorted report order with kind filtering applied.
func layout(h *models.Hierarchy, opts Options) []periodGroup {
	kind := opts.kind()
	var periods []periodGroup
	for _, p := range h.SortedPeriods() {
		pg := periodGroup{Name: p}
		for _, y := range h.SortedYears(p) {
			yg := yearGroup{Name: y}
			for _, i := range h.SortedIssues(p, y) {
				key := models.SectionKey{Period: p, Year: y, Issue: i}
				s := section{Key: key}
				for _, f := range FilterKind(h.Files(key), kind) {
					s.Rows = append(s.Rows, row{
						Title: Title(f, kind),
						Link:  linkPath(f),
						Href:  linkHref(f),
						Size:  strings.TrimSpace(f.SizeKiB.String() + " " + opts.Labels.SizeUnit),
					})
				}
				s.Empty = len(s.Rows) == 0
				yg.Sections = append(yg.Sections, s)
			}
			pg.Years = append(pg.Years, yg)
		}
		periods = append(periods, pg)
	}
	return periods
}

// writeFile creates path and hands a buffered writer to fn. The file is
// closed on every path; the first error wins.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %s: %w", path, closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}
