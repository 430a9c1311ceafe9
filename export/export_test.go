package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periodical_index/models"
)

var modTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func rec(rel string, size int64) models.FileRecord {
	return models.NewFileRecord(filepath.FromSlash(rel), "/archive/"+rel, size, modTime)
}

func add(b *models.HierarchyBuilder, rel string, size int64) {
	parts := strings.Split(rel, "/")
	b.Add(models.SectionKey{Period: parts[0], Year: parts[1], Issue: parts[2]}, rec(rel, size))
}

// scenario is the single-issue archive: one PDF and one text note.
func scenario() *models.Hierarchy {
	b := models.NewHierarchyBuilder()
	add(b, "A/2020/01/doc.pdf", 10240)
	add(b, "A/2020/01/notes.txt", 20)
	return b.Build()
}

func TestFilterKind(t *testing.T) {
	files := []models.FileRecord{
		rec("A/1/1/a.pdf", 1),
		rec("A/1/1/b.PDF", 1),
		rec("A/1/1/c.txt", 1),
		rec("A/1/1/d.pdf.txt", 1),
	}
	got := FilterKind(files, ".PDF")
	require.Len(t, got, 2)
	assert.Equal(t, "a.pdf", got[0].Name)
	assert.Equal(t, "b.PDF", got[1].Name)

	assert.Empty(t, FilterKind(files, ".epub"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "doc", Title(rec("A/1/1/doc.pdf", 1), ".pdf"))
	assert.Equal(t, "Doc", Title(rec("A/1/1/Doc.PDF", 1), ".pdf"))
	assert.Equal(t, "v1.pdf.draft", Title(rec("A/1/1/v1.pdf.draft.pdf", 1), ".pdf"))
	assert.Equal(t, "notes.txt", Title(rec("A/1/1/notes.txt", 1), ".pdf"))
}

func TestRenderMarkdownScenario(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, scenario(), DefaultOptions()))

	want := "# File Directory Index\n\n" +
		"# A\n\n" +
		"## 2020\n\n" +
		"### 01\n\n" +
		"| Title | Path | Size |\n" +
		"|------|------|------|\n" +
		"| doc | [A/2020/01/doc.pdf](A/2020/01/doc.pdf) | 10.0 KB |\n\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderMarkdownOrderingAndPlaceholder(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "B/2021/02/z.pdf", 1024)
	add(b, "A/2020/10/only.txt", 1024)
	add(b, "A/2020/01/second.pdf", 1024)
	add(b, "A/2020/01/first.PDF", 2048)
	h := b.Build()

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, h, DefaultOptions()))
	out := buf.String()

	// sections sorted, rows in insertion order
	order := []string{"# A\n", "### 01\n", "| second |", "| first |", "### 10\n", "No PDF files", "# B\n", "| z |"}
	last := -1
	for _, s := range order {
		idx := strings.Index(out, s)
		require.NotEqual(t, -1, idx, "missing %q", s)
		assert.Greater(t, idx, last, "%q out of order", s)
		last = idx
	}

	assert.NotContains(t, out, "only")
	assert.Equal(t, 2, strings.Count(out, "|------|------|------|"), "no table for the empty section")
}

func TestRenderMarkdownEscapesCells(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "A/2020/01/a|b (draft).pdf", 1024)

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, b.Build(), DefaultOptions()))
	assert.Contains(t, buf.String(), `| a\|b (draft) | [A/2020/01/a\|b (draft).pdf](A/2020/01/a%7Cb%20%28draft%29.pdf) | 1.0 KB |`)
}

func TestRenderMarkdownLabels(t *testing.T) {
	opts := Options{
		Kind: ".pdf",
		Labels: Labels{
			Title:       "文件目录索引",
			TitleColumn: "标题",
			PathColumn:  "路径",
			SizeColumn:  "大小",
			SizeUnit:    "KB",
			Empty:       "暂无PDF文件",
		},
	}
	b := models.NewHierarchyBuilder()
	add(b, "2019-2021/2020/第1期/note.txt", 10)

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, b.Build(), opts))
	assert.Equal(t, "# 文件目录索引\n\n# 2019-2021\n\n## 2020\n\n### 第1期\n\n暂无PDF文件\n\n", buf.String())
}

func TestRenderMarkdownKind(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "A/2020/01/book.epub", 1024)
	add(b, "A/2020/01/doc.pdf", 1024)

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, b.Build(), Options{Kind: ".EPUB", Labels: DefaultLabels()}))
	assert.Contains(t, buf.String(), "| book | [A/2020/01/book.epub](A/2020/01/book.epub) | 1.0 KB |")
	assert.NotContains(t, buf.String(), "doc")
}

func TestRenderHTMLScenario(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, scenario(), DefaultOptions()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<meta charset="UTF-8">`)
	assert.Contains(t, out, "<style>")
	assert.Contains(t, out, "<title>File Directory Index</title>")
	assert.Contains(t, out, "<h1>A</h1>")
	assert.Contains(t, out, "<h2>2020</h2>")
	assert.Contains(t, out, "<h3>01</h3>")
	assert.Contains(t, out, "<td>doc</td>")
	assert.Contains(t, out, `<a href="A/2020/01/doc.pdf">A/2020/01/doc.pdf</a>`)
	assert.Contains(t, out, "<td>10.0 KB</td>")
	assert.NotContains(t, out, "notes")
	assert.NotContains(t, out, "no-files\">")
	assert.NotContains(t, out, "http")
}

func TestRenderHTMLPlaceholderAndEscaping(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "B/2021/02/<b>bold</b>.pdf", 1024)
	add(b, "A/2020/01/readme.txt", 1024)
	h := b.Build()

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, h, DefaultOptions()))
	out := buf.String()

	assert.Contains(t, out, `<p class="no-files">No PDF files</p>`)
	assert.NotContains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Less(t, strings.Index(out, "<h1>A</h1>"), strings.Index(out, "<h1>B</h1>"))
	assert.Equal(t, 1, strings.Count(out, "<table>"))
}

func TestLinkTargets(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "Vol:1/2020/01/doc.pdf", 1024)
	add(b, "期刊/2020/01/a b.pdf", 1024)
	h := b.Build()

	var md bytes.Buffer
	require.NoError(t, RenderMarkdown(&md, h, DefaultOptions()))
	assert.Contains(t, md.String(), "[Vol:1/2020/01/doc.pdf](./Vol:1/2020/01/doc.pdf)")
	assert.Contains(t, md.String(), "[期刊/2020/01/a b.pdf](%E6%9C%9F%E5%88%8A/2020/01/a%20b.pdf)")

	var page bytes.Buffer
	require.NoError(t, RenderHTML(&page, h, DefaultOptions()))
	out := page.String()
	assert.NotContains(t, out, "ZgotmplZ")
	assert.Contains(t, out, `<a href="./Vol:1/2020/01/doc.pdf">Vol:1/2020/01/doc.pdf</a>`)
	assert.Contains(t, out, `<a href="%E6%9C%9F%E5%88%8A/2020/01/a%20b.pdf">期刊/2020/01/a b.pdf</a>`)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	h := scenario()

	jsonPath := filepath.Join(dir, "file_index.json")
	mdPath := filepath.Join(dir, "file_index.md")
	htmlPath := filepath.Join(dir, "file_index.html")

	require.NoError(t, WriteJSON(h, jsonPath))
	require.NoError(t, WriteMarkdown(h, mdPath, DefaultOptions()))
	require.NoError(t, WriteHTML(h, htmlPath, DefaultOptions()))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"A\": {\n    \"2020\": {\n      \"01\": [\n"))

	var decoded map[string]map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	files := decoded["A"]["2020"]["01"]
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Len(t, f, 6)
		for _, field := range []string{"name", "rel_path", "abs_path", "size_kb", "modified", "extension"} {
			assert.Contains(t, f, field)
		}
	}

	for _, p := range []string{mdPath, htmlPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestWriteJSONKeepsTextUnescaped(t *testing.T) {
	b := models.NewHierarchyBuilder()
	add(b, "期刊/2020/第1期/春 & 秋 <上>.pdf", 1024)

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, b.Build()))
	out := buf.String()
	assert.Contains(t, out, `"期刊"`)
	assert.Contains(t, out, `"name": "春 & 秋 <上>.pdf"`)
	assert.Contains(t, out, `"size_kb": 1.0`)
}

func TestWriteFileErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-dir", "file_index.json")
	err := WriteJSON(scenario(), missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating")

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}
