package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periodical_index/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	d := NewDatabase()
	require.NoError(t, d.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { d.Close() })
	return d
}

func testHierarchy() *models.Hierarchy {
	mod := time.Date(2024, 2, 3, 4, 5, 6, 0, time.Local)
	b := models.NewHierarchyBuilder()
	for _, f := range []struct {
		key  models.SectionKey
		name string
		size int64
	}{
		{models.SectionKey{Period: "2019-2021", Year: "2020", Issue: "01"}, "Spring.pdf", 10240},
		{models.SectionKey{Period: "2019-2021", Year: "2020", Issue: "01"}, "notes.txt", 512},
		{models.SectionKey{Period: "2019-2021", Year: "2021", Issue: "02"}, "Summer.pdf", 2048},
		{models.SectionKey{Period: "2016-2018", Year: "2017", Issue: "05"}, "README", 100},
	} {
		rel := filepath.Join(f.key.Period, f.key.Year, f.key.Issue, f.name)
		b.Add(f.key, models.NewFileRecord(rel, "/archive/"+rel, f.size, mod))
	}
	return b.Build()
}

func TestInsertAndList(t *testing.T) {
	d := setupTestDB(t)
	h := testHierarchy()
	require.NoError(t, d.InsertHierarchy(h))

	files, err := d.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 4)

	first := files[0]
	assert.Equal(t, models.SectionKey{Period: "2016-2018", Year: "2017", Issue: "05"}, first.Key)
	assert.Equal(t, "README", first.Record.Name)
	assert.Equal(t, "", first.Record.Extension)

	spring := files[1]
	assert.Equal(t, "Spring.pdf", spring.Record.Name)
	assert.Equal(t, models.KiB(10), spring.Record.SizeKiB)
	assert.Equal(t, ".pdf", spring.Record.Extension)
	assert.Equal(t, "2024-02-03 04:05:06", spring.Record.Modified.String())
}

func TestClearDataAndReinsert(t *testing.T) {
	d := setupTestDB(t)
	h := testHierarchy()
	require.NoError(t, d.InsertHierarchy(h))

	// duplicate rel_path violates the primary key and rolls back
	assert.Error(t, d.InsertHierarchy(h))

	require.NoError(t, d.ClearData())
	require.NoError(t, d.InsertHierarchy(h))

	files, err := d.ListFiles()
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestSearchFiles(t *testing.T) {
	d := setupTestDB(t)
	require.NoError(t, d.InsertHierarchy(testHierarchy()))

	results, err := d.SearchFiles("SPRING")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Spring.pdf", results[0].Record.Name)

	results, err = d.SearchFiles("2019-2021")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = d.SearchFiles("nothing-matches")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMetadata(t *testing.T) {
	d := setupTestDB(t)

	value, err := d.Metadata(MetaRootPath)
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, d.SetMetadata(MetaRootPath, "/archive"))
	require.NoError(t, d.SetMetadata(MetaRootPath, "/archive2"))

	value, err = d.Metadata(MetaRootPath)
	require.NoError(t, err)
	assert.Equal(t, "/archive2", value)
}

func TestGetStats(t *testing.T) {
	d := setupTestDB(t)
	require.NoError(t, d.InsertHierarchy(testHierarchy()))
	require.NoError(t, d.SetMetadata(MetaRunID, "run-1"))

	stats, err := d.GetStats()
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 3, stats.Sections)
	assert.InDelta(t, 10.0+0.5+2.0+0.1, float64(stats.TotalSizeKiB), 0.001)
	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, []Count{{".pdf", 2}, {".txt", 1}, {"no_extension", 1}}, stats.Extensions)
	assert.Equal(t, []Count{{"2016-2018", 1}, {"2019-2021", 3}}, stats.Periods)
}

func TestExecuteSQL(t *testing.T) {
	d := setupTestDB(t)
	require.NoError(t, d.InsertHierarchy(testHierarchy()))

	result, err := d.ExecuteSQL("SELECT issue, name FROM files WHERE extension = '.pdf' ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []string{"issue", "name"}, result.Columns)
	assert.Equal(t, [][]string{{"01", "Spring.pdf"}, {"02", "Summer.pdf"}}, result.Rows)

	_, err = d.ExecuteSQL("SELECT * FROM missing_table")
	assert.Error(t, err)
}
