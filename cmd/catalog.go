package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"periodical_index/db"
	"periodical_index/models"
)

// writeCatalog rebuilds the DuckDB catalog at path from h. A failed close
// is reported since DuckDB checkpoints the file on close.
func (c *CLI) writeCatalog(h *models.Hierarchy, path string) (err error) {
	database := db.NewDatabase()
	defer closeInto(&err, database, path)
	if err := database.Init(path); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}

	if err := database.ClearData(); err != nil {
		return err
	}

	runID := uuid.NewString()
	absRoot, absErr := filepath.Abs(c.cfg.RootDir)
	if absErr != nil {
		absRoot = c.cfg.RootDir
	}
	for key, value := range map[string]string{
		db.MetaRootPath: absRoot,
		db.MetaIndexed:  time.Now().Format(time.RFC3339),
		db.MetaRunID:    runID,
	} {
		if err := database.SetMetadata(key, value); err != nil {
			return err
		}
	}

	if err := database.InsertHierarchy(h); err != nil {
		return err
	}
	c.logger.Debug("Catalog written", "run_id", runID, "files", h.Len())
	return nil
}

// closeInto closes c and stores the close error in *errp unless an earlier error is set.
func closeInto(errp *error, c io.Closer, path string) {
	if err := c.Close(); err != nil && *errp == nil {
		*errp = fmt.Errorf("error closing %s: %w", path, err)
	}
}

// openCatalog opens an existing catalog; it never creates one.
func (c *CLI) openCatalog() (*db.Database, error) {
	path := c.cfg.CatalogPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("catalog %s not found, run the indexer with --catalog first", path)
		}
		return nil, fmt.Errorf("error opening catalog %s: %w", path, err)
	}
	database := db.NewDatabase()
	if err := database.Init(path); err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return database, nil
}

// preview renders the Markdown report in the terminal
func (c *CLI) preview(markdownPath string) error {
	content, err := os.ReadFile(markdownPath)
	if err != nil {
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(string(content))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(c.out, out)
	return err
}

func newStatsCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the DuckDB catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := newCLIFromFlags(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return cli.handleShowStats()
		},
	}
}

func newSearchCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find catalog files whose name or path contains the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newCLIFromFlags(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return cli.handleSearch(args[0])
		},
	}
}

func newSQLCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <query>",
		Short: "Run a SQL query against the catalog",
		Long: `Run a SQL query against the catalog. Tables:

  files(period, year, issue, name, rel_path, abs_path, size_kb, modified, extension, indexed_at)
  index_metadata(key, value)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newCLIFromFlags(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return cli.handleSQL(args[0])
		},
	}
}

// handleShowStats handles the stats command
func (c *CLI) handleShowStats() error {
	database, err := c.openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := database.GetStats()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Index Statistics") + "\n")
	fmt.Fprintf(&b, "Total files: %d\n", stats.TotalFiles)
	fmt.Fprintf(&b, "Total size: %s KB\n", stats.TotalSizeKiB)
	fmt.Fprintf(&b, "Sections: %d\n", stats.Sections)
	fmt.Fprintf(&b, "Indexed time: %s\n", stats.IndexedTime)
	fmt.Fprintf(&b, "Root path: %s\n", stats.RootPath)
	fmt.Fprintf(&b, "Run: %s\n\n", stats.RunID)

	b.WriteString(subtitleStyle.Render("File types") + "\n")
	b.WriteString(renderTable([]string{"Extension", "Files"}, countRows(stats.Extensions)) + "\n\n")
	b.WriteString(subtitleStyle.Render("Periods") + "\n")
	b.WriteString(renderTable([]string{"Period", "Files"}, countRows(stats.Periods)) + "\n")

	_, err = fmt.Fprint(c.out, b.String())
	return err
}

func countRows(counts []db.Count) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, cnt := range counts {
		rows = append(rows, []string{cnt.Label, strconv.Itoa(cnt.Count)})
	}
	return rows
}

// handleSearch handles the search command
func (c *CLI) handleSearch(query string) error {
	database, err := c.openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	results, err := database.SearchFiles(query)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, f := range results {
		rows = append(rows, []string{
			f.Key.Period, f.Key.Year, f.Key.Issue, f.Record.Name,
			f.Record.SizeKiB.String() + " KB", f.Record.Modified.String(),
		})
	}

	fmt.Fprintf(c.out, "Search results for '%s': %d files\n", query, len(results))
	if len(rows) == 0 {
		return nil
	}
	_, err = fmt.Fprintln(c.out, renderTable([]string{"Period", "Year", "Issue", "Name", "Size", "Modified"}, rows))
	return err
}

// handleSQL handles the sql command
func (c *CLI) handleSQL(query string) error {
	database, err := c.openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := database.ExecuteSQL(query)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, renderTable(result.Columns, result.Rows))
	return err
}
