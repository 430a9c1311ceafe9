package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"periodical_index/config"
	"periodical_index/export"
	"periodical_index/indexer"
)

// CLI holds what every command needs once configuration is loaded
type CLI struct {
	cfg     *config.Config
	logger  *log.Logger
	out     io.Writer
	indexer *indexer.Indexer
}

// NewCLI creates a CLI writing notices and diagnostics to out
func NewCLI(cfg *config.Config, out io.Writer) (*CLI, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:  level,
		Prefix: "index",
	})
	return &CLI{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		indexer: indexer.NewIndexer(logger),
	}, nil
}

// NewRootCommand builds the command tree. The root command runs the indexer.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "periodical-index",
		Short: "Index a period/year/issue document archive",
		Long: titleStyle.Render("periodical-index") + subtitleStyle.Render(" - browsable index of an archive") + `

Scans ROOT_DIR for files stored three levels deep (period/year/issue) and
writes file_index.json, file_index.md and file_index.html to OUTPUT_DIR.
The Markdown and HTML reports list only files of the configured kind.

` + subtitleStyle.Render("Examples:") + `
  periodical-index --root-dir /srv/archive --output-dir /srv/archive
  periodical-index --kind .epub --preview
  periodical-index --catalog && periodical-index stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := newCLIFromFlags(cmd, cfgFile)
			if err != nil {
				return err
			}
			_, err = cli.RunIndex()
			return err
		},
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultConfigName+".yaml)")
	pf.String("output-dir", defaults.OutputDir, "directory receiving the index files")
	pf.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	pf.String("catalog-path", defaults.Catalog.Path, "DuckDB catalog file, relative to the output directory")

	f := root.Flags()
	f.String("root-dir", defaults.RootDir, "archive root to scan")
	f.String("kind", defaults.Kind, "extension of the documents listed in the reports")
	f.Bool("preview", defaults.Preview, "render the Markdown report in the terminal when done")
	f.Bool("catalog", defaults.Catalog.Enabled, "also write the DuckDB catalog")

	root.AddCommand(newStatsCommand(&cfgFile))
	root.AddCommand(newSearchCommand(&cfgFile))
	root.AddCommand(newSQLCommand(&cfgFile))
	return root
}

func newCLIFromFlags(cmd *cobra.Command, cfgFile string) (*CLI, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return NewCLI(cfg, cmd.OutOrStdout())
}

// Execute runs the root command with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}

// IndexResult lists what a run wrote. Paths are empty when nothing was indexed.
type IndexResult struct {
	Files        int
	JSONPath     string
	MarkdownPath string
	HTMLPath     string
	CatalogPath  string
}

// RunIndex scans the archive and writes every output. A missing root or an
// archive without qualifying files is reported and produces no output files.
func (c *CLI) RunIndex() (*IndexResult, error) {
	c.logger.Info("Scanning files...", "root", c.cfg.RootDir)
	h, err := c.indexer.Scan(c.cfg.RootDir)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("Root directory not found", "root", c.cfg.RootDir)
		return &IndexResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error indexing directory: %w", err)
	}

	if h.Empty() {
		c.logger.Info("No files found in a period/year/issue directory structure", "root", c.cfg.RootDir)
		return &IndexResult{}, nil
	}
	c.logger.Info("Scan finished", "files", h.Len(), "sections", h.Sections())

	res := &IndexResult{
		Files:        h.Len(),
		JSONPath:     c.cfg.JSONPath(),
		MarkdownPath: c.cfg.MarkdownPath(),
		HTMLPath:     c.cfg.HTMLPath(),
	}
	opts := c.cfg.ExportOptions()

	c.logger.Info("Writing JSON file...", "path", res.JSONPath)
	if err := export.WriteJSON(h, res.JSONPath); err != nil {
		return nil, err
	}

	c.logger.Info("Writing Markdown file...", "path", res.MarkdownPath)
	if err := export.WriteMarkdown(h, res.MarkdownPath, opts); err != nil {
		return nil, err
	}

	c.logger.Info("Writing HTML file...", "path", res.HTMLPath)
	if err := export.WriteHTML(h, res.HTMLPath, opts); err != nil {
		return nil, err
	}

	if c.cfg.Catalog.Enabled {
		res.CatalogPath = c.cfg.CatalogPath()
		c.logger.Info("Writing DuckDB catalog...", "path", res.CatalogPath)
		if err := c.writeCatalog(h, res.CatalogPath); err != nil {
			return nil, err
		}
	}

	c.printSummary(res)

	if c.cfg.Preview {
		if err := c.preview(res.MarkdownPath); err != nil {
			c.logger.Warn("Could not render preview", "err", err)
		}
	}
	return res, nil
}

func (c *CLI) printSummary(res *IndexResult) {
	var b strings.Builder
	b.WriteString(successStyle.Render("File index generated!") + "\n")
	fmt.Fprintf(&b, "JSON: %s\n", res.JSONPath)
	fmt.Fprintf(&b, "Markdown: %s\n", res.MarkdownPath)
	fmt.Fprintf(&b, "HTML: %s\n", res.HTMLPath)
	if res.CatalogPath != "" {
		fmt.Fprintf(&b, "Catalog: %s\n", res.CatalogPath)
	}
	fmt.Fprint(c.out, b.String())
}
