// Package config loads the indexer configuration with Viper.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, PERIODICAL_INDEX_* environment variables (a .env file in the
// working directory is loaded first) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"periodical_index/export"
)

// EnvPrefix prefixes every environment override, e.g. PERIODICAL_INDEX_ROOT_DIR.
const EnvPrefix = "PERIODICAL_INDEX"

// DefaultConfigName is looked up in the working directory when no file is given.
const DefaultConfigName = "periodical-index"

// OutputsConfig names the generated files inside OutputDir.
type OutputsConfig struct {
	JSON     string `mapstructure:"json"`
	Markdown string `mapstructure:"markdown"`
	HTML     string `mapstructure:"html"`
}

// CatalogConfig controls the optional DuckDB catalog.
type CatalogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the full application configuration
type Config struct {
	RootDir   string        `mapstructure:"root_dir"`
	OutputDir string        `mapstructure:"output_dir"`
	Kind      string        `mapstructure:"kind"`
	LogLevel  string        `mapstructure:"log_level"`
	Preview   bool          `mapstructure:"preview"`
	Outputs   OutputsConfig `mapstructure:"outputs"`
	Labels    export.Labels `mapstructure:"labels"`
	Catalog   CatalogConfig `mapstructure:"catalog"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		RootDir:   ".",
		OutputDir: ".",
		Kind:      export.DefaultKind,
		LogLevel:  "info",
		Outputs: OutputsConfig{
			JSON:     "file_index.json",
			Markdown: "file_index.md",
			HTML:     "file_index.html",
		},
		Labels: export.DefaultLabels(),
		Catalog: CatalogConfig{
			Path: "file_index.db",
		},
	}
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"root-dir":     "root_dir",
	"output-dir":   "output_dir",
	"kind":         "kind",
	"log-level":    "log_level",
	"preview":      "preview",
	"catalog":      "catalog.enabled",
	"catalog-path": "catalog.path",
}

// Load reads the configuration. configFile may be empty, in which case
// periodical-index.yaml in the working directory is used when present.
// flags, when non-nil, override the keys listed in FlagKeys.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is fine, a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root_dir", defaults.RootDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("kind", defaults.Kind)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("preview", defaults.Preview)
	v.SetDefault("outputs.json", defaults.Outputs.JSON)
	v.SetDefault("outputs.markdown", defaults.Outputs.Markdown)
	v.SetDefault("outputs.html", defaults.Outputs.HTML)
	v.SetDefault("labels.lang", defaults.Labels.Lang)
	v.SetDefault("labels.title", defaults.Labels.Title)
	v.SetDefault("labels.title_column", defaults.Labels.TitleColumn)
	v.SetDefault("labels.path_column", defaults.Labels.PathColumn)
	v.SetDefault("labels.size_column", defaults.Labels.SizeColumn)
	v.SetDefault("labels.size_unit", defaults.Labels.SizeUnit)
	v.SetDefault("labels.empty", defaults.Labels.Empty)
	v.SetDefault("catalog.enabled", defaults.Catalog.Enabled)
	v.SetDefault("catalog.path", defaults.Catalog.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return errors.New("root_dir must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if !strings.HasPrefix(c.Kind, ".") || len(c.Kind) < 2 {
		return fmt.Errorf("kind %q must be an extension with a leading dot", c.Kind)
	}
	c.Kind = strings.ToLower(c.Kind)
	if c.Outputs.JSON == "" || c.Outputs.Markdown == "" || c.Outputs.HTML == "" {
		return errors.New("output file names must not be empty")
	}
	if c.Catalog.Enabled && c.Catalog.Path == "" {
		return errors.New("catalog.path must be set when the catalog is enabled")
	}
	return nil
}

// JSONPath is the structured export location.
func (c *Config) JSONPath() string { return c.outputPath(c.Outputs.JSON) }

// MarkdownPath is the tabular report location.
func (c *Config) MarkdownPath() string { return c.outputPath(c.Outputs.Markdown) }

// HTMLPath is the document report location.
func (c *Config) HTMLPath() string { return c.outputPath(c.Outputs.HTML) }

// CatalogPath is the DuckDB catalog location; relative paths live in OutputDir.
func (c *Config) CatalogPath() string { return c.outputPath(c.Catalog.Path) }

func (c *Config) outputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

// ExportOptions returns the renderer options for this configuration.
func (c *Config) ExportOptions() export.Options {
	return export.Options{Kind: c.Kind, Labels: c.Labels}
}
