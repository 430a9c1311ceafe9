package indexer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"periodical_index/models"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Indexer builds the period/year/issue hierarchy of an archive tree
type Indexer struct {
	logger *log.Logger
	stat   func(string) (fs.FileInfo, error)
}

// NewIndexer creates a new indexer. A nil logger discards diagnostics.
func NewIndexer(logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Indexer{
		logger: logger,
		stat:   os.Stat,
	}
}

// Scan walks rootPath and records every regular file found in a directory at
// least three levels below the root, keyed by the first three path segments.
// Files whose metadata cannot be read are skipped. An empty hierarchy means
// nothing qualified for indexing.
func (i *Indexer) Scan(rootPath string) (*models.Hierarchy, error) {
	info, err := i.stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error reading root %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("error reading root %s: %w", rootPath, ErrNotDirectory)
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error resolving root %s: %w", rootPath, err)
	}
	// WalkDir does not descend into a symlinked root, so walk its target.
	// Recorded absolute paths keep the root as given.
	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("error resolving root %s: %w", rootPath, err)
	}

	i.logger.Debug("Starting to index directory", "root", absRoot, "resolved", walkRoot)
	builder := models.NewHierarchyBuilder()

	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			i.logger.Warn("Skipped", "path", path, "err", err)
			return nil // Continue with other files
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(walkRoot, path)
		if err != nil {
			i.logger.Warn("Skipped", "path", path, "err", err)
			return nil
		}
		key, ok := models.KeyFromRelDir(filepath.Dir(relPath))
		if !ok {
			i.logger.Debug("Skipping file above issue level", "path", relPath)
			return nil
		}

		// Stat follows symlinks so linked files are indexed by their target's metadata
		fi, err := i.stat(path)
		if err != nil {
			i.logger.Warn("Skipped", "path", path, "err", err)
			return nil
		}
		if !fi.Mode().IsRegular() {
			i.logger.Debug("Skipping special file", "path", relPath)
			return nil
		}

		builder.Add(key, models.NewFileRecord(relPath, filepath.Join(absRoot, relPath), fi.Size(), fi.ModTime()))
		i.logger.Debug("Indexed file", "path", relPath, "size", fi.Size())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	h := builder.Build()
	i.logger.Debug("Indexing completed", "files", h.Len(), "sections", h.Sections())
	return h, nil
}
