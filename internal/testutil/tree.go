// Package testutil builds archive fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// FixedModTime is the modification time WriteTree stamps on every file.
var FixedModTime = time.Date(2024, 3, 15, 9, 30, 45, 0, time.Local)

// WriteTree creates each slash-separated path under root with size bytes of
// content, creating parent directories as needed. The test fails on any error.
func WriteTree(t testing.TB, root string, files map[string]int) {
	t.Helper()
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
		if err := os.Chtimes(path, FixedModTime, FixedModTime); err != nil {
			t.Fatalf("failed to set times on %s: %v", rel, err)
		}
	}
}

// MustMkdirAll creates dir under root, failing the test on error.
func MustMkdirAll(t testing.TB, root, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
}
