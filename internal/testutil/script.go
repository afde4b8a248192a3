// Package testutil provides shared helpers for HL tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes an HL script into dir and returns its path.
func WriteScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// Rewrite replaces the contents of an existing script, simulating an edit
// while the program runs.
func Rewrite(t *testing.T, path, source string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("rewrite script %s: %v", path, err)
	}
}
