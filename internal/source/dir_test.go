package source_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
	"github.com/g5becks/mex/internal/source"
)

func TestDirFetchMatchesPatternsAndExcludes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeDoc(t, root, "index.md", "# Home")
	writeDoc(t, root, "guide/install.markdown", "# Install")
	writeDoc(t, root, "guide/notes.text", "Notes")
	writeDoc(t, root, "drafts/wip.md", "# WIP")
	writeDoc(t, root, "assets/logo.png", "png")

	src := source.NewDir("guide", root, config.Source{
		Type:    "dir",
		Exclude: []string{"drafts/**"},
	})

	result, err := src.Fetch(context.Background(), nil, source.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var paths []string
	for _, doc := range result.Documents {
		paths = append(paths, doc.Path)
	}

	want := []string{"guide/install.markdown", "guide/notes.text", "index.md"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	if result.LockEntry.Type != "dir" {
		t.Fatalf("LockEntry.Type = %q, want dir", result.LockEntry.Type)
	}

	if result.LockEntry.Files["index.md"] != lockfile.Hash([]byte("# Home")) {
		t.Fatalf("LockEntry.Files[index.md] = %q, want content hash", result.LockEntry.Files["index.md"])
	}

	if result.Documents[0].Modified.IsZero() {
		t.Fatalf("Modified is zero, want file mtime")
	}
}

func TestDirFetchDeduplicatesOverlappingPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeDoc(t, root, "a.md", "a")

	src := source.NewDir("docs", root, config.Source{
		Type:     "dir",
		Patterns: []string{"*.md", "**/*.md"},
	})

	result, err := src.Fetch(context.Background(), nil, source.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(result.Documents) != 1 {
		t.Fatalf("Documents len = %d, want 1", len(result.Documents))
	}
}

func TestDirFetchMissingRootReturnsError(t *testing.T) {
	t.Parallel()

	src := source.NewDir("docs", filepath.Join(t.TempDir(), "missing"), config.Source{Type: "dir"})

	_, err := src.Fetch(context.Background(), nil, source.FetchOptions{})
	if err == nil {
		t.Fatalf("Fetch() error = nil, want non-nil")
	}

	if !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("Fetch() error = %q, expected missing-directory message", err.Error())
	}
}

func TestNewResolvesSourceTypes(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{ConfigDir: t.TempDir()}

	if _, err := source.New("guide", cfg, config.Source{Type: "dir", Path: "docs"}); err != nil {
		t.Fatalf("New(dir) error = %v", err)
	}

	if _, err := source.New("changelog", cfg, config.Source{Type: "url", URL: "https://example.com/a.md"}); err != nil {
		t.Fatalf("New(url) error = %v", err)
	}

	_, err := source.New("bad", cfg, config.Source{Type: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "unknown source type") {
		t.Fatalf("New(ftp) error = %v, want unknown source type", err)
	}
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{name: "no patterns", path: "a.md"},
		{name: "double star", patterns: []string{"drafts/**"}, path: "drafts/x/y.md", want: true},
		{name: "single segment", patterns: []string{"*.md"}, path: "guide/a.md"},
		{name: "second pattern", patterns: []string{"*.txt", "guide/*.md"}, path: "guide/a.md", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := source.MatchesAny(tc.patterns, tc.path)
			if err != nil {
				t.Fatalf("MatchesAny() error = %v", err)
			}

			if got != tc.want {
				t.Fatalf("MatchesAny(%v, %q) = %v, want %v", tc.patterns, tc.path, got, tc.want)
			}
		})
	}
}

func writeDoc(t *testing.T, root string, relativePath string, content string) {
	t.Helper()

	fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}
