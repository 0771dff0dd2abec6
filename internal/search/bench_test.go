//nolint:testpackage // Benchmarks need unexported buildIndex access for isolated index-cost measurement.
package search

import (
	"fmt"
	"testing"

	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/outline"
)

func BenchmarkBuildIndex700Files(b *testing.B) {
	m := buildBenchmarkManifest(700)
	var idx searchIndex

	b.ResetTimer()
	for b.Loop() {
		idx = buildIndex(m, "")
	}

	if idx.Len() == 0 {
		b.Fatal("expected non-empty index")
	}
}

func BenchmarkRun700Files(b *testing.B) {
	m := buildBenchmarkManifest(700)

	b.ResetTimer()
	for b.Loop() {
		_, err := Run(m, Options{
			Query: "configuration",
			Limit: 50,
		})
		if err != nil {
			b.Fatalf("search failed: %v", err)
		}
	}
}

func TestBuildIndexEntriesPerDocument(t *testing.T) {
	t.Parallel()

	m := buildBenchmarkManifest(3)
	idx := buildIndex(m, "guides")

	// path, title, description and three headings
	if idx.Len() != 6 {
		t.Fatalf("index length = %d, want 6", idx.Len())
	}

	for _, entry := range idx.entries {
		if entry.Source != "guides" {
			t.Errorf("entry source = %q, want guides", entry.Source)
		}
	}
}

func buildBenchmarkManifest(fileCount int) *manifest.Manifest {
	m := manifest.New()

	filesPerCollection := fileCount / 3
	collections := []string{"docs", "api", "guides"}

	for _, collName := range collections {
		files := make([]manifest.FileInfo, 0, filesPerCollection)

		for i := range filesPerCollection {
			files = append(files, manifest.FileInfo{
				Path:        fmt.Sprintf("file-%d.md", i),
				HTML:        fmt.Sprintf("file-%d.html", i),
				Title:       fmt.Sprintf("Document %d", i),
				Description: fmt.Sprintf("Documentation file %d with configuration details", i),
				Headings: []outline.Heading{
					{Level: 1, Text: fmt.Sprintf("Document %d", i), Line: 1},
					{Level: 2, Text: "Configuration", ID: "configuration", Line: 5},
					{Level: 2, Text: "Usage", ID: "usage", Line: 10},
				},
			})
		}

		m.Collections[collName] = &manifest.Collection{
			Name:  collName,
			Dir:   collName,
			Type:  "dir",
			Files: files,
		}
	}

	return m
}
