package search_test

import (
	"strings"
	"testing"
	"time"

	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/outline"
	"github.com/g5becks/mex/internal/search"
)

func buildTestManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version:   manifest.CurrentVersion,
		Generated: time.Now(),
		Collections: map[string]*manifest.Collection{
			"guide": {
				Name: "guide",
				Dir:  "guide",
				Type: "dir",
				Files: []manifest.FileInfo{
					{
						Path:        "install.md",
						HTML:        "install.html",
						Title:       "Installation",
						Description: "Installation guide for getting started",
						Headings: []outline.Heading{
							{Level: 1, Text: "Installation", Line: 1},
							{Level: 2, Text: "Quick Start", ID: "quick-start", Line: 5},
						},
					},
					{
						Path:        "config.md",
						HTML:        "config.html",
						Title:       "Configuration",
						Description: "Configuration options",
						Tags:        []string{"settings"},
						Headings: []outline.Heading{
							{Level: 1, Text: "Configuration", Line: 1},
						},
					},
				},
			},
			"changelog": {
				Name: "changelog",
				Dir:  "changelog",
				Type: "url",
				Files: []manifest.FileInfo{
					{
						Path:        "CHANGELOG.md",
						HTML:        "CHANGELOG.html",
						Title:       "Release Notes",
						Description: "Logger utility functions were added",
						Headings: []outline.Heading{
							{Level: 2, Text: "Version 2.0", Line: 3},
						},
					},
				},
			},
		},
	}
}

func findResult(results []search.Result, path string, field string) (search.Result, bool) {
	for _, r := range results {
		if r.Path == path && r.MatchField == field {
			return r, true
		}
	}

	return search.Result{}, false
}

func TestRun_PathMatch(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "install.md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := findResult(results, "install.md", "path")
	if !ok {
		t.Fatalf("expected path match for install.md, got %+v", results)
	}

	if r.HTML != "install.html" {
		t.Errorf("HTML = %q, want install.html", r.HTML)
	}
}

func TestRun_TitleMatch(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "Release Notes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := findResult(results, "CHANGELOG.md", "title")
	if !ok {
		t.Fatalf("expected title match for CHANGELOG.md, got %+v", results)
	}

	if r.Source != "changelog" {
		t.Errorf("Source = %q, want changelog", r.Source)
	}
}

func TestRun_DescriptionMatch(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "utility"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := findResult(results, "CHANGELOG.md", "description"); !ok {
		t.Errorf("expected description match for CHANGELOG.md, got %+v", results)
	}
}

func TestRun_HeadingMatchCarriesAnchor(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "Quick Start"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := findResult(results, "install.md", "heading")
	if !ok {
		t.Fatalf("expected heading match for Quick Start, got %+v", results)
	}

	if r.MatchValue != "Quick Start" || r.Anchor != "quick-start" {
		t.Errorf("heading match = %+v, want Quick Start with anchor quick-start", r)
	}
}

func TestRun_SourceFilter(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "md", Source: "guide"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) == 0 {
		t.Fatal("expected results from guide")
	}

	for _, r := range results {
		if r.Source != "guide" {
			t.Errorf("expected only guide results, got %q", r.Source)
		}
	}
}

func TestRun_UnknownSource(t *testing.T) {
	t.Parallel()

	_, err := search.Run(buildTestManifest(), search.Options{Query: "test", Source: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown source")
	}

	if !strings.Contains(err.Error(), `source "unknown" not found`) {
		t.Errorf("error = %q, expected not-found message", err.Error())
	}
}

func TestRun_EmptyQuery(t *testing.T) {
	t.Parallel()
	m := buildTestManifest()

	for _, query := range []string{"", "   "} {
		if _, err := search.Run(m, search.Options{Query: query}); err == nil {
			t.Errorf("Run(%q) error = nil, want non-nil", query)
		}
	}
}

func TestRun_Limit(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "md", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRun_DedupesBestScorePerDocument(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "Installation"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]int)
	for _, r := range results {
		seen[r.Source+"/"+r.Path]++
	}

	for key, count := range seen {
		if count > 1 {
			t.Errorf("document %q appears %d times, expected deduplication", key, count)
		}
	}
}

func TestRun_EmptyManifest(t *testing.T) {
	t.Parallel()

	results, err := search.Run(manifest.New(), search.Options{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("expected 0 results for empty manifest, got %d", len(results))
	}
}

func TestRun_NoResults(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "xyzzynonexistent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("expected 0 results for nonsense query, got %d", len(results))
	}
}

func TestRun_ScoreOrdering(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) < 2 {
		t.Fatalf("expected at least 2 results to validate ordering, got %d", len(results))
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by score: result[%d].Score=%d > result[%d].Score=%d",
				i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}

func TestRun_TagMatch(t *testing.T) {
	t.Parallel()

	results, err := search.Run(buildTestManifest(), search.Options{Query: "settings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := findResult(results, "config.md", "tag")
	if !ok {
		t.Fatalf("expected tag match for config.md, got %+v", results)
	}

	if r.MatchValue != "settings" {
		t.Errorf("MatchValue = %q, want settings", r.MatchValue)
	}
}
