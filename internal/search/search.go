package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/manifest"
)

// Result is the best match for one rendered document.
type Result struct {
	Source     string `json:"source"`
	Path       string `json:"path"`
	HTML       string `json:"html"`
	Title      string `json:"title,omitempty"`
	MatchField string `json:"match_field"`
	MatchValue string `json:"match_value"`
	Anchor     string `json:"anchor,omitempty"`
	Score      int    `json:"score"`
}

// Options configures a search.
type Options struct {
	Query  string
	Source string
	Limit  int
}

type indexEntry struct {
	Source     string
	Path       string
	HTML       string
	Title      string
	MatchField string
	MatchValue string
	Anchor     string
}

type searchIndex struct {
	entries []indexEntry
}

func (s searchIndex) String(i int) string {
	return s.entries[i].MatchValue
}

func (s searchIndex) Len() int {
	return len(s.entries)
}

// Run fuzzy matches the query against document paths, titles,
// descriptions, tags and headings, keeping the best score per document.
func Run(m *manifest.Manifest, opts Options) ([]Result, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	if opts.Source != "" {
		if _, exists := m.Collections[opts.Source]; !exists {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", opts.Source).
				Hint("Run 'mex list' to see built sources").
				Errorf("source %q not found", opts.Source)
		}
	}

	index := buildIndex(m, opts.Source)
	matches := fuzzy.FindFrom(query, index)

	deduped := make(map[string]Result)
	for _, match := range matches {
		if match.Score < 0 {
			continue
		}
		entry := index.entries[match.Index]
		key := entry.Source + "\x00" + entry.Path

		if existing, exists := deduped[key]; !exists || match.Score > existing.Score {
			deduped[key] = Result{
				Source:     entry.Source,
				Path:       entry.Path,
				HTML:       entry.HTML,
				Title:      entry.Title,
				MatchField: entry.MatchField,
				MatchValue: entry.MatchValue,
				Anchor:     entry.Anchor,
				Score:      match.Score,
			}
		}
	}

	results := make([]Result, 0, len(deduped))
	for _, result := range deduped {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Source != results[j].Source {
			return results[i].Source < results[j].Source
		}
		return results[i].Path < results[j].Path
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

func buildIndex(m *manifest.Manifest, source string) searchIndex {
	names := m.CollectionNames()

	var entries []indexEntry
	for _, name := range names {
		if source != "" && name != source {
			continue
		}

		for _, file := range m.Collections[name].Files {
			base := indexEntry{
				Source: name,
				Path:   file.Path,
				HTML:   file.HTML,
				Title:  file.Title,
			}

			entries = append(entries, base.with("path", file.Path, ""))

			if file.Title != "" {
				entries = append(entries, base.with("title", file.Title, ""))
			}

			if file.Description != "" {
				entries = append(entries, base.with("description", file.Description, ""))
			}

			for _, tag := range file.Tags {
				entries = append(entries, base.with("tag", tag, ""))
			}

			for _, heading := range file.Headings {
				entries = append(entries, base.with("heading", heading.Text, heading.ID))
			}
		}
	}

	return searchIndex{entries: entries}
}

func (e indexEntry) with(field string, value string, anchor string) indexEntry {
	e.MatchField = field
	e.MatchValue = value
	e.Anchor = anchor
	return e
}
