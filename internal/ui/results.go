package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/g5becks/mex/internal/outline"
	"github.com/g5becks/mex/internal/search"
)

const matchLength = 60

func RenderSearchResults(w io.Writer, results []search.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}

	writer := newTable(w)
	writer.AppendHeader(table.Row{"SOURCE", "PAGE", "MATCH FIELD", "MATCH", "SCORE"})

	for _, r := range results {
		writer.AppendRow(table.Row{
			r.Source,
			pageLink(r),
			r.MatchField,
			Truncate(r.MatchValue, matchLength),
			r.Score,
		})
	}

	writer.Render()
	return nil
}

func pageLink(r search.Result) string {
	if r.Anchor == "" {
		return r.HTML
	}

	return r.HTML + "#" + r.Anchor
}

// OutlineView is the printed form of one document's outline.
type OutlineView struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	*outline.Result
}

func RenderOutline(w io.Writer, view OutlineView, asJSON bool) error {
	if asJSON {
		return writeJSON(w, view)
	}

	fmt.Fprintf(w, "%s (%d lines, %s)\n", view.Path, view.Lines, FormatSize(view.Size))
	if view.Title != "" {
		fmt.Fprintf(w, "title: %s\n", view.Title)
	}
	fmt.Fprintln(w)

	if len(view.Headings) == 0 {
		fmt.Fprintln(w, "No headings.")
		return nil
	}

	writer := newTable(w)
	writer.AppendHeader(table.Row{"LINE", "HEADING", "ID"})

	for _, h := range view.Headings {
		writer.AppendRow(table.Row{
			h.Line,
			strings.Repeat("  ", max(h.Level-1, 0)) + h.Text,
			h.ID,
		})
	}

	writer.Render()
	return nil
}
