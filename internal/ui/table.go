package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/oops"
)

const (
	StatusBuilt   = "built"
	StatusPending = "pending"
)

type SourceStatus struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	URL       string    `json:"url,omitempty"`
	Patterns  []string  `json:"patterns,omitempty"`
	OutputDir string    `json:"output_dir"`
	Status    string    `json:"status"`
	Documents int       `json:"documents,omitempty"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
}

type ListOptions struct {
	JSON    bool
	Verbose bool
}

func RenderSourceList(w io.Writer, sources []SourceStatus, opts ListOptions) error {
	if opts.JSON {
		return writeJSON(w, sources)
	}

	renderSourceListTable(w, sources, opts)
	return nil
}

func renderSourceListTable(w io.Writer, sources []SourceStatus, opts ListOptions) {
	writer := newTable(w)

	if opts.Verbose {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS", "BUILT", "PATTERNS", "OUTPUT DIR"})
	} else {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS"})
	}

	for _, source := range sources {
		if opts.Verbose {
			writer.AppendRow(table.Row{
				source.Name,
				source.Type,
				renderLocation(source),
				renderStatus(source),
				FormatTime(source.BuiltAt),
				strings.Join(source.Patterns, ", "),
				source.OutputDir,
			})
			continue
		}

		writer.AppendRow(table.Row{
			source.Name,
			source.Type,
			renderLocation(source),
			renderStatus(source),
		})
	}

	writer.Render()
}

func renderLocation(source SourceStatus) string {
	if source.Type == "url" {
		return source.URL
	}

	return source.Path
}

func renderStatus(source SourceStatus) string {
	if source.Status == StatusBuilt && source.Documents > 0 {
		return fmt.Sprintf("%s (%d docs)", source.Status, source.Documents)
	}

	return source.Status
}

func newTable(w io.Writer) table.Writer {
	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)
	return writer
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		return oops.
			Code("JSON_ERROR").
			Wrapf(err, "encoding json output")
	}

	return nil
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.Local().Format("2006-01-02 15:04")
}

// Truncate shortens text to maxLen bytes, ending it with an ellipsis.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	return text[:maxLen-len(ellipsis)] + ellipsis
}
