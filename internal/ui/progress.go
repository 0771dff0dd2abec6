package ui

import (
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/text"
)

// NewProgressWriter returns the writer that shows one tracker per source
// while its pages render. The caller starts it with Render.
func NewProgressWriter() progress.Writer {
	writer := progress.NewWriter()
	writer.SetAutoStop(true)
	writer.SetTrackerLength(30)
	writer.SetStyle(progress.StyleBlocks)
	writer.SetTrackerPosition(progress.PositionRight)
	writer.Style().Colors.Message = text.Colors{text.Bold}
	writer.Style().Visibility.ETA = false
	writer.Style().Visibility.Percentage = true
	writer.Style().Visibility.Value = true

	return writer
}
