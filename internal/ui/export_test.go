package ui

//nolint:gochecknoglobals // Test exports.
var (
	RenderLocation = renderLocation
	RenderStatus   = renderStatus
	FormatCounts   = formatCounts
)
