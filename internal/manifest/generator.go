package manifest

import (
	"path"
	"strings"
	"time"

	"github.com/g5becks/mex/internal/outline"
)

// HTMLPath maps a document path to the path of its rendered page by
// replacing the extension with .html.
func HTMLPath(docPath string) string {
	ext := path.Ext(docPath)
	return strings.TrimSuffix(docPath, ext) + ".html"
}

// Describe builds the manifest entry of a rendered document.
func Describe(docPath string, content []byte, htmlSize int, modified time.Time) FileInfo {
	info := FileInfo{
		Path:     docPath,
		HTML:     HTMLPath(docPath),
		Size:     int64(len(content)),
		HTMLSize: int64(htmlSize),
		Modified: modified,
	}

	if outline.IsBinary(content) {
		info.Warning = "binary content"
		return info
	}

	result := outline.Parse(content)
	info.Lines = result.Lines
	info.Title = result.Title
	info.Description = result.Description
	info.Tags = result.Tags
	info.Headings = result.Headings

	return info
}
