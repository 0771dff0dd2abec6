package markdown

import "log/slog"

// Defaults used by DefaultOptions.
const (
	// DefaultTabWidth is the number of columns a tab advances to.
	DefaultTabWidth = 4
	// DefaultEmptyElementSuffix closes void elements such as <br /> and <hr />.
	DefaultEmptyElementSuffix = " />"
	// DefaultFootnoteLinkClass and DefaultBacklinkClass are the class
	// attributes of footnote references and of their return links.
	DefaultFootnoteLinkClass = "footnote-ref"
	DefaultBacklinkClass     = "footnote-backref"
)

// Options controls the rendering of a Parser. The zero value is not ready
// for use; start from DefaultOptions.
type Options struct {
	TabWidth           int
	EmptyElementSuffix string

	// NoMarkup escapes raw HTML instead of passing it through.
	NoMarkup bool
	// NoEntities escapes every ampersand, including those that start an entity.
	NoEntities bool

	PredefinedURLs          map[string]string
	PredefinedTitles        map[string]string
	PredefinedAbbreviations map[string]string

	// Footnote titles and classes may contain %% which is replaced by the
	// footnote number.
	FootnoteLinkTitle     string
	FootnoteBacklinkTitle string
	FootnoteLinkClass     string
	FootnoteBacklinkClass string
	FootnoteIDPrefix      string

	// CodeClassPrefix is prepended to the language of a fenced code block.
	CodeClassPrefix string

	Logger *slog.Logger
}

// DefaultOptions returns the Markdown Extra settings: four column tabs,
// XHTML style void elements and the standard footnote classes.
func DefaultOptions() Options {
	return Options{
		TabWidth:              DefaultTabWidth,
		EmptyElementSuffix:    DefaultEmptyElementSuffix,
		FootnoteLinkClass:     DefaultFootnoteLinkClass,
		FootnoteBacklinkClass: DefaultBacklinkClass,
	}
}

func (o Options) normalized() Options {
	if o.TabWidth <= 0 {
		o.TabWidth = DefaultTabWidth
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}
