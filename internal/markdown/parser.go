package markdown

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
)

// stageFunc is one step of a gamut. It receives the conversion state and
// the text produced by the previous step.
type stageFunc func(c *conversion, text string) string

// stage names a registered stageFunc and orders it inside its gamut.
type stage struct {
	name     string
	priority int
}

// dialect describes the stages a parser is built from.
type dialect struct {
	name     string
	registry map[string]stageFunc
	document []stage
	block    []stage
	span     []stage

	escapeChars string

	// headerIDs enables {#id} on headers.
	headerIDs bool
	// markdownAttr enables markdown="1" inside block-level HTML.
	markdownAttr bool
	// intraWordUnderscore keeps underscores between word characters literal.
	intraWordUnderscore bool
	fencedCode          bool
}

func baseDialect() dialect {
	return dialect{
		name: "base",
		registry: map[string]stageFunc{
			"stripLinkDefinitions": (*conversion).stripLinkDefinitions,
			"runBasicBlockGamut":   (*conversion).runBasicBlockGamut,
			"doHeaders":            (*conversion).doHeaders,
			"doHorizontalRules":    (*conversion).doHorizontalRules,
			"doLists":              (*conversion).doLists,
			"doCodeBlocks":         (*conversion).doCodeBlocks,
			"doBlockQuotes":        (*conversion).doBlockQuotes,
			"parseSpan":            (*conversion).parseSpan,
			"doImages":             (*conversion).doImages,
			"doAnchors":            (*conversion).doAnchors,
			"doAutoLinks":          (*conversion).doAutoLinks,
			"encodeAmpsAndAngles":  (*conversion).encodeAmpsAndAngles,
			"doItalicsAndBold":     (*conversion).doItalicsAndBold,
			"doHardBreaks":         (*conversion).doHardBreaks,
		},
		document: []stage{
			{"stripLinkDefinitions", 20},
			{"runBasicBlockGamut", 30},
		},
		block: []stage{
			{"doHeaders", 10},
			{"doHorizontalRules", 20},
			{"doLists", 40},
			{"doCodeBlocks", 50},
			{"doBlockQuotes", 60},
		},
		span: []stage{
			{"parseSpan", -30},
			{"doImages", 10},
			{"doAnchors", 20},
			{"doAutoLinks", 30},
			{"encodeAmpsAndAngles", 40},
			{"doItalicsAndBold", 50},
			{"doHardBreaks", 60},
		},
		escapeChars: "\\`*_{}[]()>#+-.!",
	}
}

func extraDialect() dialect {
	d := baseDialect()
	d.name = "extra"
	d.escapeChars += ":|"
	d.headerIDs = true
	d.markdownAttr = true
	d.intraWordUnderscore = true
	d.fencedCode = true

	d.registry["doFencedCodeBlocks"] = (*conversion).doFencedCodeBlocks
	d.registry["stripFootnotes"] = (*conversion).stripFootnotes
	d.registry["stripAbbreviations"] = (*conversion).stripAbbreviations
	d.registry["appendFootnotes"] = (*conversion).appendFootnotes
	d.registry["doTables"] = (*conversion).doTables
	d.registry["doDefLists"] = (*conversion).doDefLists
	d.registry["doFootnotes"] = (*conversion).doFootnotes
	d.registry["doAbbreviations"] = (*conversion).doAbbreviations

	d.document = append(d.document,
		stage{"doFencedCodeBlocks", 5},
		stage{"stripFootnotes", 15},
		stage{"stripAbbreviations", 25},
		stage{"appendFootnotes", 50},
	)
	d.block = append(d.block,
		stage{"doFencedCodeBlocks", 5},
		stage{"doTables", 15},
		stage{"doDefLists", 45},
	)
	d.span = append(d.span,
		stage{"doFootnotes", 5},
		stage{"doAbbreviations", 70},
	)

	return d
}

// patterns holds the expressions that depend on the tab width.
type patterns struct {
	tablePiped   *regexp.Regexp
	tablePlain   *regexp.Regexp
	abbreviation *regexp.Regexp
}

func compilePatterns(tabWidth int) patterns {
	lessThanTab := tabWidth - 1

	return patterns{
		tablePiped: regexp.MustCompile(fmt.Sprintf(
			`(?m)^[ ]{0,%d}[|](.+)\n[ ]{0,%d}[|]([ ]*[-:]+[-| :]*)\n((?:[ ]*[|].*\n)*)`,
			lessThanTab, lessThanTab)),
		tablePlain: regexp.MustCompile(fmt.Sprintf(
			`(?m)^[ ]{0,%d}(\S.*[|].*)\n[ ]{0,%d}([-:]+[ ]*[|][-| :]*)\n((?:.*[|].*\n)*)`,
			lessThanTab, lessThanTab)),
		abbreviation: regexp.MustCompile(fmt.Sprintf(
			`(?m)^[ ]{0,%d}\*\[(.+?)\][ ]?:(.*)`, lessThanTab)),
	}
}

// Parser converts Markdown to HTML. A Parser is immutable once built and
// safe for concurrent use; every call to Convert works on private state.
type Parser struct {
	opts    Options
	dialect dialect
	re      patterns

	document []stageFunc
	block    []stageFunc
	span     []stageFunc
}

// New returns a Markdown Extra parser.
func New(opts Options) *Parser {
	return newParser(extraDialect(), opts)
}

// NewBase returns a parser for plain Markdown without the Extra additions.
func NewBase(opts Options) *Parser {
	return newParser(baseDialect(), opts)
}

// Convert renders source with a Markdown Extra parser built from opts.
func Convert(source string, opts Options) string {
	return New(opts).Convert(source)
}

func newParser(d dialect, opts Options) *Parser {
	p := &Parser{
		opts:    opts.normalized(),
		dialect: d,
	}
	p.re = compilePatterns(p.opts.TabWidth)

	p.document = p.resolve("document", d.document)
	p.block = p.resolve("block", d.block)
	p.span = p.resolve("span", d.span)

	return p
}

// resolve orders a gamut by priority and binds each name to its stage.
// Unknown names are logged and skipped.
func (p *Parser) resolve(gamut string, entries []stage) []stageFunc {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b stage) int {
		return cmp.Compare(a.priority, b.priority)
	})

	funcs := make([]stageFunc, 0, len(sorted))
	for _, entry := range sorted {
		fn, ok := p.dialect.registry[entry.name]
		if !ok {
			p.opts.Logger.Warn("skipping unknown markdown stage",
				"dialect", p.dialect.name,
				"gamut", gamut,
				"stage", entry.name,
			)
			continue
		}
		funcs = append(funcs, fn)
	}

	return funcs
}

// Options returns the normalized options the parser was built with.
func (p *Parser) Options() Options {
	return p.opts
}

// Convert renders source as HTML.
func (p *Parser) Convert(source string) string {
	c := p.newConversion()

	text := normalize(source)
	text = detab(text, p.opts.TabWidth)
	text = c.hashHTMLBlocks(text)
	text = blankWhitespaceLines(text)

	for _, fn := range p.document {
		text = fn(c, text)
	}

	return c.unhash(text) + "\n"
}
