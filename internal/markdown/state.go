package markdown

import "strings"

// conversion is the state of a single Convert call.
type conversion struct {
	p    *Parser
	opts *Options

	vault *vault

	urls   map[string]string
	titles map[string]string

	listLevel int
	inAnchor  bool

	notes *noteState
	abbrs *abbrState
}

func (p *Parser) newConversion() *conversion {
	c := &conversion{
		p:      p,
		opts:   &p.opts,
		vault:  newVault(),
		urls:   make(map[string]string, len(p.opts.PredefinedURLs)),
		titles: make(map[string]string, len(p.opts.PredefinedTitles)),
		notes:  newNoteState(),
		abbrs:  newAbbrState(p.opts.PredefinedAbbreviations),
	}

	for id, url := range p.opts.PredefinedURLs {
		c.urls[strings.ToLower(id)] = url
	}
	for id, title := range p.opts.PredefinedTitles {
		c.titles[strings.ToLower(id)] = title
	}

	return c
}

func (c *conversion) hashPart(text string) string {
	return c.vault.store(text, classInline)
}

func (c *conversion) hashBlock(text string) string {
	return c.vault.store(text, classBlock)
}

func (c *conversion) unhash(text string) string {
	return c.vault.restore(text)
}

func (c *conversion) emptyElement(name string) string {
	return "<" + name + c.opts.EmptyElementSuffix
}

// runBlockGamut hashes block-level HTML before running the block stages,
// so that they never see raw markup.
func (c *conversion) runBlockGamut(text string) string {
	text = c.hashHTMLBlocks(text)
	return c.runBasicBlockGamut(text)
}

func (c *conversion) runBasicBlockGamut(text string) string {
	for _, fn := range c.p.block {
		text = fn(c, text)
	}
	return c.formParagraphs(text)
}

func (c *conversion) runSpanGamut(text string) string {
	for _, fn := range c.p.span {
		text = fn(c, text)
	}
	return text
}
