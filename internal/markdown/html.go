package markdown

import (
	"strings"
)

func tagSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

var (
	blockTags = tagSet(
		"p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre",
		"table", "dl", "ol", "ul", "address", "form", "fieldset", "iframe",
		"hr", "legend", "article", "section", "nav", "aside", "hgroup",
		"header", "footer", "figcaption", "figure",
	)
	// contextBlockTags are block-level only when alone on their line.
	contextBlockTags = tagSet(
		"script", "noscript", "ins", "del", "iframe", "object", "source",
		"track", "param", "math", "svg", "canvas", "audio", "video",
	)
	// cleanTags have content Markdown must never touch.
	cleanTags    = tagSet("script", "math", "svg")
	autoCloseTag = tagSet("hr", "img", "param", "source", "track")
	// spanContentTags default to span-level parsing under markdown="1".
	spanContentTags = tagSet(
		"p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "dd", "dt", "td",
		"th", "legend", "address",
	)
)

func isTagNameByte(c byte) bool {
	return isWordByte(c) || c == ':' || c == '$'
}

// htmlTag is a lexed element tag.
type htmlTag struct {
	name        string
	closing     bool
	selfClosing bool
	end         int
}

// readTag lexes an element tag starting at text[i] == '<'. Quoted
// attribute values may contain '>'.
func readTag(text string, i int) (htmlTag, bool) {
	var tag htmlTag

	j := i + 1
	if j < len(text) && text[j] == '/' {
		tag.closing = true
		j++
	}

	start := j
	for j < len(text) && isTagNameByte(text[j]) {
		j++
	}
	if j == start {
		return tag, false
	}
	tag.name = text[start:j]

	if j < len(text) && !isSpace(text[j]) && text[j] != '>' && text[j] != '/' {
		return tag, false
	}

	for j < len(text) {
		switch text[j] {
		case '>':
			tag.end = j + 1
			tag.selfClosing = text[j-1] == '/'
			return tag, true
		case '"', '\'':
			if k := strings.IndexByte(text[j+1:], text[j]); k >= 0 {
				j += k + 2
				continue
			}
			j++
		default:
			j++
		}
	}

	return tag, false
}

// readSpecial lexes a comment, processing instruction or CDATA section.
func readSpecial(text string, i int) (int, bool) {
	rest := text[i:]

	var closer string
	switch {
	case strings.HasPrefix(rest, "<!--"):
		closer = "-->"
		rest = rest[4:]
		i += 4
	case strings.HasPrefix(rest, "<![CDATA["):
		closer = "]]>"
		rest = rest[9:]
		i += 9
	case strings.HasPrefix(rest, "<?"):
		closer = "?>"
		rest = rest[2:]
		i += 2
	case strings.HasPrefix(rest, "<%"):
		closer = "%>"
		rest = rest[2:]
		i += 2
	default:
		return 0, false
	}

	k := strings.Index(rest, closer)
	if k < 0 {
		return 0, false
	}
	return i + k + len(closer), true
}

type blockTokenKind int

const (
	tokenTag blockTokenKind = iota
	tokenSpecial
	tokenIndentedCode
	tokenFence
	tokenCodeSpan
)

type blockToken struct {
	kind  blockTokenKind
	start int
	end   int
	tag   htmlTag

	fence       string
	fenceIndent int
}

// hashHTMLBlocks replaces block-level HTML by tokens. Raw markup is left
// alone when the options forbid it.
func (c *conversion) hashHTMLBlocks(text string) string {
	if c.opts.NoMarkup {
		return text
	}

	parsed, _ := c.scanMarkdownRegion(text, 0, "", false)
	return parsed
}

// scanMarkdownRegion walks Markdown text, hashing every HTML block it
// meets. With a non-empty enclosing tag it stops before the tag that
// closes the region and returns the remaining text.
func (c *conversion) scanMarkdownRegion(text string, indent int, enclosing string, span bool) (string, string) {
	if text == "" {
		return "", ""
	}

	var parsed strings.Builder
	depth := 0

	for {
		tok, found := c.nextBlockToken(text, indent, enclosing, span)

		before := text
		if found {
			before = text[:tok.start]
		}

		if span {
			void := c.vault.store("", classVoid)
			before = void + strings.ReplaceAll(before, "\n", void+"\n") + void
		}
		parsed.WriteString(before)

		if !found {
			return parsed.String(), ""
		}

		raw := text[tok.start:tok.end]
		text = text[tok.end:]

		switch tok.kind {
		case tokenFence:
			end, ok := closingFence(text, tok.fence, tok.fenceIndent)
			if !ok {
				parsed.WriteString(raw)
				continue
			}
			parsed.WriteString(raw)
			parsed.WriteString(text[:end])
			text = text[end:]

		case tokenIndentedCode:
			parsed.WriteString(raw)

		case tokenCodeSpan:
			end, ok := codeSpanEnd(text, raw)
			parsed.WriteString(raw)
			if ok {
				parsed.WriteString(text[:end])
				text = text[end:]
			}

		case tokenSpecial:
			block, rest, _ := c.scanHTMLRegion(raw+text, classClean, false)
			parsed.WriteString(block)
			text = rest

		case tokenTag:
			tag := tok.tag
			opening := !tag.closing

			switch {
			case opening && (blockTags[tag.name] ||
				(contextBlockTags[tag.name] &&
					newlineBefore(parsed.String()) && newlineAfter(text))):
				block, rest, ok := c.scanHTMLRegion(raw+text, classBlock, c.p.dialect.markdownAttr)
				if ok {
					parsed.WriteString("\n\n" + block + "\n\n")
				} else {
					parsed.WriteString(block)
				}
				text = rest

			case opening && cleanTags[tag.name]:
				block, rest, _ := c.scanHTMLRegion(raw+text, classClean, false)
				parsed.WriteString(block)
				text = rest

			case enclosing != "" && tag.name == enclosing:
				if tag.closing {
					depth--
				} else if !tag.selfClosing {
					depth++
				}

				if depth < 0 {
					return parsed.String(), raw + text
				}
				parsed.WriteString(raw)

			default:
				parsed.WriteString(raw)
			}
		}
	}
}

// nextBlockToken finds the next construct that matters to
// scanMarkdownRegion: block tags, the enclosing tag, comments and
// processing instructions, plus the code constructs whose content must be
// skipped. The last group is ignored in span mode.
func (c *conversion) nextBlockToken(text string, indent int, enclosing string, span bool) (blockToken, bool) {
	for p := 0; p < len(text); p++ {
		ch := text[p]

		if ch == '<' {
			if end, ok := readSpecial(text, p); ok && text[p+1] != '%' {
				return blockToken{kind: tokenSpecial, start: p, end: end}, true
			}

			if tag, ok := readTag(text, p); ok {
				if blockTags[tag.name] || contextBlockTags[tag.name] ||
					cleanTags[tag.name] || (enclosing != "" && tag.name == enclosing) {
					return blockToken{kind: tokenTag, start: p, end: tag.end, tag: tag}, true
				}
			}
			continue
		}

		if span {
			continue
		}

		if p == 0 || ch == '\n' {
			if end, ok := indentedRegion(text, p, indent+4); ok {
				return blockToken{kind: tokenIndentedCode, start: p, end: end}, true
			}
		}

		if c.p.dialect.fencedCode && lineStart(text, p) && (ch == ' ' || ch == '~' || ch == '`') {
			if tok, ok := fenceOpener(text, p, indent+3); ok {
				return tok, true
			}
		}

		if ch == '`' && (p == 0 || text[p-1] != '`') {
			end := p
			for end < len(text) && text[end] == '`' {
				end++
			}
			return blockToken{kind: tokenCodeSpan, start: p, end: end}, true
		}
	}

	return blockToken{}, false
}

// indentedRegion matches lines indented by at least width spaces starting
// at p, which is either 0 or a newline opening a blank line.
func indentedRegion(text string, p, width int) (int, bool) {
	starts := make([]int, 0, 3)
	if p == 0 {
		if k := skipSpaces(text, 0); k < len(text) && text[k] == '\n' {
			starts = append(starts, k+1)
		}
		starts = append(starts, 0)
	}
	if text[p] == '\n' {
		k := skipSpaces(text, p+1)
		if k < len(text) && text[k] == '\n' {
			starts = append(starts, k+1)
		}
	}

	for _, start := range starts {
		if countSpaces(text, start) < width {
			continue
		}

		end := lineEnd(text, start)
		if end == len(text) {
			continue
		}
		end++

		for end < len(text) {
			le := lineEnd(text, end)
			if le == len(text) {
				break
			}
			line := text[end:le]
			if countSpaces(line, 0) < width && !allSpaces(line) {
				break
			}
			end = le + 1
		}

		return end, true
	}

	return 0, false
}

// fenceOpener matches a fenced code opener at the line start p, without
// its newline.
func fenceOpener(text string, p, maxIndent int) (blockToken, bool) {
	n := countSpaces(text, p)
	if n > maxIndent {
		return blockToken{}, false
	}

	k := p + n
	if k >= len(text) || (text[k] != '~' && text[k] != '`') {
		return blockToken{}, false
	}

	mark := text[k]
	f := k
	for f < len(text) && text[f] == mark {
		f++
	}
	if f-k < 3 {
		return blockToken{}, false
	}
	fence := text[k:f]

	j := skipSpaces(text, f)
	if end, ok := fenceInfo(text, j); ok {
		j = skipSpaces(text, end)
	}

	if j >= len(text) || text[j] != '\n' {
		return blockToken{}, false
	}

	return blockToken{
		kind:        tokenFence,
		start:       p,
		end:         j,
		fence:       fence,
		fenceIndent: n,
	}, true
}

// fenceInfo matches the optional language after a fence, either a bare
// class name or a {...} attribute block.
func fenceInfo(text string, j int) (int, bool) {
	if j >= len(text) {
		return 0, false
	}

	if text[j] == '{' {
		k := strings.IndexByte(text[j:], '}')
		if k < 0 || strings.IndexByte(text[j:j+k], '\n') >= 0 {
			return 0, false
		}
		return j + k + 1, true
	}

	k := j
	if text[k] == '.' {
		k++
	}
	start := k
	for k < len(text) && isClassByte(text[k]) {
		k++
	}
	if k == start {
		return 0, false
	}
	return k, true
}

func isClassByte(c byte) bool {
	return isAlnum(c) || c == '-' || c == '_' || c == ':'
}

// closingFence finds the line closing a fence, indented exactly like the
// opener, and returns the offset just past it.
func closingFence(text, fence string, indent int) (int, bool) {
	prefix := strings.Repeat(" ", indent) + fence

	for pos := 0; pos < len(text); {
		if strings.HasPrefix(text[pos:], prefix) {
			k := skipSpaces(text, pos+len(prefix))
			if k == len(text) {
				return k, true
			}
			if text[k] == '\n' {
				return k + 1, true
			}
		}

		end := lineEnd(text, pos)
		if end == len(text) {
			break
		}
		pos = end + 1
	}

	return 0, false
}

// codeSpanEnd finds the backtick run closing a code span opened by
// marker. The span may not cross a blank line.
func codeSpanEnd(text, marker string) (int, bool) {
	n := len(marker)
	for j := 0; j < len(text); j++ {
		if j > 0 && text[j-1] != '`' && strings.HasPrefix(text[j:], marker) &&
			(j+n == len(text) || text[j+n] != '`') {
			return j + n, true
		}

		if text[j] == '\n' && j+1 < len(text) && text[j+1] == '\n' {
			return 0, false
		}
	}

	return 0, false
}

func newlineBefore(parsed string) bool {
	return parsed == "" || parsed == "\n" || strings.HasSuffix(parsed, "\n\n")
}

// newlineAfter reports whether a tag is followed only by spaces and an
// optional comment before the end of its line.
func newlineAfter(text string) bool {
	k := skipSpaces(text, 0)
	if strings.HasPrefix(text[k:], "<!--") {
		end := strings.Index(text[k+4:], "-->")
		if end >= 0 && strings.IndexByte(text[k:k+4+end], '\n') < 0 {
			k = skipSpaces(text, k+4+end+3)
		}
	}
	return k < len(text) && text[k] == '\n'
}

// scanHTMLRegion consumes the HTML element that opens text up to its
// matching closing tag and hashes it with the given class. When
// allowMarkdown is set, a markdown attribute on any tag hands its content
// back to scanMarkdownRegion. If the element never closes, ok is false
// and only the first byte is consumed.
func (c *conversion) scanHTMLRegion(text string, class boundary, allowMarkdown bool) (string, string, bool) {
	if text == "" {
		return "", "", true
	}

	original := text

	baseName := ""
	if tag, ok := readTag(text, 0); ok && !tag.closing {
		baseName = tag.name
	}

	var parsed, blockText strings.Builder
	depth := 0

	for {
		start, tagEnd, tag, special, found := nextHTMLToken(text)
		if !found {
			return original[:1], original[1:], false
		}

		blockText.WriteString(text[:start])
		raw := text[start:tagEnd]
		text = text[tagEnd:]

		if special || autoCloseTag[tag.name] {
			blockText.WriteString(raw)
		} else {
			if baseName != "" && tag.name == baseName {
				if tag.closing {
					depth--
				} else if !tag.selfClosing {
					depth++
				}
			}

			value, stripped, hasAttr := "", raw, false
			if allowMarkdown && !tag.closing {
				value, stripped, hasAttr = markdownAttr(raw)
			}

			if hasAttr && (value == "1" || value == "block" || value == "span") {
				spanMode := value == "span" || (value != "block" && spanContentTags[tag.name])
				indent := lastLineIndent(blockText.String())

				blockText.WriteString(stripped)
				parsed.WriteString(c.vault.store(blockText.String(), class))
				blockText.Reset()

				inner, rest := c.scanMarkdownRegion(text, indent, tag.name, spanMode)
				if indent > 0 {
					inner = outdentBy(inner, indent)
				}

				if spanMode {
					parsed.WriteString(inner)
				} else {
					parsed.WriteString("\n\n" + inner + "\n\n")
				}
				text = rest
			} else {
				blockText.WriteString(raw)
			}
		}

		if depth <= 0 {
			break
		}
	}

	parsed.WriteString(c.vault.store(blockText.String(), class))
	return parsed.String(), text, true
}

// nextHTMLToken finds the next tag, comment or processing instruction.
func nextHTMLToken(text string) (start, end int, tag htmlTag, special, found bool) {
	for p := strings.IndexByte(text, '<'); p >= 0; {
		if e, ok := readSpecial(text, p); ok {
			return p, e, htmlTag{}, text[p+1] != '%', true
		}

		if t, ok := readTag(text, p); ok {
			return p, t.end, t, false, true
		}

		next := strings.IndexByte(text[p+1:], '<')
		if next < 0 {
			break
		}
		p += next + 1
	}

	return 0, 0, htmlTag{}, false, false
}

// markdownAttr finds a markdown="..." attribute, returning its value and
// the tag without it.
func markdownAttr(tag string) (string, string, bool) {
	for from := 0; ; {
		k := strings.Index(tag[from:], "markdown")
		if k < 0 {
			return "", tag, false
		}
		k += from
		from = k + 1

		if k == 0 || !isSpace(tag[k-1]) {
			continue
		}

		j := k + len("markdown")
		for j < len(tag) && isSpace(tag[j]) {
			j++
		}
		if j >= len(tag) || tag[j] != '=' {
			continue
		}
		j++
		for j < len(tag) && isSpace(tag[j]) {
			j++
		}

		var value string
		switch {
		case j < len(tag) && (tag[j] == '"' || tag[j] == '\''):
			q := strings.IndexByte(tag[j+1:], tag[j])
			if q < 0 {
				continue
			}
			value = tag[j+1 : j+1+q]
			j += q + 2
		default:
			v := j
			for j < len(tag) && !isSpace(tag[j]) && tag[j] != '>' {
				j++
			}
			value = tag[v:j]
		}

		attrStart := k
		for attrStart > 0 && isSpace(tag[attrStart-1]) {
			attrStart--
		}

		return value, tag[:attrStart] + tag[j:], true
	}
}

// lastLineIndent counts the leading spaces of the last line of text,
// ignoring one trailing newline.
func lastLineIndent(text string) int {
	text = strings.TrimSuffix(text, "\n")
	if k := strings.LastIndexByte(text, '\n'); k >= 0 {
		text = text[k+1:]
	}
	return countSpaces(text, 0)
}
