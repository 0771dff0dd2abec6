package markdown

import (
	"fmt"
	"hash/crc32"
	"regexp"
	"strconv"
	"strings"
)

var (
	autoLinkURLRe   = regexp.MustCompile(`(?i)<((?:https?|ftp|dict):[^'">\s]+)>`)
	autoLinkEmailRe = regexp.MustCompile(`(?i)<(?:mailto:)?((?:[-!#$%&'*+/=?^_` + "`" + `.{|}~\w\x{80}-\x{10FFFF}]+|".*?")@(?:[-a-z0-9\x{80}-\x{10FFFF}]+(?:\.[-a-z0-9\x{80}-\x{10FFFF}]+)*\.[a-z]+|\[[\d.a-fA-F:]+\]))>`)
	hardBreakRe     = regexp.MustCompile(` {2,}\n`)
	linkIDBreakRe   = regexp.MustCompile(`[ ]?\n`)
)

// parseSpan hashes backslash escapes, code spans and inline HTML so that
// later span stages leave them alone.
func (c *conversion) parseSpan(text string) string {
	var b strings.Builder

	for {
		start, end, found := c.nextSpanToken(text)
		if !found {
			b.WriteString(text)
			break
		}

		b.WriteString(text[:start])
		token := text[start:end]
		text = text[end:]

		switch token[0] {
		case '\\':
			b.WriteString(c.hashPart("&#" + strconv.Itoa(int(token[1])) + ";"))

		case '`':
			if k, ok := closingBackticks(text, token); ok {
				b.WriteString(c.makeCodeSpan(text[:k]))
				text = text[k+len(token):]
			} else {
				b.WriteString(token)
			}

		default:
			b.WriteString(c.hashPart(token))
		}
	}

	return b.String()
}

// nextSpanToken finds the next escape, backtick run or inline tag.
func (c *conversion) nextSpanToken(text string) (int, int, bool) {
	escapes := c.p.dialect.escapeChars

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if i+1 < len(text) && strings.IndexByte(escapes, text[i+1]) >= 0 {
				return i, i + 2, true
			}

		case '`':
			if i > 0 && (text[i-1] == '`' || text[i-1] == '\\') {
				continue
			}
			end := i
			for end < len(text) && text[end] == '`' {
				end++
			}
			return i, end, true

		case '<':
			if c.opts.NoMarkup || opensLinkDestination(text, i) {
				continue
			}
			if end, ok := spanTagEnd(text, i); ok {
				return i, end, true
			}
		}
	}

	return 0, 0, false
}

// opensLinkDestination reports whether the '<' at i starts a bracketed
// destination such as [a](<url with space>), which the anchor stage reads.
func opensLinkDestination(text string, i int) bool {
	j := i - 1
	for j >= 0 && (text[j] == ' ' || text[j] == '\t') {
		j--
	}
	return j >= 1 && text[j] == '(' && text[j-1] == ']'
}

// closingBackticks finds a run equal to marker that is not part of a
// longer run, after at least one character of content.
func closingBackticks(text, marker string) (int, bool) {
	n := len(marker)
	for j := 1; j+n <= len(text); j++ {
		if text[j-1] != '`' && strings.HasPrefix(text[j:], marker) &&
			(j+n == len(text) || text[j+n] != '`') {
			return j, true
		}
	}
	return 0, false
}

// spanTagEnd matches an inline tag, comment or processing instruction.
func spanTagEnd(text string, i int) (int, bool) {
	if end, ok := readSpecial(text, i); ok {
		return end, true
	}

	j := i + 1
	closing := false
	switch {
	case j < len(text) && text[j] == '/':
		closing = true
		j++
	case j < len(text) && (text[j] == '!' || text[j] == '$'):
		j++
	}

	start := j
	for j < len(text) && isSpanTagNameByte(text[j]) {
		j++
	}
	if j == start || j >= len(text) {
		return 0, false
	}

	if closing {
		j = skipWhitespace(text, j)
		if j < len(text) && text[j] == '>' {
			return j + 1, true
		}
		return 0, false
	}

	switch {
	case text[j] == '>':
		return j + 1, true
	case isSpace(text[j]):
		if end, ok := spanTagAttrs(text, j); ok {
			return end, true
		}
	}

	// <name />
	k := skipWhitespace(text, j)
	if text[i+1] != '!' && text[i+1] != '$' && strings.HasPrefix(text[k:], "/>") {
		return k + 2, true
	}

	return 0, false
}

// spanTagAttrs consumes unquoted runs and quoted values up to the '>'.
func spanTagAttrs(text string, j int) (int, bool) {
	for j < len(text) {
		switch text[j] {
		case '>':
			return j + 1, true
		case '"', '\'':
			k := strings.IndexByte(text[j+1:], text[j])
			if k < 0 {
				return 0, false
			}
			j += k + 2
		default:
			j++
		}
	}
	return 0, false
}

func isSpanTagNameByte(c byte) bool {
	return isAlnum(c) || c == '-' || c == ':' || c == '_'
}

func skipWhitespace(text string, j int) int {
	for j < len(text) && isSpace(text[j]) {
		j++
	}
	return j
}

func (c *conversion) makeCodeSpan(code string) string {
	code = escapeCode(trimBlank(code))
	return c.hashPart("<code>" + code + "</code>")
}

func (c *conversion) encodeAttribute(text string) string {
	return strings.ReplaceAll(c.encodeAmpsAndAngles(text), `"`, "&quot;")
}

func (c *conversion) doImages(text string) string {
	text = rewrite(text, c.matchReferenceImage)
	return rewrite(text, c.matchInlineImage)
}

// matchReferenceImage matches ![alt][id].
func (c *conversion) matchReferenceImage(text string, i int) (int, string, bool) {
	if text[i] != '!' {
		return 0, "", false
	}

	altEnd, ok := matchBrackets(text, i+1)
	if !ok {
		return 0, "", false
	}

	id, end, ok := referenceID(text, altEnd)
	if !ok {
		return 0, "", false
	}

	alt := text[i+2 : altEnd-1]
	linkID := strings.ToLower(id)
	if linkID == "" {
		linkID = strings.ToLower(alt)
	}

	url, known := c.urls[linkID]
	if !known {
		return end, text[i:end], true
	}

	img := `<img src="` + c.encodeAttribute(url) + `" alt="` + c.encodeAttribute(alt) + `"`
	if title, ok := c.titles[linkID]; ok {
		img += ` title="` + c.encodeAttribute(title) + `"`
	}
	img += c.opts.EmptyElementSuffix

	return end, c.hashPart(img), true
}

// referenceID matches the [id] part of a reference link at k, allowing one
// space and one line break before it.
func referenceID(text string, k int) (string, int, bool) {
	if k < len(text) && text[k] == ' ' {
		k++
	}
	if k < len(text) && text[k] == '\n' {
		k = skipSpaces(text, k+1)
	}

	if k >= len(text) || text[k] != '[' {
		return "", 0, false
	}

	rb := strings.IndexByte(text[k+1:], ']')
	if rb < 0 {
		return "", 0, false
	}

	return text[k+1 : k+1+rb], k + rb + 2, true
}

// matchInlineImage matches ![alt](url "title").
func (c *conversion) matchInlineImage(text string, i int) (int, string, bool) {
	if text[i] != '!' {
		return 0, "", false
	}

	altEnd, ok := matchBrackets(text, i+1)
	if !ok {
		return 0, "", false
	}

	k := altEnd
	if k < len(text) && isSpace(text[k]) {
		k++
	}
	if k >= len(text) || text[k] != '(' {
		return 0, "", false
	}

	dest, ok := inlineDestination(text, k+1, false)
	if !ok {
		return 0, "", false
	}

	alt := text[i+2 : altEnd-1]
	img := `<img src="` + c.encodeAttribute(dest.url) + `" alt="` + c.encodeAttribute(alt) + `"`
	if dest.hasTitle {
		img += ` title="` + c.encodeAttribute(dest.title) + `"`
	}
	img += c.opts.EmptyElementSuffix

	return dest.end, c.hashPart(img), true
}

type destination struct {
	url      string
	title    string
	hasTitle bool
	end      int
}

// inlineDestination parses `url "title")` starting after the opening
// parenthesis. The URL is either in angle brackets or a run of non-space
// characters with balanced parentheses.
func inlineDestination(text string, k int, anyBracketed bool) (destination, bool) {
	k = skipLinkSpace(text, k)

	if k < len(text) && text[k] == '<' {
		for _, gt := range bracketedURLEnds(text, k+1, anyBracketed) {
			if d, ok := destinationTail(text, gt+1); ok {
				d.url = text[k+1 : gt]
				return d, true
			}
		}
	}

	urlEnd := scanParenURL(text, k, 0)
	d, ok := destinationTail(text, urlEnd)
	if !ok {
		return destination{}, false
	}
	d.url = text[k:urlEnd]
	return d, true
}

// bracketedURLEnds lists the candidate closing '>' offsets of a <url>.
// Images accept only non-space URLs and prefer the longest one; links take
// the shortest run of any characters first.
func bracketedURLEnds(text string, start int, anyBracketed bool) []int {
	var ends []int

	if anyBracketed {
		for j := start + 1; j < len(text); j++ {
			if text[j] == '>' {
				ends = append(ends, j)
			}
		}
		return ends
	}

	j := start
	for j < len(text) && !isSpace(text[j]) {
		j++
	}
	for g := j - 1; g >= start; g-- {
		if text[g] == '>' {
			ends = append(ends, g)
		}
	}
	return ends
}

// destinationTail parses the optional title and the closing parenthesis.
func destinationTail(text string, k int) (destination, bool) {
	k = skipLinkSpace(text, k)
	if k >= len(text) {
		return destination{}, false
	}

	if q := text[k]; q == '"' || q == '\'' {
		for j := k + 1; j < len(text); j++ {
			if text[j] != q {
				continue
			}
			e := skipLinkSpace(text, j+1)
			if e < len(text) && text[e] == ')' {
				return destination{title: text[k+1 : j], hasTitle: true, end: e + 1}, true
			}
		}
		return destination{}, false
	}

	if text[k] == ')' {
		return destination{end: k + 1}, true
	}
	return destination{}, false
}

func skipLinkSpace(text string, k int) int {
	for k < len(text) && (text[k] == ' ' || text[k] == '\n') {
		k++
	}
	return k
}

func (c *conversion) doAnchors(text string) string {
	if c.inAnchor {
		return text
	}

	text = rewrite(text, c.matchReferenceAnchor)
	text = rewrite(text, c.matchInlineAnchor)
	return rewrite(text, c.matchShortcutAnchor)
}

// matchReferenceAnchor matches [text][id] and [text][].
func (c *conversion) matchReferenceAnchor(text string, i int) (int, string, bool) {
	textEnd, ok := matchBrackets(text, i)
	if !ok {
		return 0, "", false
	}

	id, end, ok := referenceID(text, textEnd)
	if !ok {
		return 0, "", false
	}

	linkText := text[i+1 : textEnd-1]
	if id == "" {
		id = linkText
	}

	anchor, ok := c.referenceAnchor(id, linkText)
	if !ok {
		return end, text[i:end], true
	}
	return end, anchor, true
}

// matchShortcutAnchor matches [text] on its own when text is a known id.
func (c *conversion) matchShortcutAnchor(text string, i int) (int, string, bool) {
	if text[i] != '[' {
		return 0, "", false
	}

	rb := strings.IndexAny(text[i+1:], "[]")
	if rb <= 0 || text[i+1+rb] != ']' {
		return 0, "", false
	}

	end := i + rb + 2
	linkText := text[i+1 : end-1]

	anchor, ok := c.referenceAnchor(linkText, linkText)
	if !ok {
		return end, text[i:end], true
	}
	return end, anchor, true
}

func (c *conversion) referenceAnchor(id, linkText string) (string, bool) {
	linkID := strings.ToLower(linkIDBreakRe.ReplaceAllString(id, " "))

	url, known := c.urls[linkID]
	if !known {
		return "", false
	}

	result := `<a href="` + c.encodeAttribute(url) + `"`
	if title, ok := c.titles[linkID]; ok {
		result += ` title="` + c.encodeAttribute(title) + `"`
	}

	return c.hashPart(result + ">" + c.anchorText(linkText) + "</a>"), true
}

// anchorText renders link text with anchors disabled, so links never nest.
// Footnote references were marked before the anchor stage ran; they go back
// to literal text here.
func (c *conversion) anchorText(text string) string {
	text = footnoteMarkerRe.ReplaceAllString(text, "[^$1]")

	c.inAnchor = true
	defer func() { c.inAnchor = false }()
	return c.runSpanGamut(text)
}

// matchInlineAnchor matches [text](url "title").
func (c *conversion) matchInlineAnchor(text string, i int) (int, string, bool) {
	textEnd, ok := matchBrackets(text, i)
	if !ok || textEnd >= len(text) || text[textEnd] != '(' {
		return 0, "", false
	}

	dest, ok := inlineDestination(text, textEnd+1, true)
	if !ok {
		return 0, "", false
	}

	result := `<a href="` + c.encodeAttribute(dest.url) + `"`
	if dest.hasTitle {
		result += ` title="` + c.encodeAttribute(dest.title) + `"`
	}

	linkText := text[i+1 : textEnd-1]
	return dest.end, c.hashPart(result + ">" + c.anchorText(linkText) + "</a>"), true
}

func (c *conversion) doAutoLinks(text string) string {
	text = replaceSubmatches(text, autoLinkURLRe, func(m []string) string {
		url := c.encodeAttribute(m[1])
		return c.hashPart(`<a href="` + url + `">` + url + `</a>`)
	})

	return replaceSubmatches(text, autoLinkEmailRe, func(m []string) string {
		return c.hashPart(encodeEmailAddress(m[1]))
	})
}

// encodeEmailAddress renders a mailto link with every ASCII character
// turned into a decimal or hexadecimal entity, except for a few left raw.
// The choice is seeded from the address so the output is deterministic.
func encodeEmailAddress(addr string) string {
	addr = "mailto:" + addr

	seed := int(crc32.ChecksumIEEE([]byte(addr)) / uint32(len(addr)))

	chars := make([]string, len(addr))
	for key := 0; key < len(addr); key++ {
		ch := addr[key]
		if ch >= 0x80 {
			chars[key] = addr[key : key+1]
			continue
		}

		r := (seed * (1 + key)) % 100
		switch {
		case r > 90 && ch != '@':
			chars[key] = addr[key : key+1]
		case r < 45:
			chars[key] = fmt.Sprintf("&#x%x;", ch)
		default:
			chars[key] = "&#" + strconv.Itoa(int(ch)) + ";"
		}
	}

	href := strings.Join(chars, "")
	text := strings.Join(chars[len("mailto:"):], "")

	return `<a href="` + href + `">` + text + `</a>`
}

// encodeAmpsAndAngles escapes '&' unless it starts an entity, and every '<'.
func (c *conversion) encodeAmpsAndAngles(text string) string {
	if !strings.ContainsAny(text, "&<") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 8)

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '&':
			if c.opts.NoEntities || !entityAt(text, i) {
				b.WriteString("&amp;")
				continue
			}
			b.WriteByte('&')
		case '<':
			b.WriteString("&lt;")
		default:
			b.WriteByte(text[i])
		}
	}

	return b.String()
}

func (c *conversion) doHardBreaks(text string) string {
	return hardBreakRe.ReplaceAllStringFunc(text, func(string) string {
		return c.hashPart(c.emptyElement("br") + "\n")
	})
}
