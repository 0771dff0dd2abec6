package markdown

import (
	"regexp"
	"strings"
)

var (
	setextHeaderRe     = regexp.MustCompile(`(?m)^(.+?)[ ]*\n(=+|-+)[ ]*\n+`)
	setextHeaderIDRe   = regexp.MustCompile(`(?m)^(.+?)(?:[ ]+\{#([-_:a-zA-Z0-9]+)\})?[ ]*\n(=+|-+)[ ]*\n+`)
	atxHeaderRe        = regexp.MustCompile(`(?m)^(#{1,6})[ ]*(.+?)[ ]*#*\n+`)
	atxHeaderIDRe      = regexp.MustCompile(`(?m)^(#{1,6})[ ]*(.+?)[ ]*#*(?:[ ]+\{#([-_:a-zA-Z0-9]+)\})?[ ]*\n+`)
	blockQuoteRe       = regexp.MustCompile(`(?m)((?:^[ ]*>[ ]?.+\n(?:.+\n)*\n*)+)`)
	blockQuoteMarkRe   = regexp.MustCompile(`(?m)^[ ]*>[ ]?|^[ ]+$`)
	lineStartRe        = regexp.MustCompile(`(?m)^`)
	quotedPreRe        = regexp.MustCompile(`(?s)\s*<pre>.+?</pre>`)
	quotedPreIndentRe  = regexp.MustCompile(`(?m)^  `)
	paragraphSplitRe   = regexp.MustCompile(`\n{2,}`)
	leadingNewlinesRe  = regexp.MustCompile(`\A\n+`)
	trailingNewlinesRe = regexp.MustCompile(`\n+\z`)
)

// stripLinkDefinitions removes reference-style link definitions and
// records their URLs and titles under the lowercased id.
func (c *conversion) stripLinkDefinitions(text string) string {
	var b strings.Builder
	last := 0

	for i := 0; i < len(text); {
		if end, ok := c.linkDefinition(text, i); ok {
			b.WriteString(text[last:i])
			last = end
			i = end
			continue
		}
		i = nextLine(text, i)
	}

	if last == 0 {
		return text
	}

	b.WriteString(text[last:])
	return b.String()
}

// linkDefinition parses one definition at the line start i:
//
//	[id]: url "optional title"
func (c *conversion) linkDefinition(text string, i int) (int, bool) {
	j := i
	if n := countSpaces(text, j); n < c.opts.TabWidth {
		j += n
	} else {
		return 0, false
	}

	if j >= len(text) || text[j] != '[' {
		return 0, false
	}

	eol := lineEnd(text, j)
	closeAt := -1
	for k := eol - 1; k > j+1; k-- {
		if text[k] != ']' {
			continue
		}
		m := k + 1
		if m < eol && text[m] == ' ' {
			m++
		}
		if m < eol && text[m] == ':' {
			closeAt = k
			break
		}
	}
	if closeAt < 0 {
		return 0, false
	}

	id := text[j+1 : closeAt]

	k := closeAt + 1
	if text[k] == ' ' {
		k++
	}
	k++ // colon

	k = skipSpaces(text, k)
	if k < len(text) && text[k] == '\n' {
		k = skipSpaces(text, k+1)
	}

	var url string
	gt := -1
	if k < len(text) && text[k] == '<' {
		gt = strings.IndexByte(text[k+1:lineEnd(text, k)], '>')
	}

	if gt > 0 {
		url = text[k+1 : k+1+gt]
		k += gt + 2
	} else {
		start := k
		for k < len(text) && !isSpace(text[k]) {
			k++
		}
		if k == start {
			return 0, false
		}
		url = text[start:k]
	}

	title, end, hasTitle := linkTitle(text, k)
	if !hasTitle {
		end = skipSpaces(text, k)
		if end < len(text) && text[end] != '\n' {
			return 0, false
		}
	}

	end = newlineRunEnd(text, end)

	id = strings.ToLower(id)
	c.urls[id] = url
	if hasTitle {
		c.titles[id] = title
	}

	return end, true
}

// linkTitle matches the optional title of a link definition. It must be
// separated from the URL by whitespace and may sit on the next line.
func linkTitle(text string, k int) (string, int, bool) {
	t := skipSpaces(text, k)
	if t < len(text) && text[t] == '\n' {
		t = skipSpaces(text, t+1)
	}

	if t == k || t >= len(text) {
		return "", 0, false
	}

	switch text[t] {
	case '"', '\'', '(':
	default:
		return "", 0, false
	}

	eol := lineEnd(text, t)
	line := strings.TrimRight(text[t+1:eol], " ")
	if line == "" {
		return "", 0, false
	}

	switch line[len(line)-1] {
	case '"', '\'', ')':
		return line[:len(line)-1], eol, true
	}

	return "", 0, false
}

func (c *conversion) doHeaders(text string) string {
	setext, atx := setextHeaderRe, atxHeaderRe
	if c.p.dialect.headerIDs {
		setext, atx = setextHeaderIDRe, atxHeaderIDRe
	}

	text = replaceSubmatches(text, setext, func(m []string) string {
		content, id, underline := m[1], "", m[2]
		if len(m) == 4 {
			id, underline = m[2], m[3]
		}

		// A single dash under "- item" is a list item, not a header.
		if underline == "-" && strings.HasPrefix(content, "- ") {
			return m[0]
		}

		level := 1
		if underline[0] == '-' {
			level = 2
		}
		return c.header(level, content, id)
	})

	return replaceSubmatches(text, atx, func(m []string) string {
		id := ""
		if len(m) == 4 {
			id = m[3]
		}
		return c.header(len(m[1]), m[2], id)
	})
}

func (c *conversion) header(level int, content, id string) string {
	tag := "h" + string(rune('0'+level))

	attr := ""
	if id != "" {
		attr = ` id="` + id + `"`
	}

	block := "<" + tag + attr + ">" + c.runSpanGamut(content) + "</" + tag + ">"
	return "\n" + c.hashBlock(block) + "\n\n"
}

func (c *conversion) doHorizontalRules(text string) string {
	if !strings.ContainsAny(text, "-*_") {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if isHorizontalRule(line) {
			lines[i] = "\n" + c.hashBlock(c.emptyElement("hr")) + "\n"
		}
	}
	return strings.Join(lines, "\n")
}

// isHorizontalRule reports whether line is three or more of the same
// marker, each separated by at most two spaces.
func isHorizontalRule(line string) bool {
	i := countSpaces(line, 0)
	if i > 3 || i >= len(line) {
		return false
	}

	mark := line[i]
	if mark != '-' && mark != '*' && mark != '_' {
		return false
	}

	count := 1
	i++
	for {
		j := i
		for n := 0; j < len(line) && line[j] == ' ' && n < 2; n++ {
			j++
		}
		if j < len(line) && line[j] == mark {
			i = j + 1
			count++
			continue
		}
		break
	}

	return count >= 3 && allSpaces(line[i:])
}

func (c *conversion) doCodeBlocks(text string) string {
	return rewrite(text, c.matchCodeBlock)
}

// matchCodeBlock matches a run of lines indented by a full tab, starting
// at the beginning of text or after a blank line.
func (c *conversion) matchCodeBlock(text string, i int) (int, string, bool) {
	var starts []int
	switch {
	case i == 0:
		if text[0] == '\n' {
			starts = append(starts, 1)
		}
		starts = append(starts, 0)
	case i >= 2 && text[i-2] == '\n' && text[i-1] == '\n':
		starts = append(starts, i)
	default:
		return 0, "", false
	}

	for _, start := range starts {
		end, ok := c.codeBlockEnd(text, start)
		if !ok {
			continue
		}

		code := outdent(text[start:end], c.opts.TabWidth)
		code = escapeCode(code)
		code = strings.Trim(code, "\n")

		block := "<pre><code>" + code + "\n</code></pre>"
		return end, "\n\n" + c.hashBlock(block) + "\n\n", true
	}

	return 0, "", false
}

// codeBlockEnd collects indented lines and backs off until the block is
// followed by the end of text or a line indented by less than a tab.
func (c *conversion) codeBlockEnd(text string, start int) (int, bool) {
	width := c.opts.TabWidth

	var ends []int
	for k := start; k < len(text); {
		if countSpaces(text, k) < width {
			break
		}
		le := lineEnd(text, k)
		if le == len(text) {
			break
		}
		k = newlineRunEnd(text, le)
		ends = append(ends, k)
	}

	for n := len(ends) - 1; n >= 0; n-- {
		if codeBlockFollows(text, ends[n], width) {
			return ends[n], true
		}
	}

	return 0, false
}

func codeBlockFollows(text string, e, width int) bool {
	if e == len(text) || (e == len(text)-1 && text[e] == '\n') {
		return true
	}

	n := countSpaces(text, e)
	return n <= width && e+n < len(text) && !isSpace(text[e+n])
}

func (c *conversion) doBlockQuotes(text string) string {
	return replaceSubmatches(text, blockQuoteRe, func(m []string) string {
		bq := blockQuoteMarkRe.ReplaceAllString(m[1], "")
		bq = c.runBlockGamut(bq)
		bq = lineStartRe.ReplaceAllString(bq, "  ")

		// Leading spaces inside <pre> are significant.
		bq = quotedPreRe.ReplaceAllStringFunc(bq, func(pre string) string {
			return quotedPreIndentRe.ReplaceAllString(pre, "")
		})

		return "\n" + c.hashBlock("<blockquote>\n"+bq+"\n</blockquote>") + "\n\n"
	})
}

// formParagraphs wraps every chunk between blank lines in <p> unless it
// is already a block token, then restores all block tokens.
func (c *conversion) formParagraphs(text string) string {
	text = leadingNewlinesRe.ReplaceAllString(text, "")
	text = trailingNewlinesRe.ReplaceAllString(text, "")

	chunks := paragraphSplitRe.Split(text, -1)
	grafs := make([]string, 0, len(chunks))

	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}

		value := trimBlank(c.runSpanGamut(chunk))
		if !hasTokenPrefix(value, classBlock) && !isToken(value, classClean) {
			value = "<p>" + value + "</p>"
		}
		grafs = append(grafs, value)
	}

	return c.unhash(strings.Join(grafs, "\n\n"))
}
