package markdown

import (
	"regexp"
	"strings"
)

var (
	tableLeadingPipeRe  = regexp.MustCompile(`(?m)^ *[|]`)
	tableTrailingPipeRe = regexp.MustCompile(`(?m)[|] *$`)
	tableCellSplitRe    = regexp.MustCompile(` *[|] *`)
	alignRightRe        = regexp.MustCompile(`^ *-+: *$`)
	alignCenterRe       = regexp.MustCompile(`^ *:-+: *$`)
	alignLeftRe         = regexp.MustCompile(`^ *:-+ *$`)
)

// doFencedCodeBlocks renders blocks between two identical lines of three or
// more tildes or backticks.
func (c *conversion) doFencedCodeBlocks(text string) string {
	return rewrite(text, c.matchFencedCode)
}

func (c *conversion) matchFencedCode(text string, i int) (int, string, bool) {
	var start int
	switch {
	case text[i] == '\n':
		start = i + 1
	case i == 0:
		start = 0
	default:
		return 0, "", false
	}

	fence, lang, contentStart, ok := fenceLine(text, start)
	if !ok {
		return 0, "", false
	}

	k := contentStart
	lines := 0
	for {
		if isClosingFenceLine(text, k, fence) {
			if lines == 0 {
				return 0, "", false
			}
			break
		}
		le := lineEnd(text, k)
		if le == len(text) {
			return 0, "", false
		}
		k = newlineRunEnd(text, le)
		lines++
	}

	end := skipSpaces(text, k+len(fence))
	code := escapeCode(text[contentStart:k])

	nl := 0
	for nl < len(code) && code[nl] == '\n' {
		nl++
	}
	code = strings.Repeat(c.emptyElement("br"), nl) + code[nl:]

	classAttr := ""
	if lang != "" {
		classAttr = ` class="` + c.opts.CodeClassPrefix + lang + `"`
	}

	block := "<pre><code" + classAttr + ">" + code + "</code></pre>"
	return end, "\n\n" + c.hashBlock(block) + "\n\n", true
}

// fenceLine parses an opening fence with its optional language and
// returns the offset of the first content line.
func fenceLine(text string, i int) (string, string, int, bool) {
	if i >= len(text) || (text[i] != '~' && text[i] != '`') {
		return "", "", 0, false
	}

	f := i
	for f < len(text) && text[f] == text[i] {
		f++
	}
	if f-i < 3 {
		return "", "", 0, false
	}

	j := skipSpaces(text, f)
	lang := ""
	if end, ok := fenceInfo(text, j); ok {
		lang = fenceLanguage(text[j:end])
		j = skipSpaces(text, end)
	}

	if j >= len(text) || text[j] != '\n' {
		return "", "", 0, false
	}

	return text[i:f], lang, j + 1, true
}

// fenceLanguage extracts the class from ".lang", "lang" or "{.lang #id}".
func fenceLanguage(info string) string {
	if strings.HasPrefix(info, "{") {
		for _, part := range strings.Fields(strings.Trim(info, "{}")) {
			if strings.HasPrefix(part, ".") && len(part) > 1 {
				return part[1:]
			}
		}
		return ""
	}
	return strings.TrimPrefix(info, ".")
}

func isClosingFenceLine(text string, k int, fence string) bool {
	if !strings.HasPrefix(text[k:], fence) {
		return false
	}
	j := skipSpaces(text, k+len(fence))
	return j < len(text) && text[j] == '\n'
}

// doTables renders pipe tables, with and without a leading pipe.
func (c *conversion) doTables(text string) string {
	text = rewriteRegexp(text, c.p.re.tablePiped, true, func(text string, m []int) (string, bool) {
		if !tableFollows(text, m[1]) {
			return "", false
		}

		content := tableLeadingPipeRe.ReplaceAllString(text[m[6]:m[7]], "")
		return c.renderTable(text[m[2]:m[3]], text[m[4]:m[5]], content), true
	})

	return rewriteRegexp(text, c.p.re.tablePlain, true, func(text string, m []int) (string, bool) {
		if !tableFollows(text, m[1]) {
			return "", false
		}
		return c.renderTable(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]), true
	})
}

func tableFollows(text string, end int) bool {
	return end == len(text) || text[end] == '\n'
}

func (c *conversion) renderTable(head, underline, content string) string {
	head = tableTrailingPipeRe.ReplaceAllString(head, "")
	underline = tableTrailingPipeRe.ReplaceAllString(underline, "")
	content = tableTrailingPipeRe.ReplaceAllString(content, "")

	separators := tableCellSplitRe.Split(underline, -1)
	attrs := make([]string, len(separators))
	for n, sep := range separators {
		switch {
		case alignRightRe.MatchString(sep):
			attrs[n] = ` align="right"`
		case alignCenterRe.MatchString(sep):
			attrs[n] = ` align="center"`
		case alignLeftRe.MatchString(sep):
			attrs[n] = ` align="left"`
		}
	}

	head = c.parseSpan(head)
	headers := tableCellSplitRe.Split(head, -1)
	cols := len(headers)
	for len(attrs) < cols {
		attrs = append(attrs, "")
	}

	var b strings.Builder
	b.WriteString("<table>\n<thead>\n<tr>\n")
	for n, header := range headers {
		b.WriteString("  <th" + attrs[n] + ">" + c.runSpanGamut(trimBlank(header)) + "</th>\n")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")

	content = strings.Trim(content, "\n")
	if content != "" {
		for _, row := range strings.Split(content, "\n") {
			row = c.parseSpan(row)
			cells := tableCellSplitRe.Split(row, cols)
			for len(cells) < cols {
				cells = append(cells, "")
			}

			b.WriteString("<tr>\n")
			for n, cell := range cells {
				b.WriteString("  <td" + attrs[n] + ">" + c.runSpanGamut(trimBlank(cell)) + "</td>\n")
			}
			b.WriteString("</tr>\n")
		}
	}

	b.WriteString("</tbody>\n</table>")
	return c.hashBlock(b.String()) + "\n"
}

// doDefLists renders definition lists: term lines followed by
// definitions that start with a colon.
func (c *conversion) doDefLists(text string) string {
	return rewrite(text, c.matchDefList)
}

func (c *conversion) matchDefList(text string, i int) (int, string, bool) {
	var start int
	switch {
	case i == 0:
		if text[0] == '\n' {
			start = 1
		}
	case i >= 2 && text[i-2] == '\n' && text[i-1] == '\n':
		start = i
	default:
		return 0, "", false
	}

	end, ok := c.defListEnd(text, start)
	if !ok {
		return 0, "", false
	}

	result := trimBlank(c.processDefListItems(text[start:end]))
	return end, c.hashBlock("<dl>\n"+result+"\n</dl>") + "\n\n", true
}

// defListEnd matches one or more term lines, an optional blank line and a
// definition marker, then extends the list to the end of text or to a
// blank line followed by content that is neither a term nor a definition.
func (c *conversion) defListEnd(text string, s int) (int, bool) {
	var termEnds []int
	for k := s; k < len(text); {
		le := lineEnd(text, k)
		if le == len(text) || allSpaces(text[k:le]) {
			break
		}
		k = le + 1
		termEnds = append(termEnds, k)
	}

	body := -1
	for n := len(termEnds) - 1; n >= 0 && body < 0; n-- {
		body = c.definitionMark(text, termEnds[n])
	}
	if body < 0 || body >= len(text) {
		return 0, false
	}

	for e := body + 1; e <= len(text); e++ {
		if e == len(text) {
			return e, true
		}
		if text[e] != '\n' {
			continue
		}

		r := newlineRunEnd(text, e)
		if r-e < 2 || r >= len(text) || isSpace(text[r]) {
			continue
		}
		if c.termAhead(text, r) || c.colonLine(text, r) >= 0 {
			continue
		}
		return r, true
	}

	return 0, false
}

// definitionMark matches an optional blank line and a colon marker at p
// and returns the offset after the marker's spaces, or -1.
func (c *conversion) definitionMark(text string, p int) int {
	if p < len(text) && text[p] == '\n' {
		if k := c.colonLine(text, p+1); k >= 0 {
			return k
		}
	}
	return c.colonLine(text, p)
}

// colonLine matches a definition marker, a colon indented by less than a
// tab and followed by spaces, and returns the offset after the spaces.
func (c *conversion) colonLine(text string, p int) int {
	n := countSpaces(text, p)
	if n >= c.opts.TabWidth {
		return -1
	}

	k := p + n
	if k+1 >= len(text) || text[k] != ':' || text[k+1] != ' ' {
		return -1
	}
	return skipSpaces(text, k+1)
}

// termAhead reports whether unindented term lines followed by a
// definition marker start at r.
func (c *conversion) termAhead(text string, r int) bool {
	for r < len(text) && !isSpace(text[r]) {
		le := lineEnd(text, r)
		if le == len(text) {
			return false
		}
		r = le + 1
		if c.definitionMark(text, r) >= 0 {
			return true
		}
	}
	return false
}

func (c *conversion) processDefListItems(list string) string {
	list = trailingBlankRe.ReplaceAllString(list, "\n")
	list = rewrite(list, c.matchDefTerms)
	return rewrite(list, c.matchDefinition)
}

// matchDefTerms renders the terms preceding a definition as <dt> lines.
func (c *conversion) matchDefTerms(list string, i int) (int, string, bool) {
	var k int
	switch {
	case i == 0:
		if list[0] == '\n' {
			k = 1
		}
	case list[i] == '\n' && i+1 < len(list) && list[i+1] == '\n':
		k = newlineRunEnd(list, i)
	default:
		return 0, "", false
	}

	n := countSpaces(list, k)
	t := k + n
	if n > 3 || t >= len(list) || isSpace(list[t]) ||
		(list[t] == ':' && t+1 < len(list) && list[t+1] == ' ') {
		return 0, "", false
	}

	for q := t; ; {
		le := lineEnd(list, q)
		if le == len(list) {
			return 0, "", false
		}
		q = le + 1

		if c.definitionSpaceMark(list, q) {
			var b strings.Builder
			for _, term := range strings.Split(trimBlank(list[k:q]), "\n") {
				b.WriteString("\n<dt>" + c.runSpanGamut(trimBlank(term)) + "</dt>")
			}
			b.WriteString("\n")
			return q, b.String(), true
		}

		if q >= len(list) || isSpace(list[q]) {
			return 0, "", false
		}
	}
}

// definitionSpaceMark reports whether an optional blank line and a colon
// followed by a space start at q.
func (c *conversion) definitionSpaceMark(list string, q int) bool {
	if q < len(list) && list[q] == '\n' && colonSpace(list, q+1) {
		return true
	}
	return colonSpace(list, q)
}

func colonSpace(list string, p int) bool {
	n := countSpaces(list, p)
	k := p + n
	return n <= 3 && k+1 < len(list) && list[k] == ':' && list[k+1] == ' '
}

// matchDefinition renders one definition. Definitions preceded by a blank
// line or containing one are parsed as blocks.
func (c *conversion) matchDefinition(list string, i int) (int, string, bool) {
	if list[i] != '\n' {
		return 0, "", false
	}

	r := newlineRunEnd(list, i)
	leading := r-i >= 2

	markerEnd := c.colonLine(list, r)
	if markerEnd < 0 || markerEnd >= len(list) {
		return 0, "", false
	}

	for e := markerEnd + 1; e < len(list); e++ {
		if list[e] != '\n' {
			continue
		}

		r2 := newlineRunEnd(list, e)
		if r2 != len(list) && !colonSpace(list, r2) && !strings.HasPrefix(list[r2:], "<dt>") {
			continue
		}

		def := list[markerEnd:e]
		markerSpace := list[r:markerEnd]

		if leading || strings.Contains(def, "\n\n") {
			def = strings.Repeat(" ", len(markerSpace)) + def
			def = c.runBlockGamut(outdent(def+"\n\n", c.opts.TabWidth))
			def = "\n" + def + "\n"
		} else {
			def = strings.TrimRight(def, blankSet)
			def = c.runSpanGamut(outdent(def, c.opts.TabWidth))
		}

		return e, "\n<dd>" + def + "</dd>\n", true
	}

	return 0, "", false
}
