package markdown

import "strings"

type listKind int

const (
	listBullet listKind = iota
	listOrdered
)

func (k listKind) tag() string {
	if k == listOrdered {
		return "ol"
	}
	return "ul"
}

func (k listKind) other() listKind {
	if k == listOrdered {
		return listBullet
	}
	return listOrdered
}

// markerLen returns the length of a list marker of kind k at text[i], or 0.
func markerLen(text string, i int, k listKind) int {
	if i >= len(text) {
		return 0
	}

	if k == listBullet {
		switch text[i] {
		case '*', '+', '-':
			return 1
		}
		return 0
	}

	j := i
	for j < len(text) && isDigit(text[j]) {
		j++
	}
	if j == i || j >= len(text) || text[j] != '.' {
		return 0
	}
	return j + 1 - i
}

// markerThenSpace reports whether text[i] starts a marker of kind k
// followed by at least one space.
func markerThenSpace(text string, i int, k listKind) bool {
	n := markerLen(text, i, k)
	return n > 0 && i+n < len(text) && text[i+n] == ' '
}

// doLists turns bullet lists first, then ordered lists, into HTML.
func (c *conversion) doLists(text string) string {
	for _, kind := range []listKind{listBullet, listOrdered} {
		text = rewrite(text, func(text string, i int) (int, string, bool) {
			return c.matchList(text, i, kind)
		})
	}
	return text
}

// matchList matches a whole list of the given kind. Nested lists may
// start on any line; top-level lists need the start of text or a blank
// line before them.
func (c *conversion) matchList(text string, i int, kind listKind) (int, string, bool) {
	var starts []int
	switch {
	case c.listLevel > 0:
		if !lineStart(text, i) {
			return 0, "", false
		}
		starts = append(starts, i)
	case i == 0:
		if text[0] == '\n' {
			starts = append(starts, 1)
		}
		starts = append(starts, 0)
	case text[i] == '\n' && text[i-1] == '\n':
		starts = append(starts, i+1)
	default:
		return 0, "", false
	}

	for _, start := range starts {
		end, ok := c.listEnd(text, start, kind)
		if !ok {
			continue
		}

		items := c.processListItems(text[start:end]+"\n", kind)
		tag := kind.tag()
		block := "<" + tag + ">\n" + items + "</" + tag + ">"
		return end, "\n" + c.hashBlock(block) + "\n\n", true
	}

	return 0, "", false
}

// listEnd finds where the list starting at s stops: at the end of text,
// at a blank line followed by something that is not a list item, or at a
// marker of the other kind with the same indentation.
func (c *conversion) listEnd(text string, s int, kind listKind) (int, bool) {
	n := countSpaces(text, s)
	if n > c.opts.TabWidth-1 {
		return 0, false
	}
	indent := text[s : s+n]

	j := s + n
	m := markerLen(text, j, kind)
	if m == 0 {
		return 0, false
	}
	j += m

	if j >= len(text) || text[j] != ' ' {
		return 0, false
	}
	j = skipSpaces(text, j)
	if j >= len(text) {
		return 0, false
	}

	other := kind.other()
	for e := j + 1; e <= len(text); e++ {
		if e == len(text) {
			return e, true
		}
		if text[e] != '\n' {
			continue
		}

		r := newlineRunEnd(text, e)
		if r-e >= 2 && r < len(text) && !isSpace(text[r]) && !markerThenSpace(text, r, kind) {
			return r, true
		}

		if strings.HasPrefix(text[e+1:], indent) && markerThenSpace(text, e+1+len(indent), other) {
			return e, true
		}
	}

	return 0, false
}

// processListItems renders the items of one list. Items that touch a
// blank line are parsed as blocks; the others as spans.
func (c *conversion) processListItems(list string, kind listKind) string {
	c.listLevel++
	defer func() { c.listLevel-- }()

	list = trailingBlankRe.ReplaceAllString(list, "\n")

	var b strings.Builder
	last := 0

	for p := 0; p < len(list); {
		item, ok := c.listItemAt(list, p, kind)
		if !ok {
			p++
			continue
		}

		b.WriteString(list[last:p])
		b.WriteString("<li>" + c.renderListItem(item) + "</li>\n")
		last = item.end
		p = item.end
	}

	b.WriteString(list[last:])
	return b.String()
}

type listItem struct {
	end         int
	leading     bool
	tailing     bool
	indent      string
	markerSpace string
	content     string
}

// listItemAt matches one list item at p, optionally preceded by the
// newline left over from a loose item before it.
func (c *conversion) listItemAt(list string, p int, kind listKind) (listItem, bool) {
	type candidate struct {
		start   int
		leading bool
	}

	var candidates []candidate
	if list[p] == '\n' {
		candidates = append(candidates, candidate{p + 1, true})
	}
	if lineStart(list, p) {
		candidates = append(candidates, candidate{p, false})
	}

	for _, cand := range candidates {
		if item, ok := c.listItemFrom(list, cand.start, kind); ok {
			item.leading = cand.leading
			return item, true
		}
	}

	return listItem{}, false
}

func (c *conversion) listItemFrom(list string, ls int, kind listKind) (listItem, bool) {
	n := countSpaces(list, ls)
	indent := list[ls : ls+n]

	ms := ls + n
	m := markerLen(list, ms, kind)
	if m == 0 || ms+m >= len(list) {
		return listItem{}, false
	}

	contentStart := ms + m
	switch {
	case list[contentStart] == ' ':
		contentStart = skipSpaces(list, contentStart)
	case list[contentStart] != '\n':
		return listItem{}, false
	}

	for q := contentStart; q < len(list); q++ {
		if list[q] != '\n' {
			continue
		}

		r := newlineRunEnd(list, q)
		next := r == len(list) ||
			(strings.HasPrefix(list[r:], indent) && markerFollows(list, r+len(indent), kind))
		if !next {
			continue
		}

		item := listItem{
			indent:      indent,
			markerSpace: list[ms:contentStart],
			content:     list[contentStart:q],
			end:         r,
		}
		if r-q >= 2 {
			item.tailing = true
			item.end = r - 1
		}
		return item, true
	}

	return listItem{}, false
}

// markerFollows reports whether a marker sits at text[i] followed by a
// space or the end of the line.
func markerFollows(text string, i int, kind listKind) bool {
	n := markerLen(text, i, kind)
	return n > 0 && i+n < len(text) && (text[i+n] == ' ' || text[i+n] == '\n')
}

func (c *conversion) renderListItem(item listItem) string {
	content := item.content

	if item.leading || item.tailing || strings.Contains(content, "\n\n") {
		content = item.indent + strings.Repeat(" ", len(item.markerSpace)) + content
		return c.runBlockGamut(outdent(content, c.opts.TabWidth) + "\n")
	}

	content = c.doLists(outdent(content, c.opts.TabWidth))
	content = strings.TrimRight(content, "\n")
	return c.runSpanGamut(content)
}
