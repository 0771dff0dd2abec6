package markdown

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	footnoteRefRe    = regexp.MustCompile(`\[\^(.+?)\]`)
	footnoteMarkerRe = regexp.MustCompile("F\x1Afn:(.*?)\x1A:")
)

type footnote struct {
	id   string
	body string
}

// noteState holds the footnotes of one conversion. A definition moves
// from pending to ordered the first time it is referenced; later
// references to the same id stay literal.
type noteState struct {
	pending map[string]string
	ordered []footnote
	number  int
}

func newNoteState() *noteState {
	return &noteState{pending: make(map[string]string), number: 1}
}

// stripFootnotes removes footnote definitions from text and keeps their
// outdented bodies for appendFootnotes.
func (c *conversion) stripFootnotes(text string) string {
	var b strings.Builder
	last := 0

	for i := 0; i < len(text); {
		id, body, end, ok := c.footnoteDefinition(text, i)
		if !ok {
			i = nextLine(text, i)
			continue
		}

		b.WriteString(text[last:i])
		last = end
		i = end

		c.notes.pending[c.opts.FootnoteIDPrefix+id] = outdent(body, c.opts.TabWidth)
	}

	if last == 0 {
		return text
	}

	b.WriteString(text[last:])
	return b.String()
}

// footnoteDefinition parses "[^id]: body" at the line start i. The body
// runs until a blank line followed by an unindented line, or until the
// next footnote or link definition.
func (c *conversion) footnoteDefinition(text string, i int) (string, string, int, bool) {
	n := countSpaces(text, i)
	if n >= c.opts.TabWidth {
		return "", "", 0, false
	}

	j := i + n
	if !strings.HasPrefix(text[j:], "[^") {
		return "", "", 0, false
	}

	idEnd, k, ok := footnoteLabelEnd(text, j+2)
	if !ok {
		return "", "", 0, false
	}
	id := text[j+2 : idEnd]

	k = skipSpaces(text, k)
	if k < len(text) && text[k] == '\n' {
		k++
	}

	bodyStart := k
	for k < len(text) {
		if text[k] != '\n' {
			k = lineEnd(text, k)
			continue
		}

		next := k + 1
		if definitionLabelAt(text, next) || blankThenUnindented(text, next) {
			break
		}
		k = next
	}

	return id, text[bodyStart:k], k, true
}

// footnoteLabelEnd finds the first ']' on the line, after at least one
// character, that is followed by an optional space and a colon. It
// returns the offset of the ']' and the offset past the colon.
func footnoteLabelEnd(text string, start int) (int, int, bool) {
	eol := lineEnd(text, start)
	for k := start + 1; k < eol; k++ {
		if text[k] != ']' {
			continue
		}
		m := k + 1
		if m < eol && text[m] == ' ' {
			m++
		}
		if m < eol && text[m] == ':' {
			return k, m + 1, true
		}
	}
	return 0, 0, false
}

// definitionLabelAt reports whether a footnote or link definition label
// followed by whitespace starts at i.
func definitionLabelAt(text string, i int) bool {
	if i >= len(text) || text[i] != '[' {
		return false
	}

	eol := lineEnd(text, i)
	for k := i + 2; k < eol; k++ {
		if text[k] != ']' {
			continue
		}
		m := k + 1
		if m < eol && text[m] == ' ' {
			m++
		}
		if m+1 < len(text) && text[m] == ':' && isSpace(text[m+1]) {
			return true
		}
	}
	return false
}

// blankThenUnindented reports whether i starts one or more empty lines
// followed by a line indented by at most three spaces.
func blankThenUnindented(text string, i int) bool {
	if i >= len(text) || text[i] != '\n' {
		return false
	}

	r := newlineRunEnd(text, i)
	n := countSpaces(text, r)
	return n <= 3 && r+n < len(text) && !isSpace(text[r+n])
}

// doFootnotes replaces references with markers resolved by appendFootnotes
// once every definition is known.
func (c *conversion) doFootnotes(text string) string {
	if c.inAnchor {
		return text
	}
	return footnoteRefRe.ReplaceAllString(text, "F\x1Afn:${1}\x1A:")
}

// appendFootnotes resolves reference markers and appends the footnote
// list to the document.
func (c *conversion) appendFootnotes(text string) string {
	text = c.resolveFootnoteMarkers(text)

	if len(c.notes.ordered) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n<div class=\"footnotes\">\n")
	b.WriteString(c.emptyElement("hr"))
	b.WriteString("\n<ol>\n\n")

	for num := 1; len(c.notes.ordered) > 0; num++ {
		note := c.notes.ordered[0]
		c.notes.ordered = slices.Delete(c.notes.ordered, 0, 1)

		body := c.runBlockGamut(note.body + "\n\n")
		body = c.resolveFootnoteMarkers(body)

		id := c.encodeAttribute(note.id)
		backlink := `<a href="#fnref:` + id + `"` +
			c.footnoteAttrs(c.opts.FootnoteBacklinkTitle, c.opts.FootnoteBacklinkClass, num) +
			`>&#8617;</a>`

		if strings.HasSuffix(body, "</p>") {
			body = strings.TrimSuffix(body, "</p>") + "&#160;" + backlink + "</p>"
		} else {
			body += "\n\n<p>" + backlink + "</p>"
		}

		b.WriteString(`<li id="fn:` + id + `">` + "\n")
		b.WriteString(body)
		b.WriteString("\n</li>\n\n")
	}

	b.WriteString("</ol>\n</div>")
	return b.String()
}

func (c *conversion) resolveFootnoteMarkers(text string) string {
	return replaceSubmatches(text, footnoteMarkerRe, func(m []string) string {
		id := m[1]
		nodeID := c.opts.FootnoteIDPrefix + id

		body, ok := c.notes.pending[nodeID]
		if !ok {
			return "[^" + id + "]"
		}

		delete(c.notes.pending, nodeID)
		c.notes.ordered = append(c.notes.ordered, footnote{id: nodeID, body: body})

		num := c.notes.number
		c.notes.number++

		ref := c.encodeAttribute(nodeID)
		return `<sup id="fnref:` + ref + `"><a href="#fn:` + ref + `"` +
			c.footnoteAttrs(c.opts.FootnoteLinkTitle, c.opts.FootnoteLinkClass, num) +
			`>` + strconv.Itoa(num) + `</a></sup>`
	})
}

// footnoteAttrs renders the optional title and class attributes, with %%
// replaced by the footnote number.
func (c *conversion) footnoteAttrs(title, class string, num int) string {
	n := strconv.Itoa(num)

	var attrs string
	if class != "" {
		attrs += ` class="` + strings.ReplaceAll(c.encodeAttribute(class), "%%", n) + `"`
	}
	if title != "" {
		attrs += ` title="` + strings.ReplaceAll(c.encodeAttribute(title), "%%", n) + `"`
	}
	return attrs
}

// abbrState holds the abbreviations of one conversion. The combined
// pattern is rebuilt lazily when the word list changes.
type abbrState struct {
	descriptions map[string]string
	words        []string
	pattern      *regexp.Regexp
	stale        bool
}

func newAbbrState(predefined map[string]string) *abbrState {
	s := &abbrState{descriptions: make(map[string]string, len(predefined))}
	for word, desc := range predefined {
		s.add(word, desc)
	}
	return s
}

func (s *abbrState) add(word, desc string) {
	if _, seen := s.descriptions[word]; !seen {
		s.words = append(s.words, word)
	}
	s.descriptions[word] = trimBlank(desc)
	s.stale = true
}

// matcher returns a pattern matching any known word, longest first so a
// word never shadows a longer one it prefixes.
func (s *abbrState) matcher() *regexp.Regexp {
	if !s.stale {
		return s.pattern
	}
	s.stale = false

	if len(s.words) == 0 {
		s.pattern = nil
		return nil
	}

	words := slices.Clone(s.words)
	slices.SortStableFunc(words, func(a, b string) int {
		return len(b) - len(a)
	})

	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	s.pattern = regexp.MustCompile(strings.Join(quoted, "|"))
	return s.pattern
}

// stripAbbreviations removes "*[word]: description" lines and records them.
func (c *conversion) stripAbbreviations(text string) string {
	return replaceSubmatches(text, c.p.re.abbreviation, func(m []string) string {
		c.abbrs.add(m[1], m[2])
		return ""
	})
}

// doAbbreviations wraps known words in <abbr>. A match counts only when
// neither neighbor is a word character or part of a token.
func (c *conversion) doAbbreviations(text string) string {
	re := c.abbrs.matcher()
	if re == nil {
		return text
	}

	return rewriteRegexp(text, re, false, func(text string, m []int) (string, bool) {
		start, end := m[0], m[1]
		if start > 0 && isAbbrNeighbor(text[start-1]) {
			return "", false
		}
		if end < len(text) && isAbbrNeighbor(text[end]) {
			return "", false
		}

		word := text[start:end]
		desc := c.abbrs.descriptions[word]
		if desc == "" {
			return c.hashPart("<abbr>" + word + "</abbr>"), true
		}
		return c.hashPart(`<abbr title="` + c.encodeAttribute(desc) + `">` + word + "</abbr>"), true
	})
}

func isAbbrNeighbor(c byte) bool {
	return isWordByte(c) || c == tokenMark
}
