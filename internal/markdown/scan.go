package markdown

import (
	"regexp"
	"strings"
)

const (
	nestedBracketsDepth = 6
	nestedURLParenDepth = 4
)

// blankSet is the trim set used for cells, terms and chunks. Unlike
// strings.TrimSpace it leaves non-breaking spaces alone.
const blankSet = " \t\n\r\x00\x0B"

var (
	whitespaceLineRe = regexp.MustCompile(`(?m)^[ ]+$`)
	trailingBlankRe  = regexp.MustCompile(`\n{2,}\z`)
)

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isWordByte matches \w without unicode semantics.
func isWordByte(c byte) bool {
	return isAlnum(c) || c == '_'
}

// isSpace matches \s without unicode semantics.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func trimBlank(s string) string {
	return strings.Trim(s, blankSet)
}

// normalize strips a byte order mark and every token mark, unifies line
// endings and appends the two newlines the block patterns rely on.
func normalize(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, string(rune(tokenMark)), "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text + "\n\n"
}

// detab expands tabs to the next multiple of width, counting runes.
func detab(text string, width int) string {
	if !strings.Contains(text, "\t") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			pad := width - col%width
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
		case '\n':
			b.WriteByte('\n')
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}

	return b.String()
}

// outdent removes one indentation level from every line.
func outdent(text string, width int) string {
	return outdentBy(text, width)
}

// outdentBy removes up to n leading spaces (or a single tab) from every line.
func outdentBy(text string, n int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "\t") {
			lines[i] = line[1:]
			continue
		}

		j := 0
		for j < len(line) && j < n && line[j] == ' ' {
			j++
		}
		lines[i] = line[j:]
	}

	return strings.Join(lines, "\n")
}

func blankWhitespaceLines(text string) string {
	return whitespaceLineRe.ReplaceAllString(text, "")
}

func lineStart(text string, i int) bool {
	return i == 0 || (i <= len(text) && text[i-1] == '\n')
}

// lineEnd returns the offset of the newline ending the line containing i,
// or len(text).
func lineEnd(text string, i int) int {
	if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(text)
}

func nextLine(text string, i int) int {
	end := lineEnd(text, i)
	if end < len(text) {
		return end + 1
	}
	return end
}

func countSpaces(text string, i int) int {
	n := 0
	for i+n < len(text) && text[i+n] == ' ' {
		n++
	}
	return n
}

func skipSpaces(text string, i int) int {
	return i + countSpaces(text, i)
}

func newlineRunEnd(text string, i int) int {
	for i < len(text) && text[i] == '\n' {
		i++
	}
	return i
}

func allSpaces(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			return false
		}
	}
	return true
}

// matchBrackets expects text[i] == '[' and returns the offset just past
// the matching ']' when the nesting stays within nestedBracketsDepth.
func matchBrackets(text string, i int) (int, bool) {
	if i >= len(text) || text[i] != '[' {
		return 0, false
	}

	depth := 0
	for j := i; j < len(text); j++ {
		switch text[j] {
		case '[':
			depth++
			if depth > nestedBracketsDepth+1 {
				return 0, false
			}
		case ']':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
	}

	return 0, false
}

// scanParenURL consumes a URL made of non-space characters and balanced
// parentheses and returns the offset where it stops.
func scanParenURL(text string, i, depth int) int {
	for i < len(text) {
		c := text[i]
		switch {
		case c == '(':
			if depth >= nestedURLParenDepth {
				return i
			}
			j := scanParenURL(text, i+1, depth+1)
			if j >= len(text) || text[j] != ')' {
				return i
			}
			i = j + 1
		case c == ')' || isSpace(c):
			return i
		default:
			i++
		}
	}

	return i
}

// entityAt reports whether text[i] is an ampersand starting a character
// or entity reference.
func entityAt(text string, i int) bool {
	j := i + 1
	if j < len(text) && text[j] == '#' {
		j++
	}

	start := j
	for j < len(text) && isWordByte(text[j]) {
		j++
	}

	return j > start && j < len(text) && text[j] == ';'
}

// escapeCode escapes the characters that matter inside <code>.
func escapeCode(text string) string {
	return codeEscaper.Replace(text)
}

var codeEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// matcher reports whether a construct starts at offset i and returns the
// offset just past it together with its replacement.
type matcher func(text string, i int) (end int, replacement string, ok bool)

// rewrite tries m at every offset from left to right and splices in the
// replacements of the non-overlapping matches.
func rewrite(text string, m matcher) string {
	var b strings.Builder
	last := 0
	changed := false

	for i := 0; i < len(text); {
		end, repl, ok := m(text, i)
		if !ok {
			i++
			continue
		}

		if !changed {
			b.Grow(len(text))
			changed = true
		}

		b.WriteString(text[last:i])
		b.WriteString(repl)
		last = end

		if end <= i {
			end = i + 1
		}
		i = end
	}

	if !changed {
		return text
	}

	if last < len(text) {
		b.WriteString(text[last:])
	}
	return b.String()
}

// rewriteRegexp replaces the matches of re whose callback accepts them. A
// rejected match resumes the search one byte after its start. When
// anchored is set, matches that do not start a line are rejected, which
// keeps (?m)^ honest when searching from the middle of text.
func rewriteRegexp(
	text string,
	re *regexp.Regexp,
	anchored bool,
	fn func(text string, m []int) (string, bool),
) string {
	var b strings.Builder
	last := 0
	pos := 0
	changed := false

	for pos <= len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}

		for k := range loc {
			if loc[k] >= 0 {
				loc[k] += pos
			}
		}

		if anchored && !lineStart(text, loc[0]) {
			pos = loc[0] + 1
			continue
		}

		repl, ok := fn(text, loc)
		if !ok {
			pos = loc[0] + 1
			continue
		}

		b.WriteString(text[last:loc[0]])
		b.WriteString(repl)
		changed = true
		last = loc[1]
		pos = loc[1]
		if loc[1] == loc[0] {
			pos++
		}
	}

	if !changed {
		return text
	}

	b.WriteString(text[last:])
	return b.String()
}

// replaceSubmatches replaces every match of re with fn applied to its
// submatches; unmatched groups are empty strings.
func replaceSubmatches(text string, re *regexp.Regexp, fn func(groups []string) string) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0

	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = text[loc[2*g]:loc[2*g+1]]
			}
		}

		b.WriteString(text[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}

	b.WriteString(text[last:])
	return b.String()
}
