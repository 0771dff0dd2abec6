package markdown

import "strings"

// emphasisStack tracks open emphasis markers. Frame 0 is the base and
// always has an empty token.
type emphasisStack struct {
	tokens []string
	texts  []string
}

func (s *emphasisStack) top() int {
	return len(s.tokens) - 1
}

func (s *emphasisStack) push(token string) {
	s.tokens = append(s.tokens, token)
	s.texts = append(s.texts, "")
}

// pop removes the top frame and returns its token and text. The base
// frame is never removed.
func (s *emphasisStack) pop() (string, string, bool) {
	t := s.top()
	if t == 0 {
		return "", "", false
	}

	token, text := s.tokens[t], s.texts[t]
	s.tokens = s.tokens[:t]
	s.texts = s.texts[:t]
	return token, text, true
}

func (s *emphasisStack) appendText(text string) {
	s.texts[s.top()] += text
}

// unwind folds the top frame back into its parent as literal text.
func (s *emphasisStack) unwind() {
	if token, text, ok := s.pop(); ok {
		s.appendText(token + text)
	}
}

// doItalicsAndBold pairs * and _ runs into <em> and <strong>. It walks the
// text once, keeping a stack of open markers; only closers matching the
// open markers are looked for, so unmatched openers stay literal.
func (c *conversion) doItalicsAndBold(text string) string {
	stack := &emphasisStack{tokens: []string{""}, texts: []string{""}}
	em, strong := "", ""
	triple := false

	for {
		start, n, found := c.nextEmphasisToken(text, em, strong)
		if !found {
			stack.appendText(text)
			for stack.top() > 0 {
				stack.unwind()
			}
			break
		}

		stack.appendText(text[:start])
		token := text[start : start+n]
		text = text[start+n:]

		switch {
		case triple:
			triple = false
			if n == 3 {
				_, span, _ := stack.pop()
				span = c.runSpanGamut(span)
				stack.appendText(c.hashPart("<strong><em>" + span + "</em></strong>"))
				em, strong = "", ""
				break
			}

			// One of the two markers closes; the other stays open.
			t := stack.top()
			stack.tokens[t] = strings.Repeat(token[:1], 3-n)
			tag := "em"
			if n == 2 {
				tag = "strong"
			}
			span := c.runSpanGamut(stack.texts[t])
			stack.texts[t] = c.hashPart("<" + tag + ">" + span + "</" + tag + ">")
			if n == 2 {
				strong = ""
			} else {
				em = ""
			}

		case n == 3:
			if em != "" {
				for range 2 {
					closed, span, ok := stack.pop()
					if !ok {
						break
					}
					tag := "em"
					if len(closed) == 2 {
						tag = "strong"
					}
					span = c.runSpanGamut(span)
					stack.appendText(c.hashPart("<" + tag + ">" + span + "</" + tag + ">"))
				}
				em, strong = "", ""
				break
			}

			em = token[:1]
			strong = em + em
			stack.push(token)
			triple = true

		case n == 2:
			if strong != "" {
				if len(stack.tokens[stack.top()]) == 1 {
					stack.unwind()
					em = ""
				}
				_, span, _ := stack.pop()
				span = c.runSpanGamut(span)
				stack.appendText(c.hashPart("<strong>" + span + "</strong>"))
				strong = ""
				break
			}

			stack.push(token)
			strong = token

		default:
			if em != "" {
				if len(stack.tokens[stack.top()]) == 1 {
					_, span, _ := stack.pop()
					span = c.runSpanGamut(span)
					stack.appendText(c.hashPart("<em>" + span + "</em>"))
					em = ""
				} else {
					stack.appendText(token)
				}
				break
			}

			stack.push(token)
			em = token
		}
	}

	return stack.texts[0]
}

// nextEmphasisToken finds the next marker run that is meaningful in the
// current state: openers for markers not yet open, closers for those
// that are.
func (c *conversion) nextEmphasisToken(text, em, strong string) (int, int, bool) {
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '*' && ch != '_' {
			continue
		}

		if em == "" && strong == "" && c.emphasisOpener(text, i, 3) {
			return i, 3, true
		}
		if em != "" && strong == em+em && c.emphasisCloser(text, i, 3, em[0]) {
			return i, 3, true
		}

		if em == "" {
			if c.emphasisOpener(text, i, 1) {
				return i, 1, true
			}
		} else if c.emphasisCloser(text, i, 1, em[0]) {
			return i, 1, true
		}

		if strong == "" {
			if c.emphasisOpener(text, i, 2) {
				return i, 2, true
			}
		} else if c.emphasisCloser(text, i, 2, strong[0]) {
			return i, 2, true
		}
	}

	return 0, 0, false
}

func runOf(text string, i, n int, ch byte) bool {
	if i+n > len(text) {
		return false
	}
	for k := i; k < i+n; k++ {
		if text[k] != ch {
			return false
		}
	}
	return true
}

// emphasisOpener reports whether exactly n copies of text[i] open
// emphasis. The run may not touch another copy, and may not be followed
// by whitespace, even after one punctuation mark.
func (c *conversion) emphasisOpener(text string, i, n int) bool {
	ch := text[i]
	if !runOf(text, i, n, ch) {
		return false
	}

	if i > 0 {
		prev := text[i-1]
		if prev == ch {
			return false
		}
		if ch == '_' && c.p.dialect.intraWordUnderscore && isWordByte(prev) {
			return false
		}
	}

	j := i + n
	if j == len(text) {
		return true
	}
	if text[j] == ch || isSpace(text[j]) {
		return false
	}
	if strings.IndexByte(".,:;", text[j]) >= 0 && j+1 < len(text) && isSpace(text[j+1]) {
		return false
	}

	return true
}

// emphasisCloser reports whether exactly n copies of ch at i close
// emphasis: preceded by a non-space and not glued to another copy.
func (c *conversion) emphasisCloser(text string, i, n int, ch byte) bool {
	if !runOf(text, i, n, ch) {
		return false
	}

	if i > 0 && (isSpace(text[i-1]) || text[i-1] == ch) {
		return false
	}

	j := i + n
	if j < len(text) {
		if text[j] == ch {
			return false
		}
		if ch == '_' && c.p.dialect.intraWordUnderscore && isWordByte(text[j]) {
			return false
		}
	}

	return true
}
