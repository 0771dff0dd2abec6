package markdown

import (
	"strconv"
	"strings"
)

// boundary is the class character that opens and closes a vault token.
type boundary byte

const (
	classBlock  boundary = 'B'
	classClean  boundary = 'C'
	classInline boundary = 'X'
	classVoid   boundary = ':'
)

// tokenMark never survives input normalization, so no user text can
// contain a token.
const tokenMark = '\x1A'

// vault maps placeholder tokens to the fragments they stand for.
type vault struct {
	seq      int
	payloads map[string]string
}

func newVault() *vault {
	return &vault{payloads: make(map[string]string)}
}

// store restores any tokens inside text, records it and returns a fresh
// token of the given class.
func (v *vault) store(text string, class boundary) string {
	text = v.restore(text)
	v.seq++

	var b strings.Builder
	b.Grow(12)
	b.WriteByte(byte(class))
	b.WriteByte(tokenMark)
	b.WriteString(strconv.Itoa(v.seq))
	b.WriteByte(byte(class))

	key := b.String()
	v.payloads[key] = text
	return key
}

// restore replaces every known token in text with its payload. Payloads
// never contain tokens, so one pass is enough.
func (v *vault) restore(text string) string {
	if strings.IndexByte(text, tokenMark) < 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for i := 0; i < len(text); i++ {
		if text[i] != tokenMark || i == 0 {
			continue
		}

		end, ok := tokenEnd(text, i-1)
		if !ok {
			continue
		}

		payload, known := v.payloads[text[i-1:end]]
		if !known {
			continue
		}

		b.WriteString(text[last : i-1])
		b.WriteString(payload)
		last = end
		i = end - 1
	}

	b.WriteString(text[last:])
	return b.String()
}

// tokenEnd reports whether a token starts at offset i and returns the
// offset just past it.
func tokenEnd(text string, i int) (int, bool) {
	if i < 0 || i+4 > len(text) {
		return 0, false
	}

	class := text[i]
	if text[i+1] != tokenMark {
		return 0, false
	}

	j := i + 2
	for j < len(text) && isDigit(text[j]) {
		j++
	}

	if j == i+2 || j >= len(text) || text[j] != class {
		return 0, false
	}

	return j + 1, true
}

// isToken reports whether text is exactly one token of the given class.
func isToken(text string, class boundary) bool {
	if text == "" || text[0] != byte(class) {
		return false
	}

	end, ok := tokenEnd(text, 0)
	return ok && end == len(text)
}

// hasTokenPrefix reports whether text starts with a token of the given class.
func hasTokenPrefix(text string, class boundary) bool {
	if text == "" || text[0] != byte(class) {
		return false
	}

	_, ok := tokenEnd(text, 0)
	return ok
}
