package outline

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the keys of a leading YAML block that mex reads.
// Other keys are ignored.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Draft       bool     `yaml:"draft"`
}

// IsBinary checks the first 512 bytes for a null byte.
func IsBinary(content []byte) bool {
	const maxCheckSize = 512
	size := min(len(content), maxCheckSize)
	return bytes.IndexByte(content[:size], 0) != -1
}

// StripBOM removes a UTF-8 byte order mark.
func StripBOM(content []byte) []byte {
	return bytes.TrimPrefix(content, []byte("\xEF\xBB\xBF"))
}

// StripFrontmatter removes a leading "---" delimited block and returns the
// remaining body with the metadata found in it. A document without a
// closing delimiter is returned unchanged.
func StripFrontmatter(content []byte) ([]byte, Frontmatter) {
	raw, body, ok := splitFrontmatter(content)
	if !ok {
		return content, Frontmatter{}
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(raw, &fm); err != nil {
		// Hand-written blocks are often not valid YAML ("title: a: b").
		return body, scanFrontmatter(raw)
	}

	return body, fm
}

func splitFrontmatter(content []byte) ([]byte, []byte, bool) {
	newline := "\n"
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		newline = "\r\n"
	} else if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, false
	}

	start := len("---") + len(newline)
	if bytes.HasPrefix(content[start:], []byte("---"+newline)) {
		return nil, content[start+len("---")+len(newline):], true
	}

	closing := []byte(newline + "---" + newline)
	end := bytes.Index(content[start:], closing)
	if end == -1 {
		return nil, content, false
	}

	return content[start : start+end], content[start+end+len(closing):], true
}

func scanFrontmatter(raw []byte) Frontmatter {
	var fm Frontmatter
	for line := range bytes.SplitSeq(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if after, found := bytes.CutPrefix(line, []byte("title:")); found {
			fm.Title = strings.Trim(strings.TrimSpace(string(after)), `"'`)
		} else if after, found := bytes.CutPrefix(line, []byte("description:")); found {
			fm.Description = strings.Trim(strings.TrimSpace(string(after)), `"'`)
		}
	}

	return fm
}
