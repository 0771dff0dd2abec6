// Package outline extracts the heading outline, title and description of
// a markdown document without rendering it.
package outline

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

const (
	setextH1Level = 1
	setextH2Level = 2
)

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
	Line  int    `json:"line"`
}

type Result struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Draft       bool      `json:"draft,omitempty"`
	Headings    []Heading `json:"headings,omitempty"`
	Lines       int       `json:"lines"`
}

// Parse reads the front matter and headings of content. Heading IDs
// given with the {#id} syntax are kept.
func Parse(content []byte) *Result {
	content = StripBOM(content)
	body, fm := StripFrontmatter(content)

	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.Footnotes)
	doc := mdParser.Parse(body)

	headings, firstH1, firstPara, paraAfterH1 := extractContent(doc, content, body)

	title := fm.Title
	if title == "" {
		title = firstH1
	}

	return &Result{
		Title:       title,
		Description: buildDescription(fm.Title, fm.Description, firstH1, paraAfterH1, firstPara),
		Tags:        fm.Tags,
		Draft:       fm.Draft,
		Headings:    headings,
		Lines:       bytes.Count(content, []byte("\n")) + 1,
	}
}

func extractContent(doc ast.Node, original, body []byte) ([]Heading, string, string, string) {
	var headings []Heading
	var firstH1Text string
	var firstParagraph string
	var paragraphAfterH1 string
	foundH1 := false

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Heading:
			if n.IsTitleblock {
				return ast.SkipChildren
			}

			text := extractText(n)
			if text == "" {
				return ast.SkipChildren
			}

			headings = append(headings, Heading{
				Level: n.Level,
				Text:  text,
				ID:    n.HeadingID,
			})
			if n.Level == 1 && firstH1Text == "" {
				firstH1Text = text
				foundH1 = true
			}

			return ast.SkipChildren

		case *ast.Paragraph:
			if firstParagraph == "" {
				if text := extractText(n); text != "" {
					firstParagraph = text
					if foundH1 {
						paragraphAfterH1 = text
					}
				}
			}

			return ast.SkipChildren
		}

		return ast.GoToNext
	})

	// Front matter lines count towards heading line numbers.
	fmLineOffset := bytes.Count(original[:len(original)-len(body)], []byte("\n"))
	assignHeadingLineNumbers(headings, body, fmLineOffset)

	return headings, firstH1Text, firstParagraph, paragraphAfterH1
}

func extractText(node ast.Node) string {
	var buf strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch leaf := n.(type) {
		case *ast.Text:
			buf.Write(leaf.Literal)
		case *ast.Code:
			buf.Write(leaf.Literal)
		}

		return ast.GoToNext
	})

	return strings.Join(strings.Fields(buf.String()), " ")
}

// assignHeadingLineNumbers finds the source line of each heading by
// scanning for ATX and setext markers in document order, skipping fenced
// code. The gomarkdown AST does not keep source positions.
func assignHeadingLineNumbers(headings []Heading, content []byte, lineOffset int) {
	lines := bytes.Split(content, []byte("\n"))
	next := 0
	fence := ""

	for i := 0; i < len(lines) && next < len(headings); i++ {
		trimmed := string(bytes.TrimSpace(lines[i]))

		if marker := fenceMarker(trimmed); marker != "" && (fence == "" || marker == fence) {
			if fence == "" {
				fence = marker
			} else {
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}

		level := atxLevel(lines[i])
		if level == 0 && trimmed != "" && i+1 < len(lines) {
			level = setextLevel(string(bytes.TrimSpace(lines[i+1])))
		}

		if level != 0 && level == headings[next].Level {
			headings[next].Line = lineOffset + i + 1
			next++
		}
	}
}

func fenceMarker(trimmed string) string {
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, marker) {
			return marker
		}
	}

	return ""
}

// atxLevel returns the level of a "# Heading" line indented by at most
// three spaces, or 0.
func atxLevel(line []byte) int {
	rest := bytes.TrimLeft(line, " ")
	if len(line)-len(rest) > 3 {
		return 0
	}

	hashes := len(rest) - len(bytes.TrimLeft(rest, "#"))
	if hashes < 1 || hashes > 6 || len(rest) == hashes || rest[hashes] != ' ' {
		return 0
	}

	return hashes
}

// setextLevel returns the heading level a line of = or - underlines with.
func setextLevel(underline string) int {
	switch {
	case underline == "":
		return 0
	case strings.Trim(underline, "=") == "":
		return setextH1Level
	case strings.Trim(underline, "-") == "":
		return setextH2Level
	}

	return 0
}

// buildDescription prefers front matter, then the first H1 with the
// paragraph that follows it, then the first paragraph.
func buildDescription(fmTitle, fmDesc, firstH1, paragraphAfterH1, firstParagraph string) string {
	join := func(head, tail string) string {
		if head != "" && tail != "" {
			return head + " - " + tail
		}
		return head + tail
	}

	switch {
	case fmTitle != "" || fmDesc != "":
		return join(fmTitle, fmDesc)
	case firstH1 != "":
		return join(firstH1, paragraphAfterH1)
	default:
		return firstParagraph
	}
}
