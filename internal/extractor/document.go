// Package extractor turns a dated activity log into the trailing window of
// activity sections rendered as markdown.
package extractor

import (
	"path/filepath"
	"strings"
)

// Paragraph is one block of document text in reading order.
type Paragraph struct {
	Text  string
	Style string
	// Level is 0 for body text and 1..9 for headings.
	Level int
}

// IsHeading reports whether the paragraph is a heading of any level.
func (p Paragraph) IsHeading() bool {
	return p.Level > 0
}

// Parser reads a document into paragraphs.
type Parser interface {
	Parse(path string) ([]Paragraph, error)
}

// ParserFor picks a parser by file extension. Anything that is not markdown
// is treated as a Word document.
func ParserFor(path string) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return MarkdownParser{}
	default:
		return DocxParser{}
	}
}
