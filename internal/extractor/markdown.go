package extractor

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

// MarkdownParser reads markdown activity logs, including the files this
// package renders. Headings keep their level; every other top-level block
// becomes one body paragraph per non-blank source line, with a leading
// backslash escape removed.
type MarkdownParser struct{}

func (MarkdownParser) Parse(path string) ([]Paragraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParse(path, err)
	}
	return parseMarkdown(src), nil
}

func parseMarkdown(src []byte) []Paragraph {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var paras []Paragraph
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			paras = append(paras, Paragraph{
				Text:  strings.TrimSpace(string(h.Lines().Value(src))),
				Style: fmt.Sprintf("Heading %d", h.Level),
				Level: h.Level,
			})
			continue
		}

		start, stop, ok := blockSpan(n, -1, -1)
		if !ok {
			continue
		}
		// Segments start after indentation and list markers.
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		for _, line := range bytes.Split(src[start:stop], []byte("\n")) {
			s := strings.TrimRight(string(line), "\r")
			if strings.TrimSpace(s) == "" {
				continue
			}
			paras = append(paras, Paragraph{Text: unescapeLine(s)})
		}
	}
	return paras
}

// blockSpan returns the source range covered by the lines of n and its
// block descendants.
func blockSpan(n ast.Node, start, stop int) (int, int, bool) {
	if n.Type() != ast.TypeBlock {
		return start, stop, start >= 0
	}
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if start < 0 || seg.Start < start {
			start = seg.Start
		}
		if seg.Stop > stop {
			stop = seg.Stop
		}
	}
	if h, ok := n.(*ast.HTMLBlock); ok && h.HasClosure() && h.ClosureLine.Stop > stop {
		stop = h.ClosureLine.Stop
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		start, stop, _ = blockSpan(c, start, stop)
	}
	return start, stop, start >= 0
}

var (
	atxHeading      = regexp.MustCompile(`^#{1,6}(?:[ \t]|$)`)
	linkDefinition  = regexp.MustCompile(`^\[[^\]]+\]:`)
	openHTMLBlock   = regexp.MustCompile(`^<(?:[!?]|(?i:script|pre|style|textarea)(?:[ \t>]|$))`)
	bareOrderedItem = regexp.MustCompile(`^[0-9]{1,9}[.)]$`)
)

// escapeLine backslash-escapes a body line that markdown would otherwise
// read as structure: headings, setext underlines, thematic breaks, fences,
// link definitions, unterminated HTML blocks and empty list items. An
// escape already at the start of the line is escaped in turn.
func escapeLine(line string) string {
	if at := escapeAt(line); at >= 0 {
		return line[:at] + `\` + line[at:]
	}
	return line
}

// unescapeLine drops the leading escape added by escapeLine.
func unescapeLine(line string) string {
	rest := strings.TrimLeft(line, " \t")
	if d := leadingEscape(rest); d >= 0 {
		at := len(line) - len(rest) + d
		return line[:at] + line[at+1:]
	}
	return line
}

func escapeAt(line string) int {
	rest := strings.TrimLeft(line, " \t")
	if rest == "" {
		return -1
	}
	at := len(line) - len(rest)
	if d := leadingEscape(rest); d >= 0 {
		return at + d
	}
	trimmed := strings.TrimRight(rest, " \t")
	switch {
	case bareOrderedItem.MatchString(trimmed):
		return at + len(trimmed) - 1
	case atxHeading.MatchString(rest),
		linkDefinition.MatchString(rest),
		openHTMLBlock.MatchString(rest),
		strings.HasPrefix(rest, "```"),
		strings.HasPrefix(rest, "~~~"),
		trimmed == "+",
		repeatsMarker(trimmed):
		return at
	}
	return -1
}

// leadingEscape returns the offset of a backslash escape at the start of s,
// after an optional run of digits, or -1.
func leadingEscape(s string) int {
	d := 0
	for d < len(s) && d < 9 && s[d] >= '0' && s[d] <= '9' {
		d++
	}
	if d+1 < len(s) && s[d] == '\\' && isASCIIPunct(s[d+1]) {
		return d
	}
	return -1
}

// repeatsMarker reports lines made of one marker character and blanks,
// such as "---", "===", "* * *" or ">".
func repeatsMarker(s string) bool {
	if s == "" || !strings.ContainsRune("-*_=>", rune(s[0])) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != s[0] && s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}
	return true
}

func isASCIIPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}
