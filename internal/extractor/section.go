package extractor

import (
	"log/slog"
	"strings"
	"time"
)

// Section is the dated heading and the body lines that follow it up to the
// next dated heading.
type Section struct {
	Date    time.Time
	Heading string
	Body    []string
}

// Malformed records a heading that looks like a date but does not parse.
type Malformed struct {
	Heading string
	// AttachedTo is the heading of the section that absorbed it, or "" when
	// it came before any dated section and was dropped.
	AttachedTo string
}

// GroupSections splits paragraphs into dated sections in document order.
//
// Paragraphs before the first dated heading are dropped. Headings that are
// not dates stay in the open section as body text. A heading that looks like
// a date but does not parse is kept as body text of the open section as well
// and reported as malformed. Each paragraph contributes one body line per
// line break, with trailing blanks removed.
func GroupSections(paras []Paragraph, loc *time.Location) ([]Section, []Malformed) {
	var (
		sections  []Section
		malformed []Malformed
		open      = -1
	)

	for _, p := range paras {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}

		if p.IsHeading() {
			if date, ok := ParseDate(text, loc); ok {
				sections = append(sections, Section{Date: date, Heading: text})
				open = len(sections) - 1
				continue
			}
			if LooksLikeDate(text) {
				m := Malformed{Heading: text}
				if open >= 0 {
					m.AttachedTo = sections[open].Heading
				}
				malformed = append(malformed, m)
				slog.Warn("unparseable date heading", "heading", text, "attached_to", m.AttachedTo)
			}
		}

		if open < 0 {
			continue
		}
		for _, line := range strings.Split(p.Text, "\n") {
			line = strings.TrimRight(line, " \t\r")
			if strings.TrimSpace(line) != "" {
				sections[open].Body = append(sections[open].Body, line)
			}
		}
	}
	return sections, malformed
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window of the given number of days ending on the
// calendar date of ref, in ref's location.
func NewWindow(ref time.Time, days int) Window {
	end := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains compares calendar dates only.
func (w Window) Contains(d time.Time) bool {
	day := civil(d)
	return day >= civil(w.Start) && day <= civil(w.End)
}

func civil(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Filter keeps the sections inside w without reordering them.
func Filter(sections []Section, w Window) []Section {
	var out []Section
	for _, s := range sections {
		if w.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

// Render writes each section as a level-two heading followed by its body
// lines, with a blank line between sections. Body lines that markdown would
// read as block structure are escaped, so MarkdownParser reads the output
// back line for line.
func Render(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		for _, line := range s.Body {
			b.WriteString(escapeLine(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
