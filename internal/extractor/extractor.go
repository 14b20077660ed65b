package extractor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

const DefaultWindowDays = 7

// Result describes one extraction.
type Result struct {
	Window    Window
	Total     int
	Sections  []Section
	Malformed []Malformed
	Output    string
	Bytes     int
}

// Extractor selects the trailing window of dated sections from a document.
type Extractor struct {
	days int
	loc  *time.Location
}

// New returns an extractor for a window of the given number of days ending
// on the reference date, with dates interpreted in loc.
func New(days int, loc *time.Location) *Extractor {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{days: days, loc: loc}
}

// Extract parses documentPath, keeps the sections dated inside the window
// ending at reference, and writes them as markdown to outputPath. Running it
// twice with the same inputs produces the same bytes.
func (e *Extractor) Extract(documentPath, outputPath string, reference time.Time) (*Result, error) {
	paras, err := ParserFor(documentPath).Parse(documentPath)
	if err != nil {
		return nil, err
	}

	sections, malformed := GroupSections(paras, e.loc)
	window := NewWindow(reference.In(e.loc), e.days)
	selected := Filter(sections, window)
	rendered := Render(selected)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("extractor: create output dir: %w", err)
	}
	if err := renameio.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
		return nil, fmt.Errorf("extractor: write %s: %w", outputPath, err)
	}

	res := &Result{
		Window:    window,
		Total:     len(sections),
		Sections:  selected,
		Malformed: malformed,
		Output:    outputPath,
		Bytes:     len(rendered),
	}

	attrs := []any{
		"paragraphs", len(paras),
		"sections", len(sections),
		"selected", len(selected),
		"from", window.Start.Format(time.DateOnly),
		"to", window.End.Format(time.DateOnly),
		"output", outputPath,
	}
	if len(selected) == 0 {
		slog.Warn("no activity sections in window", attrs...)
	} else {
		slog.Info("activities extracted", attrs...)
	}
	return res, nil
}
