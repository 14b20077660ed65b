package extractor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"

	// bodyOutlineLevel is the outline level Word uses for plain body text.
	bodyOutlineLevel = 9
)

// DocxParser reads WordprocessingML (.docx) files.
type DocxParser struct{}

func (DocxParser) Parse(path string) ([]Paragraph, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewParse(path, err)
	}
	defer zr.Close()

	var doc, styles *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case documentPart:
			doc = f
		case stylesPart:
			styles = f
		}
	}
	if doc == nil {
		return nil, errors.NewParse(path, fmt.Errorf("%s not found", documentPart))
	}

	levels := map[string]int{}
	if styles != nil {
		levels, err = readStyleLevels(styles)
		if err != nil {
			return nil, errors.NewParse(path, err)
		}
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, errors.NewParse(path, err)
	}
	defer rc.Close()

	paras, err := readParagraphs(rc, levels)
	if err != nil {
		return nil, errors.NewParse(path, err)
	}
	return paras, nil
}

type xmlVal struct {
	Val string `xml:"val,attr"`
}

type xmlStyles struct {
	Styles []struct {
		Type    string  `xml:"type,attr"`
		ID      string  `xml:"styleId,attr"`
		Name    xmlVal  `xml:"name"`
		BasedOn *xmlVal `xml:"basedOn"`
		PPr     struct {
			OutlineLvl *xmlVal `xml:"outlineLvl"`
		} `xml:"pPr"`
	} `xml:"style"`
}

// readStyleLevels maps paragraph style IDs to heading levels. A style is a
// heading when it (or a style it is based on) declares an outline level, or
// when its name is "heading N".
func readStyleLevels(f *zip.File) (map[string]int, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc xmlStyles
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", stylesPart, err)
	}

	own := make(map[string]int)
	parent := make(map[string]string)
	for _, s := range doc.Styles {
		if s.Type != "" && s.Type != "paragraph" {
			continue
		}
		if s.BasedOn != nil {
			parent[s.ID] = s.BasedOn.Val
		}
		if s.PPr.OutlineLvl != nil {
			if n, err := strconv.Atoi(s.PPr.OutlineLvl.Val); err == nil {
				own[s.ID] = outlineToLevel(n)
				continue
			}
		}
		if lvl := levelFromName(s.Name.Val); lvl > 0 {
			own[s.ID] = lvl
		} else if lvl := levelFromName(s.ID); lvl > 0 {
			own[s.ID] = lvl
		}
	}

	levels := make(map[string]int, len(own))
	for _, s := range doc.Styles {
		id := s.ID
		for depth := 0; id != "" && depth < 16; depth++ {
			if lvl, ok := own[id]; ok {
				if lvl > 0 {
					levels[s.ID] = lvl
				}
				break
			}
			id = parent[id]
		}
	}
	return levels, nil
}

func outlineToLevel(n int) int {
	if n < 0 || n >= bodyOutlineLevel {
		return 0
	}
	return n + 1
}

// levelFromName understands the built-in "heading 1".."heading 9" names,
// their "Heading1" style IDs, and "Title".
func levelFromName(name string) int {
	n := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	if n == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(n, "heading")
	if !ok {
		return 0
	}
	lvl, err := strconv.Atoi(rest)
	if err != nil || lvl < 1 || lvl > 9 {
		return 0
	}
	return lvl
}

type paraBuilder struct {
	text    strings.Builder
	style   string
	outline int
	hasLvl  bool
}

// readParagraphs streams document.xml and emits every w:p in document order,
// including paragraphs inside tables. Properties recorded under a tracked
// change (w:pPrChange) are the previous revision and are ignored.
func readParagraphs(r io.Reader, styleLevels map[string]int) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)

	var (
		paras    []Paragraph
		stack    []*paraBuilder
		inRun    int
		inChange int
		inText   bool
	)
	current := func() *paraBuilder {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			cur := current()
			switch t.Name.Local {
			case "p":
				stack = append(stack, &paraBuilder{})
			case "r":
				inRun++
			case "pPrChange":
				inChange++
			case "pStyle":
				if cur != nil && inChange == 0 {
					cur.style = attrVal(t)
				}
			case "outlineLvl":
				if cur != nil && inChange == 0 {
					if n, err := strconv.Atoi(attrVal(t)); err == nil {
						cur.outline, cur.hasLvl = n, true
					}
				}
			case "t":
				inText = inRun > 0
			case "tab":
				if cur != nil && inRun > 0 {
					cur.text.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil && inRun > 0 {
					cur.text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				cur := current()
				if cur == nil {
					continue
				}
				stack = stack[:len(stack)-1]
				level := styleLevels[cur.style]
				if cur.hasLvl {
					level = outlineToLevel(cur.outline)
				}
				paras = append(paras, Paragraph{
					Text:  cur.text.String(),
					Style: cur.style,
					Level: level,
				})
			case "r":
				if inRun > 0 {
					inRun--
				}
			case "pPrChange":
				if inChange > 0 {
					inChange--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if cur := current(); cur != nil && inText {
				cur.text.Write(t)
			}
		}
	}
	return paras, nil
}

func attrVal(e xml.StartElement) string {
	for _, a := range e.Attr {
		if a.Name.Local == "val" {
			return a.Value
		}
	}
	return ""
}
