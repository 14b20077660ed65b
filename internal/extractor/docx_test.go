package extractor

import (
	"archive/zip"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

const testStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="0"/></w:pPr></w:style>
  <w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="DayHeading"><w:name w:val="Day Heading"/><w:basedOn w:val="Heading2"/></w:style>
  <w:style w:type="character" w:styleId="Heading1Char"><w:name w:val="Heading 1 Char"/></w:style>
</w:styles>`

// docPara is a paragraph fixture; style "" is body text.
type docPara struct {
	style string
	text  string
}

func h1(text string) docPara   { return docPara{style: "Heading1", text: text} }
func body(text string) docPara { return docPara{text: text} }

func paragraphXML(p docPara) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	if p.style != "" {
		fmt.Fprintf(&b, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, p.style)
	}
	b.WriteString(`<w:r><w:t xml:space="preserve">`)
	b.WriteString(html.EscapeString(p.text))
	b.WriteString("</w:t></w:r></w:p>")
	return b.String()
}

// writeDocx builds a minimal .docx containing the given raw body XML.
func writeDocx(t *testing.T, path, bodyXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/styles.xml":     testStyles,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			bodyXML + `<w:sectPr/></w:body></w:document>`,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeDocxParas(t *testing.T, path string, paras ...docPara) {
	t.Helper()
	var b strings.Builder
	for _, p := range paras {
		b.WriteString(paragraphXML(p))
	}
	writeDocx(t, path, b.String())
}

func TestDocxParserLevelsAndText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LEFT-OFF.docx")
	writeDocx(t, path,
		paragraphXML(h1("January 5, 2026"))+
			`<w:p><w:pPr><w:pStyle w:val="DayHeading"/><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Inherited</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:outlineLvl w:val="2"/></w:pPr><w:r><w:t>Direct</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r><w:r><w:delText>gone</w:delText></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`,
	)

	paras, err := DocxParser{}.Parse(path)
	require.NoError(t, err)

	assert.Equal(t, []Paragraph{
		{Text: "January 5, 2026", Style: "Heading1", Level: 1},
		{Text: "Inherited", Style: "DayHeading", Level: 2},
		{Text: "Direct", Level: 3},
		{Text: "a\tb\nc"},
		{Text: "cell"},
	}, paras)
}

func TestDocxParserIgnoresTrackedPropertyChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LEFT-OFF.docx")
	writeDocx(t, path,
		`<w:p><w:pPr><w:pStyle w:val="Normal"/>`+
			`<w:pPrChange w:id="1" w:author="me"><w:pPr><w:pStyle w:val="Heading1"/><w:outlineLvl w:val="0"/></w:pPr></w:pPrChange>`+
			`</w:pPr><w:r><w:t>March 8, 2026</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:pStyle w:val="Heading1"/>`+
			`<w:pPrChange w:id="2" w:author="me"><w:pPr/></w:pPrChange>`+
			`</w:pPr><w:r><w:t>March 9, 2026</w:t></w:r></w:p>`,
	)

	paras, err := DocxParser{}.Parse(path)
	require.NoError(t, err)

	assert.Equal(t, []Paragraph{
		{Text: "March 8, 2026", Style: "Normal"},
		{Text: "March 9, 2026", Style: "Heading1", Level: 1},
	}, paras)
}

func TestDocxParserCorruptFile(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip archive"), 0o644))

	_, err := DocxParser{}.Parse(notZip)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindParse))

	_, err = DocxParser{}.Parse(filepath.Join(dir, "missing.docx"))
	assert.True(t, errors.Is(err, errors.KindParse))

	noDocument := filepath.Join(dir, "empty.docx")
	f, err := os.Create(noDocument)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, err = DocxParser{}.Parse(noDocument)
	assert.True(t, errors.Is(err, errors.KindParse))
}

func TestLevelFromName(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"heading 1", 1},
		{"Heading3", 3},
		{"Title", 1},
		{"heading 10", 0},
		{"Normal", 0},
		{"Headings", 0},
	}
	for _, tt := range tests {
		if got := levelFromName(tt.name); got != tt.want {
			t.Errorf("levelFromName(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
