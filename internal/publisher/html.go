package publisher

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

const htmlStyle = `<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 20px; }
.summary { background: #f0f0f0; padding: 15px; border-radius: 8px; }
.summary li { margin-bottom: 5px; }
</style>`

// HTMLPublisher renders the markdown summary to a standalone HTML page.
type HTMLPublisher struct {
	path string
	md   goldmark.Markdown
}

func NewHTMLPublisher(path string) *HTMLPublisher {
	return &HTMLPublisher{
		path: path,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (p *HTMLPublisher) Name() string { return "html" }

func (p *HTMLPublisher) Publish(_ context.Context, summary *summarizer.Summary) error {
	page, err := p.buildPage(summary)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("html: create dir: %w", err)
	}
	if err := renameio.WriteFile(p.path, page, 0o644); err != nil {
		return fmt.Errorf("html: write %s: %w", p.path, err)
	}
	return nil
}

func (p *HTMLPublisher) buildPage(summary *summarizer.Summary) ([]byte, error) {
	var body bytes.Buffer
	if err := p.md.Convert([]byte(summary.Text), &body); err != nil {
		return nil, fmt.Errorf("html: render markdown: %w", err)
	}

	var sb bytes.Buffer
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Left-off summary</title>`)
	sb.WriteString(htmlStyle)
	sb.WriteString(`</head><body>`)
	sb.WriteString("<h1>Left-off summary</h1>")
	fmt.Fprintf(&sb, `<div class="meta">%s &middot; %s</div>`,
		summary.GeneratedAt.Format("January 2, 2006 15:04"), html.EscapeString(summary.Model))
	sb.WriteString(`<div class="summary">`)
	sb.Write(body.Bytes())
	sb.WriteString("</div></body></html>\n")
	return sb.Bytes(), nil
}
