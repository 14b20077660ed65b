package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// StdoutPublisher prints the summary to stdout.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{out: os.Stdout}
}

func (p *StdoutPublisher) Name() string { return "stdout" }

func (p *StdoutPublisher) Publish(_ context.Context, summary *summarizer.Summary) error {
	w := p.out
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "Left-off summary")
	fmt.Fprintf(w, "Generated: %s (%s)\n", summary.GeneratedAt.Format("2006-01-02 15:04"), summary.Model)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprint(w, summary.Text)
	if !strings.HasSuffix(summary.Text, "\n") {
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	return nil
}
