package summarizer

import (
	"context"
	"time"
)

// Summary is a generated summary as written to disk.
type Summary struct {
	Text        string
	Model       string
	Path        string
	GeneratedAt time.Time
	PromptChars int
}

// Client sends a single user message to a language model and returns the
// text of the first reply.
type Client interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}
