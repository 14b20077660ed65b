// Package publisher mirrors a generated summary to optional destinations.
// Publishing happens after the summary file is written and never changes
// the outcome of a run.
package publisher

import (
	"context"
	"fmt"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// Publisher publishes a summary to some output destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, summary *summarizer.Summary) error
}

// FromConfig builds the publishers enabled in cfg, in configured order.
func FromConfig(cfg *config.Config) ([]Publisher, error) {
	var pubs []Publisher
	for _, name := range cfg.Publishers {
		switch name {
		case "stdout":
			pubs = append(pubs, NewStdoutPublisher())
		case "html":
			pubs = append(pubs, NewHTMLPublisher(cfg.Paths().SummaryHTML))
		case "discord":
			pubs = append(pubs, NewDiscordPublisher(cfg.Discord.WebhookURL, cfg.Timeouts.HTTP))
		default:
			return nil, fmt.Errorf("publisher: unknown publisher %q", name)
		}
	}
	return pubs, nil
}
