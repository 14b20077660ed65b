package summarizer

import (
	"fmt"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
)

// New creates a summary generator based on the configuration
func New(cfg *config.Config) (*Generator, error) {
	var client Client
	switch cfg.Summarizer.Type {
	case "openai":
		client = NewOpenAIClient(cfg.Summarizer.APIKey, cfg.Summarizer.BaseURL, cfg.Timeouts.Generation)
	case "anthropic":
		client = NewAnthropicClient(cfg.Summarizer.APIKey, cfg.Summarizer.MaxTokens, cfg.Timeouts.Generation)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSummarizerType, cfg.Summarizer.Type)
	}
	return NewGenerator(client, cfg.Summarizer.Model), nil
}

// ErrUnsupportedSummarizerType is returned when an unsupported summarizer type is specified
var ErrUnsupportedSummarizerType = fmt.Errorf("unsupported summarizer type")
