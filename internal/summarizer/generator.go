// Package summarizer turns the extracted activities into a summary by
// filling a prompt template and asking a language model.
package summarizer

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

// Generator produces summaries with one fixed model.
type Generator struct {
	client Client
	model  string
	now    func() time.Time
}

func NewGenerator(client Client, model string) *Generator {
	return &Generator{client: client, model: model, now: time.Now}
}

// Model returns the model id used for every request.
func (g *Generator) Model() string {
	return g.model
}

// Generate reads the prompt template and the activities, substitutes the
// activities into the template, and writes the model's reply to outputPath.
// Nothing is sent when either input is unreadable.
func (g *Generator) Generate(ctx context.Context, templatePath, contentPath, outputPath string) (*Summary, error) {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, errors.NewMissingInput(templatePath, err)
	}
	content, err := os.ReadFile(contentPath)
	if err != nil {
		return nil, errors.NewMissingInput(contentPath, err)
	}

	if !strings.Contains(string(template), Placeholder) {
		slog.Warn("prompt template has no placeholder; activities will not be included", "template", templatePath, "placeholder", Placeholder)
	}
	prompt := BuildPrompt(string(template), string(content))

	slog.Info("generating summary", "model", g.model, "prompt_chars", len(prompt), "activities_bytes", len(content))

	text, err := g.client.Complete(ctx, g.model, prompt)
	if err != nil {
		return nil, errors.NewGeneration("completion failed", err)
	}

	if err := renameio.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return nil, errors.NewGeneration("failed to write summary", err)
	}

	slog.Info("summary written", "chars", len(text), "path", outputPath)

	return &Summary{
		Text:        text,
		Model:       g.model,
		Path:        outputPath,
		GeneratedAt: g.now(),
		PromptChars: len(prompt),
	}, nil
}
