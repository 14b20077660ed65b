package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// Discord message limits.
const (
	maxEmbedDescription = 4096
	maxEmbedsPerMessage = 10
	maxMessageChars     = 6000
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordPublisher posts the summary to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL string
	client     *http.Client
	pause      time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string, timeout time.Duration) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		pause:      500 * time.Millisecond,
	}
}

func (d *DiscordPublisher) Name() string { return "discord" }

// Publish sends the summary as one or more embeds. Failed sends are not retried.
func (d *DiscordPublisher) Publish(ctx context.Context, summary *summarizer.Summary) error {
	batches := batchEmbeds(buildEmbeds(summary))

	for i, batch := range batches {
		if err := d.sendWebhook(ctx, batch); err != nil {
			return fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 && d.pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.pause):
			}
		}
	}
	return nil
}

// buildEmbeds splits the summary text over as many embeds as it needs. The
// first carries the title, the last the footer.
func buildEmbeds(summary *summarizer.Summary) []discordEmbed {
	chunks := chunkText(summary.Text, maxEmbedDescription)
	if len(chunks) == 0 {
		chunks = []string{"(empty summary)"}
	}

	embeds := make([]discordEmbed, 0, len(chunks))
	for i, c := range chunks {
		e := discordEmbed{
			Description: c,
			Color:       0x5865F2, // Discord blurple
		}
		if i == 0 {
			e.Title = fmt.Sprintf("Left-off summary: %s", summary.GeneratedAt.Format("2006-01-02"))
		}
		if i == len(chunks)-1 {
			e.Footer = &discordEmbedFooter{Text: summary.Model}
			e.Timestamp = summary.GeneratedAt.Format(time.RFC3339)
		}
		embeds = append(embeds, e)
	}
	return embeds
}

// chunkText splits s into pieces of at most max bytes, breaking between
// paragraphs where possible and never inside a UTF-8 sequence.
func chunkText(s string, max int) []string {
	s = strings.TrimSpace(s)
	var chunks []string
	for len(s) > max {
		cut := strings.LastIndex(s[:max], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(s[:max], "\n")
		}
		if cut <= 0 {
			cut = max
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= maxEmbedsPerMessage || currentChars+ec > maxMessageChars) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// sendWebhook posts a batch of embeds to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	payload := discordWebhookPayload{Embeds: embeds}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	return n
}
