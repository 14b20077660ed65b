package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/auth"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/extractor"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/fetcher"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/publisher"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// Stage names as they appear in logs and reports.
const (
	StageCredentials = "credentials"
	StageDownload    = "download"
	StageExtract     = "extract"
	StageSummarize   = "summarize"
	StagePublish     = "publish"
)

// CredentialSource yields an access token for the storage API.
type CredentialSource interface {
	Refresh(ctx context.Context) (*auth.Credential, error)
}

// Extractor writes the activity window of a document to a file.
type Extractor interface {
	Extract(documentPath, outputPath string, reference time.Time) (*extractor.Result, error)
}

// Generator writes a summary of the activities file.
type Generator interface {
	Generate(ctx context.Context, templatePath, contentPath, outputPath string) (*summarizer.Summary, error)
}

// Runner orchestrates the credentials -> download -> extract -> summarize
// pipeline, then hands the summary to the publishers.
type Runner struct {
	fileID     string
	paths      config.Paths
	creds      CredentialSource
	fetcher    fetcher.Fetcher
	extractor  Extractor
	generator  Generator
	publishers []publisher.Publisher
}

func New(fileID string, paths config.Paths, c CredentialSource, f fetcher.Fetcher, e Extractor, g Generator, pubs []publisher.Publisher) *Runner {
	return &Runner{
		fileID:     fileID,
		paths:      paths,
		creds:      c,
		fetcher:    f,
		extractor:  e,
		generator:  g,
		publishers: pubs,
	}
}

// Run executes the full pipeline once. The report is returned even when a
// stage fails; the first failing stage stops the run.
func (r *Runner) Run(ctx context.Context, runID string, reference time.Time) (*Report, error) {
	report := &Report{RunID: runID, Started: time.Now()}

	slog.Info("starting pipeline", "file_id", r.fileID, "reference", reference.Format(time.RFC3339))

	// Step 1: Credentials
	var cred *auth.Credential
	err := report.track(StageCredentials, func() (string, error) {
		var err error
		cred, err = r.creds.Refresh(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("rotated=%t", cred.Rotated), nil
	})
	if err != nil {
		return report, err
	}

	// Step 2: Download
	err = report.track(StageDownload, func() (string, error) {
		n, err := r.fetcher.Fetch(ctx, cred.AccessToken, r.fileID, r.paths.Document)
		return fmt.Sprintf("%d bytes", n), err
	})
	if err != nil {
		return report, err
	}

	// Step 3: Extract
	err = report.track(StageExtract, func() (string, error) {
		res, err := r.extractor.Extract(r.paths.Document, r.paths.Activities, reference)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d of %d sections", len(res.Sections), res.Total), nil
	})
	if err != nil {
		return report, err
	}

	// Step 4: Summarize
	var summary *summarizer.Summary
	err = report.track(StageSummarize, func() (string, error) {
		var err error
		summary, err = r.generator.Generate(ctx, r.paths.Prompt, r.paths.Activities, r.paths.Summary)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d chars", len(summary.Text)), nil
	})
	if err != nil {
		return report, err
	}

	// Step 5: Publish - failures are recorded but never fail the run
	for _, pub := range r.publishers {
		stage := StagePublish + ":" + pub.Name()
		report.record(stage, true, func() (string, error) {
			return "", pub.Publish(ctx, summary)
		})
	}

	slog.Info("pipeline completed", "summary", r.paths.Summary, "elapsed", time.Since(report.Started).Round(time.Millisecond))
	return report, nil
}
