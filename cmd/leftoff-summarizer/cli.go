package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/auth"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/extractor"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/fetcher"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/logging"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/publisher"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/runner"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/schedule"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// Exit codes.
const (
	exitFailure = 1
	exitBlocked = 2
)

// newCLIApp creates the CLI application. Without a subcommand it runs the
// full pipeline once.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "leftoff-summarizer",
		Usage:   "Summarize the last week of a LEFT-OFF activity log",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"LEFTOFF_CONFIG"}, Usage: "YAML config file (optional; the environment alone is enough)"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file to load before reading the environment"},
			&cli.BoolFlag{Name: "force", Usage: "run even outside the scheduled window"},
			&cli.StringFlag{Name: "now", Usage: "reference time, RFC 3339 or YYYY-MM-DD (default: current time)"},
		},
		Action: runPipeline,
		Commands: []*cli.Command{
			extractCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func runPipeline(c *cli.Context) error {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	loc, err := cfg.Location()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	now, err := parseNow(c.String("now"), loc)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	runID := logging.NewRunID(time.Now())
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	slog.SetDefault(logger.With("run_id", runID))

	gate, err := schedule.NewGate(cfg.Schedule.Cron, cfg.Schedule.Window)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	if !gate.Allowed(now) {
		if !c.Bool("force") {
			next := gate.NextOpening(now)
			slog.Info("outside schedule window, not running", "schedule", gate.String(), "now", now.Format(time.RFC3339), "next", next.Format(time.RFC3339))
			return cli.Exit(fmt.Sprintf("outside schedule window %s; next opening %s (use --force to run anyway)", gate, next.Format(time.RFC3339)), exitBlocked)
		}
		slog.Warn("outside schedule window, running anyway (--force)", "schedule", gate.String())
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Run)
	defer cancel()

	r, err := buildRunner(cfg, loc)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	report, err := r.Run(ctx, runID, now)
	report.Log()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	return nil
}

func buildRunner(cfg *config.Config, loc *time.Location) (*runner.Runner, error) {
	store := auth.NewFileStore(cfg.Identity.RefreshTokenFile, cfg.Identity.RefreshTokenSeed)
	creds := auth.NewManager(auth.Options{
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		RefreshToken: cfg.Identity.RefreshToken,
		TokenURL:     cfg.Identity.TokenURL(),
		Scopes:       cfg.Identity.Scopes,
		Timeout:      cfg.Timeouts.HTTP,
		OnRotate:     store.Save,
	})

	gen, err := summarizer.New(cfg)
	if err != nil {
		return nil, err
	}
	pubs, err := publisher.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return runner.New(
		cfg.Document.FileID,
		cfg.Paths(),
		creds,
		fetcher.NewGraphFetcher(cfg.Storage.BaseURL, cfg.Timeouts.HTTP),
		extractor.New(cfg.Extractor.WindowDays, loc),
		gen,
		pubs,
	), nil
}

// extractCmd runs the window extractor against a local document.
func extractCmd() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract the activity window from a local .docx or .md file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Required: true, Usage: "document to read"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: " + config.ActivitiesFile + " next to the document)"},
			&cli.StringFlag{Name: "now", Usage: "reference time, RFC 3339 or YYYY-MM-DD (default: current time)"},
			&cli.IntFlag{Name: "days", Value: extractor.DefaultWindowDays, Usage: "window size in days"},
			&cli.StringFlag{Name: "timezone", Usage: "IANA time zone for dates (default: local)"},
		},
		Action: func(c *cli.Context) error {
			loc := time.Local
			if tz := c.String("timezone"); tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return cli.Exit(fmt.Sprintf("unknown timezone %q", tz), exitFailure)
				}
				loc = l
			}
			now, err := parseNow(c.String("now"), loc)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}

			doc := c.String("document")
			out := c.String("output")
			if out == "" {
				out = filepath.Join(filepath.Dir(doc), config.ActivitiesFile)
			}

			res, err := extractor.New(c.Int("days"), loc).Extract(doc, out, now)
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}

			fmt.Fprintf(c.App.Writer, "%d of %d sections from %s to %s written to %s\n",
				len(res.Sections), res.Total,
				res.Window.Start.Format(time.DateOnly), res.Window.End.Format(time.DateOnly), out)
			for _, m := range res.Malformed {
				fmt.Fprintf(c.App.Writer, "unparseable date heading: %q\n", m.Heading)
			}
			return nil
		},
	}
}

// parseNow returns the current time in loc, or the parsed reference time.
// A bare date means midnight of that day in loc.
func parseNow(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --now %q: want RFC 3339 or YYYY-MM-DD", s)
}
