package runner

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Stage   string
	Err     error
	Elapsed time.Duration
	Detail  string

	// Optional stages do not abort or fail the run.
	Optional bool
}

// Report collects the stage results of one run.
type Report struct {
	RunID   string
	Started time.Time
	Stages  []StageResult
}

// record runs fn as the named stage and appends its result.
func (r *Report) record(stage string, optional bool, fn func() (string, error)) StageResult {
	start := time.Now()
	detail, err := fn()
	res := StageResult{Stage: stage, Err: err, Elapsed: time.Since(start), Detail: detail, Optional: optional}
	r.Stages = append(r.Stages, res)

	switch {
	case err != nil && optional:
		slog.Warn("optional stage failed", "stage", stage, "err", err, "elapsed", res.Elapsed.Round(time.Millisecond))
	case err != nil:
		slog.Error("stage failed", "stage", stage, "kind", errors.KindOf(err), "err", err, "elapsed", res.Elapsed.Round(time.Millisecond))
	default:
		slog.Info("stage finished", "stage", stage, "detail", detail, "elapsed", res.Elapsed.Round(time.Millisecond))
	}
	return res
}

// track is record for stages that abort the run.
func (r *Report) track(stage string, fn func() (string, error)) error {
	res := r.record(stage, false, fn)
	if res.Err != nil {
		return fmt.Errorf("runner: %s failed: %w", stage, res.Err)
	}
	return nil
}

// Failed returns the first failed required stage, or nil.
func (r *Report) Failed() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Err != nil && !r.Stages[i].Optional {
			return &r.Stages[i]
		}
	}
	return nil
}

// String renders a one-line summary such as
// "credentials=ok(120ms) download=ok(1.2s) extract=FAILED(3ms)".
func (r *Report) String() string {
	parts := make([]string, 0, len(r.Stages))
	for _, s := range r.Stages {
		status := "ok"
		switch {
		case s.Err != nil && s.Optional:
			status = "failed"
		case s.Err != nil:
			status = "FAILED"
		}
		parts = append(parts, fmt.Sprintf("%s=%s(%s)", s.Stage, status, s.Elapsed.Round(time.Millisecond)))
	}
	return strings.Join(parts, " ")
}

// Log writes the report as a single structured line.
func (r *Report) Log() {
	attrs := []any{"run_id", r.RunID, "stages", r.String(), "elapsed", time.Since(r.Started).Round(time.Millisecond)}
	if f := r.Failed(); f != nil {
		slog.Error("run report", append(attrs, "failed_stage", f.Stage)...)
		return
	}
	slog.Info("run report", attrs...)
}
