// Package schedule decides whether a run falls inside its scheduled window.
//
// The pipeline is triggered by an external scheduler (cron, launchd, a
// systemd timer). The gate guards against a trigger firing outside the
// intended window, e.g. a catch-up run on the wrong day.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Gate allows runs during [activation, activation+window) for every
// activation of a standard five-field cron expression.
type Gate struct {
	expr     string
	window   time.Duration
	schedule cron.Schedule
}

// NewGate parses expr (which may carry a CRON_TZ= prefix) and returns a gate
// with the given window.
func NewGate(expr string, window time.Duration) (*Gate, error) {
	if window <= 0 {
		return nil, fmt.Errorf("schedule: window must be positive, got %s", window)
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	return &Gate{expr: expr, window: window, schedule: sched}, nil
}

// Allowed reports whether now lies within the window of some activation.
func (g *Gate) Allowed(now time.Time) bool {
	next := g.schedule.Next(now.Add(-g.window))
	return !next.After(now)
}

// NextOpening returns the first activation after now.
func (g *Gate) NextOpening(now time.Time) time.Time {
	return g.schedule.Next(now)
}

func (g *Gate) String() string {
	return fmt.Sprintf("%s (+%s)", g.expr, g.window)
}
