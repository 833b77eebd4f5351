package syncer

import "time"

// Window is one bounded date range requested from a provider during
// historical backfill. Start is inclusive, End exclusive against the next
// older window's End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the window span in whole days.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Plan produces the sequence of windows for a historical backfill, newest
// first, one at a time, so a long backfill can be interrupted between chunks.
// No window ever spans more than the provider's maximum; the first window
// returned is the discovery fetch whose raw response is snapshotted.
type Plan struct {
	cursor    time.Time
	floor     time.Time
	stepDays  int
	truncated bool
}

// NewPlan walks from now back to lookbackStart, clamped by the absolute cap
// (zero cap means none). If the cap cuts the requested lookback short, the
// truncation is reported through Truncated, never hidden.
func NewPlan(now, lookbackStart time.Time, maxWindowDays int, cap time.Time) *Plan {
	floor := lookbackStart
	truncated := false

	if !cap.IsZero() && cap.After(lookbackStart) {
		floor = cap
		truncated = true
	}

	if maxWindowDays <= 0 {
		maxWindowDays = 1
	}

	return &Plan{
		cursor:    now,
		floor:     floor,
		stepDays:  maxWindowDays,
		truncated: truncated,
	}
}

// Next returns the next window, newest first. The second value is false once
// the plan is exhausted.
func (p *Plan) Next() (Window, bool) {
	if !p.cursor.After(p.floor) {
		return Window{}, false
	}

	start := p.cursor.AddDate(0, 0, -p.stepDays)
	if start.Before(p.floor) {
		start = p.floor
	}

	w := Window{Start: start, End: p.cursor}
	p.cursor = start

	return w, true
}

// Truncated reports whether the absolute cap shortened the requested
// lookback.
func (p *Plan) Truncated() bool {
	return p.truncated
}
