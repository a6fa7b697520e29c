package watch

import (
	"context"
	"time"
)

// Debouncer coalesces bursts of change notifications. It fires once the
// input has been quiet for the quiet window, and never later than maxDelay
// after the first notification of a burst.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	in       chan string
	fire     func(reason string)
}

// NewDebouncer returns a debouncer calling fire; zero durations get defaults.
func NewDebouncer(quiet, maxDelay time.Duration, fire func(reason string)) *Debouncer {
	if quiet <= 0 {
		quiet = 300 * time.Millisecond
	}
	if maxDelay < quiet {
		maxDelay = 10 * quiet
	}
	return &Debouncer{quiet: quiet, maxDelay: maxDelay, in: make(chan string, 64), fire: fire}
}

// Notify records a change. It never blocks; a full buffer means a fire is
// already due.
func (d *Debouncer) Notify(reason string) {
	select {
	case d.in <- reason:
	default:
	}
}

// Run drives the timer until ctx ends.
func (d *Debouncer) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var (
		pending bool
		first   time.Time
		last    string
	)
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-d.in:
			now := time.Now()
			if !pending {
				pending = true
				first = now
			}
			last = reason
			wait := d.quiet
			if remaining := d.maxDelay - now.Sub(first); remaining < wait {
				wait = max(remaining, 0)
			}
			timer.Reset(wait)
		case <-timer.C:
			pending = false
			d.fire(last)
		}
	}
}
