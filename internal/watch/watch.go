package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Options configures Run.
type Options struct {
	// Root is watched for changes when Watch is set.
	Root  string
	Skip  []string
	Watch bool
	// Every schedules periodic rebuilds when positive.
	Every    time.Duration
	Quiet    time.Duration
	MaxDelay time.Duration
	// Initial requests a build as soon as the loop starts.
	Initial bool
}

// ReasonChange prefixes the reason of builds triggered by file changes.
const ReasonChange = "change: "

// IsChange reports whether reason came from the file watcher.
func IsChange(reason string) bool { return strings.HasPrefix(reason, ReasonChange) }

// Run drives build from file changes and the schedule until ctx ends.
func Run(ctx context.Context, opts Options, build BuildFunc) error {
	if !opts.Watch && opts.Every <= 0 {
		return errors.ValidationError("nothing to wait for: enable watching or a rebuild interval").Build()
	}

	q := NewQueue(build)
	var wg sync.WaitGroup
	defer wg.Wait()

	if opts.Watch {
		deb := NewDebouncer(opts.Quiet, opts.MaxDelay, func(reason string) { q.Request(ReasonChange + reason) })
		w, err := NewWatcher(opts.Root, opts.Skip, deb.Notify)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		wg.Add(2)
		go func() { defer wg.Done(); deb.Run(ctx) }()
		go func() { defer wg.Done(); w.Run(ctx) }()
	}

	if opts.Every > 0 {
		s, err := NewScheduler()
		if err != nil {
			return errors.InternalError("failed to create scheduler").WithCause(err).Build()
		}
		if _, err := s.Every(opts.Every, q); err != nil {
			return errors.InternalError("failed to schedule rebuilds").WithCause(err).Build()
		}
		s.Start()
		defer func() { _ = s.Stop() }()
	}

	if opts.Initial {
		q.Request("initial")
	}
	q.Run(ctx)
	return nil
}
