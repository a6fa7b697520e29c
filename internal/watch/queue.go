// Package watch rebuilds the site when its inputs change or on a schedule.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildFunc performs one build; reason says what triggered it.
type BuildFunc func(ctx context.Context, reason string) error

// Queue serializes builds through a single worker. Requests arriving while a
// build runs collapse into exactly one follow-up build.
type Queue struct {
	build BuildFunc
	slot  chan string
	runs  atomic.Int64
}

// NewQueue returns a queue that calls build for each accepted request.
func NewQueue(build BuildFunc) *Queue {
	return &Queue{build: build, slot: make(chan string, 1)}
}

// Request asks for a build. It reports false when one is already pending.
func (q *Queue) Request(reason string) bool {
	select {
	case q.slot <- reason:
		return true
	default:
		return false
	}
}

// Runs returns how many builds the worker has started.
func (q *Queue) Runs() int64 { return q.runs.Load() }

// Run processes requests until ctx ends. Build failures are logged; the
// next change gets a fresh attempt.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-q.slot:
			q.runs.Add(1)
			slog.Info("Rebuilding", slog.String("reason", reason))
			if err := q.build(ctx, reason); err != nil && ctx.Err() == nil {
				slog.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
			}
		}
	}
}
