// Package eventstore persists build history.
package eventstore

import (
	"context"
	"time"
)

// Build is one recorded build.
type Build struct {
	ID         string        `json:"build_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Commit     string        `json:"commit,omitempty"`
	PageCount  int           `json:"pages"`
	PlainFiles int           `json:"plain_files"`
	Warnings   int           `json:"warnings"`
	Duration   time.Duration `json:"duration"`
	Pages      []Page        `json:"-"`
}

// Page is one page written by a build.
type Page struct {
	Source      string `json:"source"`
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint"`
}

// Store defines the interface for persisting and retrieving builds.
type Store interface {
	// RecordBuild stores b and its pages atomically.
	RecordBuild(ctx context.Context, b Build) error

	// Recent returns up to n builds, newest first, without their pages.
	Recent(ctx context.Context, n int) ([]Build, error)

	// Pages returns the pages written by a build ordered by output path.
	Pages(ctx context.Context, buildID string) ([]Page, error)

	// Changed lists outputs of buildID that are new or whose fingerprint
	// differs from the build before it.
	Changed(ctx context.Context, buildID string) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
