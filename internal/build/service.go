package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// BuildService is the canonical interface for executing site builds.
type BuildService interface {
	// Run executes source sync → runners → pipeline → copiers → runners.
	// The result is non-nil even when an error is returned.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// OutputDir overrides Config.Site.OutputDir when set.
	OutputDir string

	// Reason is logged and published with the build (e.g. "cli", "watch").
	Reason string

	Options BuildOptions
}

// BuildOptions provides optional build behavior modifiers.
type BuildOptions struct {
	// SkipSource leaves the input tree as is even when a git source is configured.
	SkipSource bool

	// SkipRunners disables pre- and post-build commands.
	SkipRunners bool
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	BuildID string
	Status  BuildStatus

	// Report is nil when the build failed before the pipeline ran.
	Report *pipeline.Report

	// Commit is the checked out source revision, if a source is configured.
	Commit string

	// Changed lists outputs that differ from the previous recorded build.
	Changed []string

	OutputPath string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusWarning   BuildStatus = "warning"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning ||
		s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess reports whether the output tree is complete. Warnings do not
// fail a build.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning
}

func statusFromOutcome(o metrics.BuildOutcomeLabel) BuildStatus {
	switch o {
	case metrics.BuildSuccess:
		return BuildStatusSuccess
	case metrics.BuildWarning:
		return BuildStatusWarning
	case metrics.BuildCanceled:
		return BuildStatusCancelled
	default:
		return BuildStatusFailed
	}
}
