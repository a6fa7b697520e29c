package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/tasks"
)

// SourceSyncer brings the input tree up to date and returns its revision.
type SourceSyncer interface {
	Sync(ctx context.Context) (string, error)
}

// SyncerFactory creates a SourceSyncer for a source checked out into dir.
type SyncerFactory func(cfg config.SourceConfig, dir string) SourceSyncer

// CommandRunner executes runner commands in order.
type CommandRunner interface {
	RunAll(ctx context.Context, runners []config.Runner) error
}

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	syncerFactory SyncerFactory
	runner        CommandRunner
	store         eventstore.Store
	publisher     notify.Publisher
	deps          pipeline.Deps
	recorder      metrics.Recorder
}

// NewBuildService creates a DefaultBuildService with git sync, runners in
// the working directory, no history and no events.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		syncerFactory: func(cfg config.SourceConfig, dir string) SourceSyncer {
			return source.NewSyncer(cfg, dir)
		},
		runner:    tasks.NewExecutor(""),
		publisher: notify.Noop{},
		recorder:  metrics.NoopRecorder{},
	}
}

// WithSyncerFactory allows injecting a custom source syncer (for testing).
func (s *DefaultBuildService) WithSyncerFactory(f SyncerFactory) *DefaultBuildService {
	s.syncerFactory = f
	return s
}

// WithCommandRunner replaces the runner executor.
func (s *DefaultBuildService) WithCommandRunner(r CommandRunner) *DefaultBuildService {
	s.runner = r
	return s
}

// WithStore records every build into st.
func (s *DefaultBuildService) WithStore(st eventstore.Store) *DefaultBuildService {
	s.store = st
	return s
}

// WithPublisher publishes a BuildEvent after every build.
func (s *DefaultBuildService) WithPublisher(p notify.Publisher) *DefaultBuildService {
	if p == nil {
		p = notify.Noop{}
	}
	s.publisher = p
	return s
}

// WithPipelineDeps sets the collaborators handed to every pipeline run.
func (s *DefaultBuildService) WithPipelineDeps(d pipeline.Deps) *DefaultBuildService {
	s.deps = d
	if d.Recorder != nil {
		s.recorder = d.Recorder
	}
	return s
}

// Run executes the complete build.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	result := &BuildResult{BuildID: uuid.NewString(), StartTime: time.Now()}
	ctx = observability.WithBuildID(ctx, result.BuildID)

	if req.Config == nil {
		err := errors.ConfigError("config required").Build()
		s.finish(ctx, result, err)
		return result, err
	}
	cfg := *req.Config
	if req.OutputDir != "" {
		cfg.Site.OutputDir = req.OutputDir
	}
	result.OutputPath = cfg.Site.OutputDir
	if req.Reason != "" {
		observability.InfoContext(ctx, "Build requested", slog.String("reason", req.Reason))
	}

	err := s.execute(ctx, &cfg, req, result)
	s.finish(ctx, result, err)
	s.record(ctx, result, err)
	s.publish(ctx, result, err)
	return result, err
}

func (s *DefaultBuildService) execute(ctx context.Context, cfg *config.Config, req BuildRequest, result *BuildResult) error {
	if cfg.Source != nil && !req.Options.SkipSource {
		sctx := observability.WithStage(ctx, "source")
		commit, err := s.syncerFactory(*cfg.Source, cfg.Site.InputDir).Sync(sctx)
		if err != nil {
			return err
		}
		result.Commit = commit
	}

	if !req.Options.SkipRunners {
		if err := s.runner.RunAll(observability.WithStage(ctx, "pre_build"), cfg.Runners.PreBuild); err != nil {
			return err
		}
	}

	deps := s.deps
	deps.BuildID = result.BuildID
	report, err := pipeline.NewBuilder(cfg.Site, deps).Run(ctx)
	result.Report = report
	if err != nil {
		return err
	}

	if err := tasks.CopyAll(cfg.Copiers); err != nil {
		return err
	}

	if !req.Options.SkipRunners {
		if err := s.runner.RunAll(observability.WithStage(ctx, "post_build"), cfg.Runners.PostBuild); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefaultBuildService) finish(ctx context.Context, result *BuildResult, err error) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	switch {
	case err != nil && (ctx.Err() != nil || result.Report != nil && result.Report.Outcome == metrics.BuildCanceled):
		result.Status = BuildStatusCancelled
	case err != nil:
		result.Status = BuildStatusFailed
	case result.Report != nil:
		result.Status = statusFromOutcome(result.Report.Outcome)
	default:
		result.Status = BuildStatusSuccess
	}

	// The pipeline records its own outcome; only count builds it never finished.
	if result.Report == nil {
		s.recorder.IncBuildOutcome(outcomeLabel(result.Status))
	}
}

func outcomeLabel(s BuildStatus) metrics.BuildOutcomeLabel {
	switch s {
	case BuildStatusSuccess:
		return metrics.BuildSuccess
	case BuildStatusWarning:
		return metrics.BuildWarning
	case BuildStatusCancelled:
		return metrics.BuildCanceled
	default:
		return metrics.BuildFailed
	}
}

// record stores the build. History failures never fail the build itself.
func (s *DefaultBuildService) record(ctx context.Context, result *BuildResult, err error) {
	if s.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if rerr := s.store.RecordBuild(ctx, toStoredBuild(result, err)); rerr != nil {
		observability.WarnContext(ctx, "Failed to record build", logfields.Error(rerr))
		return
	}
	if result.Report == nil || !result.Status.IsSuccess() {
		return
	}
	changed, cerr := s.store.Changed(ctx, result.BuildID)
	if cerr != nil {
		observability.WarnContext(ctx, "Failed to compute changed pages", logfields.Error(cerr))
		return
	}
	result.Changed = changed
}

func (s *DefaultBuildService) publish(ctx context.Context, result *BuildResult, err error) {
	ctx = context.WithoutCancel(ctx)
	if perr := s.publisher.Publish(ctx, toEvent(result, err)); perr != nil {
		observability.WarnContext(ctx, "Failed to publish build event", logfields.Error(perr))
	}
}

func toStoredBuild(result *BuildResult, err error) eventstore.Build {
	b := eventstore.Build{
		ID:         result.BuildID,
		StartedAt:  result.StartTime,
		FinishedAt: result.EndTime,
		Outcome:    string(outcomeLabel(result.Status)),
		Commit:     result.Commit,
		Duration:   result.Duration,
	}
	if err != nil {
		b.Error = err.Error()
	}
	if r := result.Report; r != nil {
		b.PageCount = len(r.Pages)
		b.PlainFiles = r.PlainFiles
		b.Warnings = len(r.Warnings)
		b.Pages = make([]eventstore.Page, 0, len(r.Pages))
		for _, p := range r.Pages {
			b.Pages = append(b.Pages, eventstore.Page{Source: p.Source, Output: p.Output, Fingerprint: p.Fingerprint})
		}
	}
	return b
}

func toEvent(result *BuildResult, err error) notify.BuildEvent {
	ev := notify.BuildEvent{
		BuildID:    result.BuildID,
		Outcome:    string(outcomeLabel(result.Status)),
		Commit:     result.Commit,
		StartedAt:  result.StartTime,
		FinishedAt: result.EndTime,
		DurationMS: result.Duration.Milliseconds(),
		Changed:    result.Changed,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if r := result.Report; r != nil {
		ev.Pages = len(r.Pages)
		ev.PlainFiles = r.PlainFiles
		for _, w := range r.Warnings {
			ev.Warnings = append(ev.Warnings, w.File+": "+w.Message)
		}
	}
	return ev
}
