package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/data"
	"git.home.luguber.info/inful/sitebuilder/internal/linkcheck"
	"git.home.luguber.info/inful/sitebuilder/internal/loader"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
	"git.home.luguber.info/inful/sitebuilder/internal/partials"
	"git.home.luguber.info/inful/sitebuilder/internal/sanitize"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
	"git.home.luguber.info/inful/sitebuilder/internal/templating"
)

// Deps are optional collaborators; nil values get defaults.
type Deps struct {
	Stylesheet stylesheet.Compiler
	Sanitizer  sanitize.Sanitizer
	Recorder   metrics.Recorder
	// BuildID names the build; empty generates a fresh UUID.
	BuildID string
}

// Builder runs one site build per call to Run.
type Builder struct {
	cfg      config.SiteConfig
	deps     Deps
	recorder metrics.Recorder
}

// NewBuilder returns a builder for cfg. The configuration must already be
// validated.
func NewBuilder(cfg config.SiteConfig, deps Deps) *Builder {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Builder{cfg: cfg, deps: deps, recorder: metrics.OrNoop(deps.Recorder)}
}

type buildState struct {
	report *Report

	mu sync.Mutex

	records  []site.DataRecord
	registry *partials.Registry
	loaded   loader.Result
	snapshot *site.Snapshot
	rendered []site.Page
}

func (s *buildState) warn(file, msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	s.mu.Lock()
	s.report.Warnings = append(s.report.Warnings, Warning{File: file, Message: msg})
	s.mu.Unlock()
}

// Run performs a complete build. The returned report is non-nil even on
// failure and describes how far the build got.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	id := b.deps.BuildID
	if id == "" {
		id = uuid.NewString()
	}
	st := &buildState{report: newReport(id)}
	ctx = observability.WithBuildID(ctx, st.report.BuildID)
	b.recorder.SetWorkers(b.cfg.Workers)

	observability.InfoContext(ctx, "Build started",
		logfields.Path(b.cfg.InputDir), logfields.Output(b.cfg.OutputDir), logfields.Workers(b.cfg.Workers))

	err := b.run(ctx, st)
	st.report.finish(err)
	b.recorder.ObserveBuildDuration(st.report.Duration())
	b.recorder.IncBuildOutcome(st.report.Outcome)

	if err != nil {
		observability.DebugContext(ctx, "Build failed", logfields.Error(err),
			logfields.DurationMS(float64(st.report.Duration().Milliseconds())))
		return st.report, err
	}
	observability.InfoContext(ctx, "Build finished",
		logfields.Count(len(st.report.Pages)),
		slog.Int("plain_files", st.report.PlainFiles),
		slog.Int("warnings", len(st.report.Warnings)),
		logfields.DurationMS(float64(st.report.Duration().Milliseconds())))
	return st.report, nil
}

func (b *Builder) run(ctx context.Context, st *buildState) error {
	compiler := b.deps.Stylesheet
	if compiler == nil && b.cfg.Renderers.Stylesheet {
		owned := stylesheet.NewDartSass("")
		defer func() { _ = owned.Close() }()
		compiler = owned
	}
	sanitizer := b.deps.Sanitizer
	if sanitizer == nil && b.cfg.Renderers.Sanitizer {
		sanitizer = sanitize.NewUGC()
	}

	if err := b.phase(ctx, st, PhasePrepare, func(context.Context) error {
		return Clean(b.cfg.OutputDir)
	}); err != nil {
		return err
	}

	if err := b.phase(ctx, st, PhaseLoad, func(ctx context.Context) error {
		return b.load(ctx, st)
	}); err != nil {
		return err
	}
	st.snapshot = site.NewSnapshot(st.loaded.Pages, st.loaded.Files, st.records)

	engine := templating.New(st.registry, templating.Options{StrictVariables: b.cfg.StrictVariables})
	chain := NewChain(NewStages(b.cfg, Collaborators{
		Templates:  engine,
		Markdown:   markdown.New(b.cfg.Markdown),
		Stylesheet: compiler,
		Sanitizer:  sanitizer,
		Warn:       st.warn,
	}), b.recorder)
	observability.DebugContext(ctx, "Stage chain assembled", slog.Any("stages", chain.Names()))

	if err := b.phase(ctx, st, PhaseRender, func(ctx context.Context) error {
		return b.render(ctx, st, chain)
	}); err != nil {
		return err
	}
	if err := b.phase(ctx, st, PhaseWrite, func(ctx context.Context) error {
		return b.write(ctx, st)
	}); err != nil {
		return err
	}
	if err := b.phase(ctx, st, PhasePropagate, func(ctx context.Context) error {
		return b.propagate(ctx, st)
	}); err != nil {
		return err
	}
	if b.cfg.CheckLinks {
		if err := b.phase(ctx, st, PhaseLinkCheck, func(ctx context.Context) error {
			return b.checkLinks(ctx, st)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) phase(ctx context.Context, st *buildState, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = observability.WithPhase(ctx, name)
	start := time.Now()
	observability.DebugContext(ctx, "Phase started")
	err := fn(ctx)
	d := time.Since(start)
	st.report.PhaseDurations[name] = d
	b.recorder.ObservePhaseDuration(name, d)
	observability.DebugContext(ctx, "Phase finished", logfields.DurationMS(float64(d.Milliseconds())))
	return err
}

// load reads data files, partials and pages concurrently; all three must
// finish before the snapshot exists.
func (b *Builder) load(ctx context.Context, st *buildState) error {
	tasks := []func(context.Context) error{
		func(ctx context.Context) error {
			if !b.cfg.Renderers.Data {
				return nil
			}
			recs, err := data.Load(ctx, b.cfg.DataDir())
			st.records = recs
			return err
		},
		func(context.Context) error {
			reg, err := partials.Load(b.cfg.IncludeDir())
			st.registry = reg
			return err
		},
		func(ctx context.Context) error {
			inputs, err := loader.Discover(b.cfg)
			if err != nil {
				return err
			}
			res, err := loader.LoadAll(ctx, b.cfg.InputDir, inputs, loader.OptionsFor(b.cfg), b.cfg.Workers)
			st.loaded = res
			return err
		},
	}
	if err := parallel.ForEach(ctx, tasks, len(tasks), func(ctx context.Context, task func(context.Context) error) error {
		return task(ctx)
	}); err != nil {
		return err
	}

	st.report.DataRecords = len(st.records)
	st.report.Partials = st.registry.Len()
	st.report.PlainFiles = len(st.loaded.Files)
	observability.InfoContext(ctx, "Inputs loaded",
		logfields.Count(len(st.loaded.Pages)),
		slog.Int("plain_files", len(st.loaded.Files)),
		slog.Int("data_records", len(st.records)),
		slog.Int("partials", st.registry.Len()))
	observability.DebugContext(ctx, "Partials registered", slog.Any("names", st.registry.Names()))
	return nil
}

type rendered struct {
	page    site.Page
	skipped bool
}

func (b *Builder) render(ctx context.Context, st *buildState, chain *Chain) error {
	out, err := parallel.Map(ctx, st.snapshot.Pages(), b.cfg.Workers, func(ctx context.Context, p site.Page) (rendered, error) {
		page, skipped, err := chain.Apply(ctx, p, st.snapshot)
		return rendered{page: page, skipped: skipped}, err
	})
	if err != nil {
		return err
	}
	for _, r := range out {
		if r.skipped {
			st.report.SkippedPages++
			continue
		}
		st.rendered = append(st.rendered, r.page)
	}
	return nil
}

// write emits each rendered page exactly once. When two pages map to the same
// output path the first in source order wins.
func (b *Builder) write(ctx context.Context, st *buildState) error {
	seen := make(map[string]string, len(st.rendered))
	pages := st.rendered[:0:0]
	for _, p := range st.rendered {
		out := p.OutputPath()
		if prev, dup := seen[out]; dup {
			st.warn(p.Source, "output "+out+" already produced by "+prev, nil)
			observability.WarnContext(ctx, "Duplicate output path", logfields.File(p.Source), logfields.Output(out))
			continue
		}
		seen[out] = p.Source
		pages = append(pages, p)
	}

	records, err := parallel.Map(ctx, pages, b.cfg.Workers, func(_ context.Context, p site.Page) (PageRecord, error) {
		if _, err := WritePage(b.cfg.OutputDir, p); err != nil {
			return PageRecord{}, err
		}
		return PageRecord{Source: p.Source, Output: p.OutputPath(), Fingerprint: p.Fingerprint()}, nil
	})
	if err != nil {
		return err
	}
	st.report.Pages = records
	return nil
}

// propagate places plain files after pages so a page owning an output path
// always shadows a plain file with the same name.
func (b *Builder) propagate(ctx context.Context, st *buildState) error {
	files := st.snapshot.Files()
	results, err := parallel.Map(ctx, files, b.cfg.Workers, func(_ context.Context, rel string) (PropagateResult, error) {
		return Propagate(b.cfg.InputDir, b.cfg.OutputDir, rel)
	})
	if err != nil {
		return err
	}
	for i, r := range results {
		switch r {
		case PropagateLinked:
			st.report.Linked++
		case PropagateCopied:
			st.report.Copied++
		case PropagateSkipped:
			st.report.Shadowed++
			observability.DebugContext(ctx, "Plain file shadowed by page", logfields.File(files[i]))
		}
	}
	return nil
}

func (b *Builder) checkLinks(ctx context.Context, st *buildState) error {
	var html []string
	for _, p := range st.report.Pages {
		if strings.HasSuffix(strings.ToLower(p.Output), ".html") {
			html = append(html, p.Output)
		}
	}
	broken, err := linkcheck.Check(b.cfg.OutputDir, html)
	if err != nil {
		return err
	}
	for _, bl := range broken {
		st.warn(bl.Page, "broken link "+bl.Target, nil)
	}
	if len(broken) > 0 {
		observability.WarnContext(ctx, "Broken internal links", logfields.Count(len(broken)))
	}
	return nil
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
