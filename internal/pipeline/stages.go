package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/sanitize"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
	"git.home.luguber.info/inful/sitebuilder/internal/templating"
)

// Collaborators are the rendering engines the stages call into.
type Collaborators struct {
	Templates  *templating.Engine
	Markdown   *markdown.Renderer
	Stylesheet stylesheet.Compiler
	Sanitizer  sanitize.Sanitizer
	// Warn receives recoverable per-page problems; may be nil.
	Warn func(file, msg string, err error)
}

// NewStages builds the ordered stage list. Disabled stages become Identity
// here, once, rather than being re-checked per page.
func NewStages(cfg config.SiteConfig, c Collaborators) []Stage {
	r := cfg.Renderers
	stages := make([]Stage, 0, 4)

	if r.Template && c.Templates != nil {
		stages = append(stages, &templateStage{engine: c.Templates, cfg: cfg})
	} else {
		stages = append(stages, Identity{StageName: StageTemplate})
	}

	ms := &markupStage{includeDirs: []string{cfg.IncludeDir()}, inputDir: cfg.InputDir}
	if r.Markdown && c.Markdown != nil {
		ms.md = c.Markdown
	}
	if r.Stylesheet && c.Stylesheet != nil {
		ms.css = c.Stylesheet
	}
	if ms.md != nil || ms.css != nil {
		stages = append(stages, ms)
	} else {
		stages = append(stages, Identity{StageName: StageMarkup})
	}

	if r.Layout && c.Templates != nil {
		stages = append(stages, newLayoutStage(cfg.LayoutDir(), c.Templates, c.Warn))
	} else {
		stages = append(stages, Identity{StageName: StageLayout})
	}

	if r.Sanitizer && c.Sanitizer != nil {
		stages = append(stages, &sanitizeStage{s: c.Sanitizer})
	} else {
		stages = append(stages, Identity{StageName: StageSanitize})
	}
	return stages
}

// templateStage renders page content as a Liquid template with {site, page}.
type templateStage struct {
	engine *templating.Engine
	cfg    config.SiteConfig
}

func (s *templateStage) Name() string { return StageTemplate }

func (s *templateStage) Apply(_ context.Context, p site.Page, snap *site.Snapshot) (site.Page, error) {
	if s.cfg.IsFragment(p.Ext) {
		return p, ErrSkipPage
	}
	out, err := s.engine.Render(p.Source, p.Content, snap.Context(p))
	if err != nil {
		return p, templateError(p.Source, err)
	}
	return p.WithContent(out, p.Ext, site.Templated), nil
}

func templateError(file string, err error) error {
	msg := "template render error"
	var pe *templating.ParseError
	if stderrors.As(err, &pe) {
		msg = "template syntax error"
	}
	return errors.DataError(msg).WithFile(file).WithCause(err).Build()
}

// markupStage converts markdown to HTML and stylesheets to CSS, chosen solely
// by the page's current extension. Content and extension change together.
type markupStage struct {
	md          *markdown.Renderer
	css         stylesheet.Compiler
	includeDirs []string
	inputDir    string
}

func (s *markupStage) Name() string { return StageMarkup }

func (s *markupStage) Apply(_ context.Context, p site.Page, _ *site.Snapshot) (site.Page, error) {
	switch {
	case s.md != nil && isMarkdown(p.Ext):
		html, err := s.md.Render(p.Content)
		if err != nil {
			return p, errors.InternalError("markdown render failed").WithFile(p.Source).WithCause(err).Build()
		}
		return p.WithContent(html, ".html", site.HTML), nil
	case s.css != nil:
		syntax, ok := stylesheet.SyntaxForExt(p.Ext)
		if !ok {
			return p, nil
		}
		includes := append([]string{filepath.Join(s.inputDir, filepath.FromSlash(path.Dir(p.Source)))}, s.includeDirs...)
		css, err := s.css.Compile(p.Content, syntax, includes)
		if err != nil {
			return p, errors.DataError("stylesheet compile error").WithFile(p.Source).WithCause(err).Build()
		}
		return p.WithContent(css, ".css", site.CSS), nil
	default:
		return p, nil
	}
}

func isMarkdown(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// layoutStage wraps a page in the layout named by its "layout" key. Each
// layout file is read and parsed once per build.
type layoutStage struct {
	dir    string
	engine *templating.Engine
	warn   func(file, msg string, err error)

	mu    sync.Mutex
	cache map[string]*layoutEntry
}

type layoutEntry struct {
	once    sync.Once
	tpl     *templating.Template
	ext     string
	readErr error
	tplErr  error
}

func newLayoutStage(dir string, engine *templating.Engine, warn func(string, string, error)) *layoutStage {
	return &layoutStage{dir: dir, engine: engine, warn: warn, cache: make(map[string]*layoutEntry)}
}

func (s *layoutStage) Name() string { return StageLayout }

func (s *layoutStage) entry(name string) *layoutEntry {
	s.mu.Lock()
	e, ok := s.cache[name]
	if !ok {
		e = &layoutEntry{}
		s.cache[name] = e
	}
	s.mu.Unlock()

	e.once.Do(func() {
		full := filepath.Join(s.dir, filepath.FromSlash(name))
		if rel, err := filepath.Rel(s.dir, full); err != nil || strings.HasPrefix(rel, "..") {
			e.readErr = os.ErrNotExist
			return
		}
		raw, err := os.ReadFile(full)
		if err != nil {
			e.readErr = err
			return
		}
		// A layout's own frontmatter is discarded; layouts never chain.
		if _, body, had, _ := frontmatter.Split(raw); had {
			raw = body
		}
		e.ext = path.Ext(name)
		e.tpl, e.tplErr = s.engine.Parse(path.Join(filepath.ToSlash(filepath.Base(s.dir)), name), string(raw))
	})
	return e
}

func (s *layoutStage) Apply(ctx context.Context, p site.Page, snap *site.Snapshot) (site.Page, error) {
	name := p.Layout()
	if name == "" {
		return p, nil
	}
	e := s.entry(name)
	if e.readErr != nil {
		observability.WarnContext(ctx, "Layout unreadable; page left unwrapped",
			logfields.File(p.Source), logfields.Layout(name), logfields.Error(e.readErr))
		if s.warn != nil {
			s.warn(p.Source, "layout "+name+" unreadable", e.readErr)
		}
		return p, nil
	}
	if e.tplErr != nil {
		return p, errors.DataError("layout syntax error").WithFile(name).WithContext("page", p.Source).WithCause(e.tplErr).Build()
	}

	out, err := e.tpl.Render(snap.Context(p))
	if err != nil {
		return p, errors.DataError("layout render error").WithFile(p.Source).WithContext(logfields.KeyLayout, name).WithCause(err).Build()
	}
	ext := p.Ext
	if e.ext != "" {
		ext = e.ext
	}
	return p.WithContent(out, ext, site.LaidOut), nil
}

// sanitizeStage cleans final HTML output; it never fails.
type sanitizeStage struct {
	s sanitize.Sanitizer
}

func (s *sanitizeStage) Name() string { return StageSanitize }

func (s *sanitizeStage) Apply(_ context.Context, p site.Page, _ *site.Snapshot) (site.Page, error) {
	if !strings.EqualFold(p.Ext, ".html") {
		return p, nil
	}
	return p.WithContent(s.s.Sanitize(p.Content), p.Ext, site.Sanitized), nil
}
