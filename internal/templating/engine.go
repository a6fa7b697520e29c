// Package templating renders Liquid templates against the site context.
package templating

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
	"github.com/osteele/liquid/render"

	"git.home.luguber.info/inful/sitebuilder/internal/partials"
)

// Options configures an Engine.
type Options struct {
	StrictVariables bool
}

// Engine wraps a configured Liquid engine whose include tag resolves names from
// a partial registry. It is safe for concurrent use.
type Engine struct {
	liquid   *liquid.Engine
	partials *partials.Registry

	mu     sync.RWMutex
	parsed map[string]*liquid.Template
}

// Template is a parsed template bound to its engine.
type Template struct {
	name string
	tpl  *liquid.Template
}

// New returns an engine with the site filters and include tag registered.
func New(reg *partials.Registry, opts Options) *Engine {
	e := &Engine{
		liquid:   liquid.NewEngine(),
		partials: reg,
		parsed:   make(map[string]*liquid.Template),
	}
	registerFilters(e.liquid)
	e.liquid.RegisterTag("include", e.includeTag)
	if opts.StrictVariables {
		e.liquid.StrictVariables()
	}
	return e
}

// Parse compiles source; name is used in error messages only.
func (e *Engine) Parse(name, source string) (*Template, error) {
	tpl, err := e.liquid.ParseString(source)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}
	return &Template{name: name, tpl: tpl}, nil
}

// Render executes the template. bindings' top-level map may be modified by
// assign tags, so callers pass a fresh one per call.
func (t *Template) Render(bindings map[string]any) (string, error) {
	out, err := t.tpl.RenderString(liquid.Bindings(bindings))
	if err != nil {
		return "", &RenderError{Name: t.name, Err: err}
	}
	return out, nil
}

// Render parses and renders source in one step.
func (e *Engine) Render(name, source string, bindings map[string]any) (string, error) {
	tpl, err := e.Parse(name, source)
	if err != nil {
		return "", err
	}
	return tpl.Render(bindings)
}

// partial returns the parsed template for an include name, parsing it once.
func (e *Engine) partial(name string) (*liquid.Template, error) {
	e.mu.RLock()
	tpl, ok := e.parsed[name]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	text, ok := e.partials.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("include %q not found", name)
	}
	tpl, err := e.liquid.ParseString(text)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	e.mu.Lock()
	e.parsed[name] = tpl
	e.mu.Unlock()
	return tpl, nil
}

// includeTag renders {% include name key=value ... %} from the registry. The
// included template sees the caller's variables plus an "include" map holding
// the parameters.
func (e *Engine) includeTag(ctx render.Context) (string, error) {
	name, params, err := parseIncludeArgs(ctx.TagArgs())
	if err != nil {
		return "", err
	}
	if _, ok := e.partials.Lookup(name); !ok {
		// Not a literal name; allow {% include page.data.widget %}.
		if v, evalErr := ctx.EvaluateString(name); evalErr == nil {
			if s, isString := v.(string); isString && s != "" {
				name = s
			}
		}
	}

	tpl, err := e.partial(name)
	if err != nil {
		return "", err
	}

	bindings := make(map[string]any, len(ctx.Bindings())+1)
	for k, v := range ctx.Bindings() {
		bindings[k] = v
	}
	if len(params) > 0 {
		inc := make(map[string]any, len(params))
		for _, p := range params {
			v, err := ctx.EvaluateString(p.expr)
			if err != nil {
				return "", fmt.Errorf("include %s: parameter %s: %w", name, p.key, err)
			}
			inc[p.key] = v
		}
		bindings["include"] = inc
	}

	out, err := tpl.RenderString(liquid.Bindings(bindings))
	if err != nil {
		return "", fmt.Errorf("include %s: %w", name, err)
	}
	return out, nil
}
