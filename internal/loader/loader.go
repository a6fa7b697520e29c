package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Options controls how a file becomes a page.
type Options struct {
	// ParseFrontmatter is false when the template stage is disabled; every
	// file is then a page with the default variables as its data.
	ParseFrontmatter bool
	Format           config.Format
	Defaults         config.Vars
}

// OptionsFor derives loader options from the site configuration.
func OptionsFor(cfg config.SiteConfig) Options {
	return Options{
		ParseFrontmatter: cfg.Renderers.Template,
		Format:           cfg.FrontmatterFormat,
		Defaults:         cfg.DefaultVars,
	}
}

// LoadPage reads root/rel and returns the page it defines, or nil when the file
// has no frontmatter and is therefore a plain file. Read failures are fatal; a
// frontmatter block that does not parse is logged and treated as empty.
func LoadPage(root, rel string, opts Options) (*site.Page, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.IOError("unable to read input file").WithFile(full).WithCause(err).Build()
	}

	if !opts.ParseFrontmatter {
		p := site.NewPage(rel, site.MergeVars(opts.Defaults, nil), string(raw))
		return &p, nil
	}

	block, body, had, err := frontmatter.Split(raw)
	if err != nil {
		slog.Warn("Frontmatter not closed; treating as plain file", logfields.File(rel), logfields.Error(err))
		return nil, nil
	}
	if !had {
		return nil, nil
	}

	front, err := frontmatter.Parse(block, opts.Format)
	if err != nil {
		slog.Warn("Ignoring unparseable frontmatter", logfields.File(rel), logfields.Error(err))
		front = nil
	}

	p := site.NewPage(rel, site.MergeVars(opts.Defaults, front), string(body))
	return &p, nil
}

// Result splits loaded inputs into pages and plain files, both in input order.
type Result struct {
	Pages []site.Page
	Files []string
}

// LoadAll runs LoadPage over every input on the worker pool.
func LoadAll(ctx context.Context, root string, inputs []string, opts Options, workers int) (Result, error) {
	loaded, err := parallel.Map(ctx, inputs, workers, func(_ context.Context, rel string) (*site.Page, error) {
		return LoadPage(root, rel, opts)
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, p := range loaded {
		if p == nil {
			res.Files = append(res.Files, inputs[i])
			continue
		}
		res.Pages = append(res.Pages, *p)
	}
	return res, nil
}
