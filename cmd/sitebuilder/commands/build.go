package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Override site.output_dir"`
	SkipSource  bool   `name:"skip-source" help:"Do not sync the git source before building"`
	SkipRunners bool   `name:"skip-runners" help:"Do not run pre/post build commands"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := applyOutput(cfg, b.Output); err != nil {
		return err
	}

	svc, cleanup, err := newBuildService(cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	res, err := svc.Run(ctx, build.BuildRequest{
		Config: cfg,
		Reason: "cli",
		Options: build.BuildOptions{
			SkipSource:  b.SkipSource,
			SkipRunners: b.SkipRunners,
		},
	})
	printResult(g.out(), res)
	return err
}

// applyOutput overrides the output directory and re-checks it against the input.
func applyOutput(cfg *config.Config, output string) error {
	if output == "" {
		return nil
	}
	cfg.Site.OutputDir = output
	return cfg.Validate()
}

func printResult(w io.Writer, res *build.BuildResult) {
	if res == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Build %s %s in %s\n", res.BuildID, res.Status, res.Duration.Round(time.Millisecond))
	r := res.Report
	if r == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "  pages: %d (skipped %d), plain files: %d (linked %d, copied %d, shadowed %d)\n",
		len(r.Pages), r.SkippedPages, r.PlainFiles, r.Linked, r.Copied, r.Shadowed)
	if len(res.Changed) > 0 {
		_, _ = fmt.Fprintf(w, "  changed: %d\n", len(res.Changed))
	}
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s: %s\n", warn.File, warn.Message)
	}
}

// runOnce is the watch loop's build callback.
func runOnce(svc build.BuildService, cfg *config.Config, w io.Writer) func(ctx context.Context, reason string) error {
	return func(ctx context.Context, reason string) error {
		res, err := svc.Run(ctx, build.BuildRequest{
			Config: cfg,
			Reason: reason,
			// Input edits never need a fresh pull.
			Options: build.BuildOptions{SkipSource: watch.IsChange(reason)},
		})
		printResult(w, res)
		return err
	}
}
