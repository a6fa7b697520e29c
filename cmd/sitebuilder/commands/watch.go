package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output       string        `short:"o" help:"Override site.output_dir"`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Also rebuild on this interval (0 disables)"`
	Quiet        time.Duration `help:"Quiet period after the last change before rebuilding" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := applyOutput(cfg, w.Output); err != nil {
		return err
	}
	svc, cleanup, err := newBuildService(cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()
	return runWatch(ctx, cfg, svc, watchOptions(cfg, true, w.RebuildEvery, w.Quiet), g)
}

func watchOptions(cfg *config.Config, onChange bool, every, quiet time.Duration) watch.Options {
	skip := []string{cfg.Site.OutputDir}
	if cfg.State.DBPath != "" {
		skip = append(skip, cfg.State.DBPath)
	}
	return watch.Options{
		Root:    cfg.Site.InputDir,
		Skip:    skip,
		Watch:   onChange,
		Every:   every,
		Quiet:   quiet,
		Initial: true,
	}
}

func runWatch(ctx context.Context, cfg *config.Config, svc build.BuildService, opts watch.Options, g *Global) error {
	return watch.Run(ctx, opts, runOnce(svc, cfg, g.out()))
}
