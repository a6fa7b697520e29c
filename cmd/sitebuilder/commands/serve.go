package commands

import (
	"context"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
)

const shutdownTimeout = 15 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Watch        bool          `short:"w" help:"Build, then rebuild on input changes while serving"`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Rebuild on this interval while serving (0 disables)"`
	Quiet        time.Duration `help:"Quiet period after the last change before rebuilding" default:"300ms"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	srv, err := server.New(cfg.Server, cfg.VHosts, server.Options{Logger: g.Logger, Recorder: rec, Registry: reg})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	if err := srv.Start(ctx); err != nil {
		return err
	}

	rebuilding := s.Watch || s.RebuildEvery > 0
	errCh := make(chan error, 1)
	if rebuilding {
		svc, cleanup, err := newBuildService(cfg, rec)
		if err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
		defer cleanup()
		go func() { errCh <- runWatch(ctx, cfg, svc, watchOptions(cfg, s.Watch, s.RebuildEvery, s.Quiet), g) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		if rebuilding {
			runErr = <-errCh
		}
	case runErr = <-errCh:
	}
	stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
