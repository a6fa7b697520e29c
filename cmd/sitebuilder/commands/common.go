// Package commands implements the sitebuilder CLI.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`

	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on input changes"`
	Serve   ServeCmd   `cmd:"" help:"Serve the configured vhosts, optionally rebuilding"`
	History HistoryCmd `cmd:"" help:"Show recent builds from the state database"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(c.Verbose)})))
	return nil
}

// logLevel honors --verbose first, then SITEBUILDER_LOG_LEVEL.
func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch config.NormalizeLogLevel(os.Getenv("SITEBUILDER_LOG_LEVEL")) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newBuildService wires history and event publishing from cfg. The returned
// cleanup closes both.
func newBuildService(cfg *config.Config, rec metrics.Recorder) (*build.DefaultBuildService, func(), error) {
	svc := build.NewBuildService().WithPipelineDeps(pipeline.Deps{Recorder: rec})
	var closers []func() error

	if cfg.State.DBPath != "" {
		store, err := eventstore.NewSQLiteStore(cfg.State.DBPath)
		if err != nil {
			return nil, nil, err
		}
		svc.WithStore(store)
		closers = append(closers, store.Close)
	}

	pub, err := notify.New(cfg.Notify)
	if err != nil {
		// An unreachable bus disables events; it never fails the command.
		slog.Warn("Build events disabled", logfields.Error(err))
		pub = notify.Noop{}
	}
	svc.WithPublisher(pub)
	closers = append(closers, pub.Close)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("Cleanup failed", logfields.Error(err))
			}
		}
	}
	return svc, cleanup, nil
}
