package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	N       int  `short:"n" help:"Number of builds to show" default:"10"`
	Changed bool `help:"List the changed pages of each build"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.State.DBPath == "" {
		return errors.ConfigError("state.db_path is not configured").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.State.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	builds, err := store.Recent(ctx, h.N)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tOUTCOME\tPAGES\tPLAIN\tWARNINGS\tDURATION\tCOMMIT")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			b.ID, b.StartedAt.Local().Format(time.DateTime), b.Outcome,
			b.PageCount, b.PlainFiles, b.Warnings, b.Duration.Round(time.Millisecond), shortCommit(b.Commit))
	}
	if err := tw.Flush(); err != nil {
		return errors.IOError("failed to write history").WithCause(err).Build()
	}

	if !h.Changed {
		return nil
	}
	for _, b := range builds {
		changed, err := store.Changed(ctx, b.ID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(g.out(), "\n%s: %d changed\n", b.ID, len(changed))
		for _, c := range changed {
			_, _ = fmt.Fprintf(g.out(), "  %s\n", c)
		}
	}
	return nil
}

func shortCommit(c string) string {
	if len(c) > 10 {
		return c[:10]
	}
	if c == "" {
		return "-"
	}
	return c
}
