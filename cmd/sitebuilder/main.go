// Command sitebuilder builds static sites and serves them over HTTP(S).
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/cmd/sitebuilder/commands"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sitebuilder"),
		kong.Description("Static site builder and multi-vhost file server."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default(), Stdout: os.Stdout}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
