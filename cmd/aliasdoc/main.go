package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/aliasdoc/cmd/aliasdoc/commands"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout, Err: os.Stderr}

	ctx := kong.Parse(&cli,
		kong.Name("aliasdoc"),
		kong.Description("Validate, render and bundle Markdown documents with aliased images."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(global, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
