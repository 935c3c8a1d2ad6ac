package commands

import (
	"fmt"

	"git.home.luguber.info/inful/aliasdoc/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

// Run writes the example configuration to --config or ./aliasdoc.yaml.
func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = config.DefaultPath
	}
	fmt.Fprintf(g.stdout(), "Writing configuration to %s\n", path)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Fprintln(g.stdout(), "initialized successfully")
	return nil
}
