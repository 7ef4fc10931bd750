package version

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/internal/version"
)

type Command struct {
	*base.Command

	flagServer bool
}

func (c *Command) Synopsis() string {
	return "Print the CLI version and the server generation"
}

func (c *Command) Help() string {
	return `Usage: cdcs version [options]

  Prints the CLI version. With -server, also connects to the configured
  CDCS instance and prints its API generation.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("version")
	f.BoolVar(&c.flagServer, "server", false, "Also resolve and print the server generation.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	c.UI.Output(fmt.Sprintf("cdcs v%s", version.Version))
	if !c.flagServer {
		return 0
	}

	client, err := c.Client(context.Background())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}
	g := client.Generation()
	c.UI.Output(fmt.Sprintf("server %s: generation %s (%s API)", client.Host(), g, g.Strategy().Name()))
	return 0
}
