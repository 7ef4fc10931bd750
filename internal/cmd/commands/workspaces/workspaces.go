package workspaces

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
)

type Command struct {
	*base.Command

	flagTitle string
}

func (c *Command) Synopsis() string {
	return "List workspaces"
}

func (c *Command) Help() string {
	return `Usage: cdcs workspaces [options]

  Lists the workspaces visible to the caller.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("workspaces")
	f.StringVar(&c.flagTitle, "title", "", "Workspace title.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	ctx := context.Background()
	client, err := c.Client(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}

	t, err := client.Workspaces(ctx, c.flagTitle)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing workspaces: %v", err))
		return 1
	}
	if err := c.Render(t, "id", "title", "owner", "is_public", "is_global"); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
