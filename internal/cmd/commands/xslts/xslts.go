package xslts

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagName     string
	flagFilename string
}

func (c *Command) Synopsis() string {
	return "List XSLT transformations"
}

func (c *Command) Help() string {
	return `Usage: cdcs xslts [options]

  Lists stored XSLT transformations.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("xslts")
	f.StringVar(&c.flagName, "name", "", "XSLT name.")
	f.StringVar(&c.flagFilename, "filename", "", "XSLT filename.")
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

	t, err := client.XSLTs(ctx, cdcs.XSLTQuery{Name: c.flagName, Filename: c.flagFilename})
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing xslts: %v", err))
		return 1
	}
	if err := c.Render(t, "id", "name", "filename"); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
