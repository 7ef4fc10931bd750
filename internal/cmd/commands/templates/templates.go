package templates

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagTitle       string
	flagAllVersions bool
	flagDisabled    bool
	flagUser        bool
	flagManagers    bool
}

func (c *Command) Synopsis() string {
	return "List templates or template managers"
}

func (c *Command) Help() string {
	return `Usage: cdcs templates [options]

  Lists the current version of every active global template. Use
  -all-versions to list every version and -managers to list the version
  managers themselves.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("templates")
	f.StringVar(&c.flagTitle, "title", "", "Only templates with this title.")
	f.BoolVar(&c.flagAllVersions, "all-versions", false, "List every version, not only current ones.")
	f.BoolVar(&c.flagDisabled, "disabled", false, "List disabled templates instead of active ones.")
	f.BoolVar(&c.flagUser, "user", false, "List the caller's templates instead of global ones.")
	f.BoolVar(&c.flagManagers, "managers", false, "List template managers.")
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

	var t cdcs.Table
	var columns []string
	if c.flagManagers {
		t, err = client.TemplateManagers(ctx, cdcs.TemplateManagerQuery{
			Title:    c.flagTitle,
			Disabled: c.flagDisabled,
			UserOnly: c.flagUser,
		})
		columns = []string{"id", "title", "current", "versions", "disabled_versions", "is_disabled"}
	} else {
		t, err = client.Templates(ctx, cdcs.TemplateQuery{
			Title:       c.flagTitle,
			Disabled:    c.flagDisabled,
			UserOnly:    c.flagUser,
			AllVersions: c.flagAllVersions,
		})
		columns = []string{"id", "title", "filename"}
	}
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing templates: %v", err))
		return 1
	}

	if err := c.Render(t, columns...); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
