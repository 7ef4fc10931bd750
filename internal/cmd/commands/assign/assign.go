package assign

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagWorkspace string
	flagIDs       base.ListValue
	flagTemplate  string
	flagTitle     string
}

func (c *Command) Synopsis() string {
	return "Assign records to a workspace"
}

func (c *Command) Help() string {
	return `Usage: cdcs assign-records -workspace <title> [options]

  Assigns records to a workspace, one request per record. Select records
  either with -id or with -template and -title. Failures are reported per
  record and do not stop the remaining assignments.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("assign-records")
	f.StringVar(&c.flagWorkspace, "workspace", "", "(Required) Workspace title.")
	f.Var(&c.flagIDs, "id", "Record id. May be repeated or comma-separated.")
	f.StringVar(&c.flagTemplate, "template", "", "Template title of the records to assign.")
	f.StringVar(&c.flagTitle, "title", "", "Title of the records to assign.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagWorkspace == "" {
		c.UI.Error("workspace flag is required")
		return 1
	}

	ctx := context.Background()
	client, err := c.Client(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}

	var targets cdcs.RecordTargets
	for _, raw := range c.flagIDs {
		targets.IDs = append(targets.IDs, cdcs.StringID(raw))
	}
	if c.flagTemplate != "" {
		targets.Template = cdcs.ByName(c.flagTemplate)
	}
	targets.Title = c.flagTitle

	result, err := client.AssignRecords(ctx, cdcs.ByName(c.flagWorkspace), targets)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error assigning records: %v", err))
		return 1
	}

	for _, o := range result.Outcomes {
		if o.Err != nil {
			c.UI.Error(fmt.Sprintf("record %s: %v", o.ID, o.Err))
			continue
		}
		c.UI.Info(fmt.Sprintf("record %s: assigned", o.ID))
	}
	c.UI.Output(fmt.Sprintf("%d assigned, %d failed", len(result.Succeeded()), len(result.Failed())))
	if result.Err() != nil {
		return 1
	}
	return 0
}
