package records

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagTemplate string
	flagTitle    string
	flagContent  bool
}

func (c *Command) Synopsis() string {
	return "List the caller's records"
}

func (c *Command) Help() string {
	return `Usage: cdcs records [options]

  Lists records owned by the caller, optionally narrowed to a template
  title and a record title. Every page of results is fetched.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("records")
	f.StringVar(&c.flagTemplate, "template", "", "Template title.")
	f.StringVar(&c.flagTitle, "title", "", "Record title.")
	f.BoolVar(&c.flagContent, "content", false, "Include the XML content column.")
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

	q := cdcs.RecordQuery{Title: c.flagTitle}
	if c.flagTemplate != "" {
		q.Template = cdcs.ByName(c.flagTemplate)
	}
	t, err := client.Records(ctx, q)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listing records: %v", err))
		return 1
	}

	columns := []string{"id", "title", "template", "workspace", "last_modification_date"}
	if c.flagContent {
		columns = append(columns, "xml_content")
	}
	if err := c.Render(t, columns...); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
