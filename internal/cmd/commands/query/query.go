package query

import (
	"context"
	"fmt"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagTemplates base.ListValue
	flagTitle     string
	flagKeyword   string
	flagMongo     string
	flagPage      int
}

func (c *Command) Synopsis() string {
	return "Search records by keyword or mongo query"
}

func (c *Command) Help() string {
	return `Usage: cdcs query [options]

  Searches records visible to the caller. -keyword runs a full text search
  and -mongo a raw JSON mongo query; they cannot be combined. Results carry
  the title of each record's template.

  Example:

    cdcs query -template first -mongo '{"first.name": "first-record-7"}'` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("query")
	f.Var(&c.flagTemplates, "template", "Template title. May be repeated or comma-separated.")
	f.StringVar(&c.flagTitle, "title", "", "Record title.")
	f.StringVar(&c.flagKeyword, "keyword", "", "Full text search terms.")
	f.StringVar(&c.flagMongo, "mongo", "", "Mongo query as JSON.")
	f.IntVar(&c.flagPage, "page", 0, "Fetch only this 1-based page. 0 fetches all pages.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagPage < 0 {
		c.UI.Error("page must not be negative")
		return 1
	}

	ctx := context.Background()
	client, err := c.Client(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}

	q := cdcs.QueryCriteria{
		Title:   c.flagTitle,
		Keyword: c.flagKeyword,
		Page:    c.flagPage,
	}
	if c.flagMongo != "" {
		q.MongoQuery = c.flagMongo
	}
	for _, title := range c.flagTemplates {
		q.Templates = append(q.Templates, cdcs.ByName(title))
	}

	t, err := client.Query(ctx, q)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error querying records: %v", err))
		return 1
	}
	if err := c.Render(t, "id", "title", "template", "template_title", "workspace"); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
