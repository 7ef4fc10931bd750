package open

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/browser"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

type Command struct {
	*base.Command

	flagRecord string
	flagTitle  string

	// openURL is replaced in tests.
	openURL func(string) error
}

func (c *Command) Synopsis() string {
	return "Open the CDCS web interface in a browser"
}

func (c *Command) Help() string {
	return `Usage: cdcs open [options]

  Opens the CDCS host in the default browser, or the page of a single
  record selected by -record or -title.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.Command.Flags("open")
	f.StringVar(&c.flagRecord, "record", "", "Record id.")
	f.StringVar(&c.flagTitle, "title", "", "Record title.")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagRecord != "" && c.flagTitle != "" {
		c.UI.Error("-record and -title cannot be combined")
		return 1
	}

	ctx := context.Background()
	client, err := c.Client(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to CDCS: %v", err))
		return 1
	}

	id := c.flagRecord
	if c.flagTitle != "" {
		r, err := client.Record(ctx, cdcs.RecordQuery{Title: c.flagTitle})
		if err != nil {
			c.UI.Error(fmt.Sprintf("error finding record: %v", err))
			return 1
		}
		id = r.ID().String()
	}

	target := recordURL(client.Host(), id)
	launch := c.openURL
	if launch == nil {
		launch = browser.OpenURL
	}
	c.UI.Info(fmt.Sprintf("opening %s", target))
	if err := launch(target); err != nil {
		c.UI.Error(fmt.Sprintf("error opening browser: %v", err))
		return 1
	}
	return 0
}

// recordURL returns the host page, or the record view when id is set.
func recordURL(host, id string) string {
	host = strings.TrimRight(host, "/")
	if id == "" {
		return host + "/"
	}
	return host + "/data?" + url.Values{"id": {id}}.Encode()
}
