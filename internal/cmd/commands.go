package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/cdcs/internal/cmd/base"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/assign"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/blobs"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/open"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/query"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/records"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/templates"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/version"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/workspaces"
	"github.com/hashicorp-forge/cdcs/internal/cmd/commands/xslts"
)

// Commands is the mapping of all available CDCS commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := func() *base.Command { return base.NewCommand(log, ui) }

	Commands = map[string]cli.CommandFactory{
		"assign-records": func() (cli.Command, error) {
			return &assign.Command{Command: b()}, nil
		},
		"blobs": func() (cli.Command, error) {
			return &blobs.Command{Command: b()}, nil
		},
		"open": func() (cli.Command, error) {
			return &open.Command{Command: b()}, nil
		},
		"query": func() (cli.Command, error) {
			return &query.Command{Command: b()}, nil
		},
		"records": func() (cli.Command, error) {
			return &records.Command{Command: b()}, nil
		},
		"templates": func() (cli.Command, error) {
			return &templates.Command{Command: b()}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b()}, nil
		},
		"workspaces": func() (cli.Command, error) {
			return &workspaces.Command{Command: b()}, nil
		},
		"xslts": func() (cli.Command, error) {
			return &xslts.Command{Command: b()}, nil
		},
	}
}
