package base

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/cdcs/internal/config"
	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

// Command holds state shared by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Out receives rendered results.
	Out io.Writer

	flagConfig   string
	flagHost     string
	flagUsername string
	flagVersion  string
	flagFormat   string
	flagLogLevel string

	format string
}

// NewCommand returns a Command writing results to stdout.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{Log: log, UI: ui, Out: os.Stdout}
}

// FlagSet wraps flag.FlagSet with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f, silencing its own usage output.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(io.Discard)
	f.Usage = func() {}
	return &FlagSet{FlagSet: f}
}

// Help renders the flag defaults for a command's Help text.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	buf.WriteString("\n\nOptions:\n\n")
	f.SetOutput(&buf)
	f.PrintDefaults()
	f.SetOutput(io.Discard)
	return strings.TrimRight(buf.String(), "\n")
}

// Flags returns a flag set carrying the connection and output flags every
// subcommand accepts.
func (c *Command) Flags(name string) *FlagSet {
	f := NewFlagSet(flag.NewFlagSet(name, flag.ContinueOnError))

	f.StringVar(&c.flagConfig, "config", "", "Path to a CDCS config file.")
	f.StringVar(&c.flagHost, "host", "", "CDCS server URL. Overrides the config file and CDCS_HOST.")
	f.StringVar(&c.flagUsername, "username", "", "User for basic auth. The password is read from CDCS_PASSWORD.")
	f.StringVar(&c.flagVersion, "server-version", "", `Server generation such as "3.1.0". Skips the version probe.`)
	f.StringVar(&c.flagFormat, "format", "", "Output format: table, json or yaml.")
	f.StringVar(&c.flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn or error.")

	return f
}

// Config loads the config file and applies flag overrides.
func (c *Command) Config() (*config.Config, error) {
	cfg, err := config.NewConfig(c.flagConfig)
	if err != nil {
		return nil, err
	}
	if c.flagHost != "" {
		cfg.Server.Host = c.flagHost
	}
	if c.flagUsername != "" {
		cfg.Server.Username = c.flagUsername
	}
	if c.flagVersion != "" {
		cfg.Server.Version = c.flagVersion
	}
	if c.flagFormat != "" {
		cfg.Format = c.flagFormat
	}
	if c.flagLogLevel != "" {
		cfg.LogLevel = c.flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	c.format = cfg.Format
	return cfg, nil
}

// Client builds a connected client from the config file and flags.
func (c *Command) Client(ctx context.Context) (*cdcs.Client, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}

	c.Log.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	return cdcs.NewClient(ctx, clientCfg,
		cdcs.WithLogger(c.Log),
		cdcs.WithObserver(cdcs.LoggerObserver{Logger: c.Log.Named("events")}),
	)
}

// Render writes t in the configured output format.
func (c *Command) Render(t cdcs.Table, columns ...string) error {
	return Render(c.Out, c.format, t, columns...)
}

// ListValue is a repeatable flag that also splits comma-separated values.
type ListValue []string

func (l *ListValue) String() string {
	return strings.Join(*l, ",")
}

func (l *ListValue) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}
