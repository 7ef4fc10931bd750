package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp-forge/cdcs/pkg/cdcs"
)

// Config contains the CLI configuration.
//
// Example configuration file:
//
//	log_level = "info"
//	format    = "table"
//
//	server {
//	  host       = "https://cdcs.example.org"
//	  username   = "curator"
//	  tls_verify = true
//	  timeout    = "30s"
//	}
//
// The password is best left out of the file and supplied with CDCS_PASSWORD.
type Config struct {
	// LogLevel is one of trace, debug, info, warn or error.
	LogLevel string `hcl:"log_level,optional"`

	// Format is the default output format: table, json or yaml.
	Format string `hcl:"format,optional"`

	// Server configures the CDCS connection.
	Server *Server `hcl:"server,block"`
}

// Server is the connection block of the configuration file.
type Server struct {
	Host      string `hcl:"host,optional"`
	Username  string `hcl:"username,optional"`
	Password  string `hcl:"password,optional"`
	CertFile  string `hcl:"cert_file,optional"`
	KeyFile   string `hcl:"key_file,optional"`
	TLSVerify *bool  `hcl:"tls_verify,optional"`

	// Timeout is a Go duration string such as "30s".
	Timeout string `hcl:"timeout,optional"`

	// Version pins the server generation and skips the probe.
	Version string `hcl:"version,optional"`
}

// Formats lists the supported output formats.
var Formats = []string{"table", "json", "yaml"}

var logLevels = []interface{}{"trace", "debug", "info", "warn", "error"}

// NewConfig loads the configuration file at filename, or starts from
// defaults when filename is empty, then applies CDCS_* environment
// overrides.
func NewConfig(filename string) (*Config, error) {
	return load(filename, os.LookupEnv)
}

func load(filename string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if filename != "" {
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", filename)
		}
		if err := hclsimple.DecodeFile(filename, nil, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file: %w", err)
		}
	}
	if cfg.Server == nil {
		cfg.Server = &Server{}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.Format == "" {
		cfg.Format = "table"
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file settings with CDCS_* environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CDCS_HOST":      &c.Server.Host,
		"CDCS_USERNAME":  &c.Server.Username,
		"CDCS_PASSWORD":  &c.Server.Password,
		"CDCS_CERT_FILE": &c.Server.CertFile,
		"CDCS_KEY_FILE":  &c.Server.KeyFile,
		"CDCS_TIMEOUT":   &c.Server.Timeout,
		"CDCS_VERSION":   &c.Server.Version,
		"CDCS_LOG_LEVEL": &c.LogLevel,
		"CDCS_FORMAT":    &c.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("CDCS_TLS_VERIFY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CDCS_TLS_VERIFY: %w", err)
		}
		c.Server.TLSVerify = &b
	}
	return nil
}

// Validate checks the CLI settings. Connection settings are validated by
// ClientConfig.
func (c *Config) Validate() error {
	formats := make([]interface{}, len(Formats))
	for i, f := range Formats {
		formats[i] = f
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(logLevels...)),
		validation.Field(&c.Format, validation.In(formats...)),
	)
}

// ClientConfig converts the server block into a validated library Config.
func (c *Config) ClientConfig() (*cdcs.Config, error) {
	s := c.Server
	if s == nil {
		s = &Server{}
	}

	cfg := cdcs.DefaultConfig()
	cfg.Host = s.Host
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.CertFile = s.CertFile
	cfg.KeyFile = s.KeyFile
	cfg.Version = s.Version
	if s.TLSVerify != nil {
		cfg.TLSVerify = s.TLSVerify
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid server timeout %q: %w", s.Timeout, err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	return cfg, nil
}
