package cdcs

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config contains the connection settings for a CDCS server.
type Config struct {
	// Host is the base URL of the CDCS instance, e.g. "https://cdcs.example.org".
	Host string `json:"host"`

	// Username and Password enable HTTP basic auth. Leave Username empty for
	// anonymous access.
	Username string `json:"username,omitempty"`
	Password string `json:"-"`

	// CertFile and KeyFile configure a client certificate. KeyFile may be
	// empty when CertFile holds both the certificate and its key.
	CertFile string `json:"certFile,omitempty"`
	KeyFile  string `json:"keyFile,omitempty"`

	// TLSVerify controls server certificate verification.
	// Default: true
	TLSVerify *bool `json:"tlsVerify,omitempty"`

	// Timeout bounds every request.
	// Default: 30 seconds
	Timeout time.Duration `json:"timeout,omitempty"`

	// Version pins the server generation ("3.1.0"). When empty the client
	// probes /rest/core-settings/ at construction.
	Version string `json:"version,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		TLSVerify: &tlsVerify,
		Timeout:   30 * time.Second,
	}
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Password, validation.When(c.Username == "", validation.Empty.Error("requires a username"))),
		validation.Field(&c.KeyFile, validation.When(c.CertFile == "", validation.Empty.Error("requires cert_file"))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0)).Exclusive()),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host name")
	}
	return nil
}

// NewHTTPClient creates an HTTP client honoring the TLS and timeout settings.
func (c *Config) NewHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.TLSVerify != nil && !*c.TLSVerify {
		tlsConfig.InsecureSkipVerify = true
	}
	if c.CertFile != "" {
		keyFile := c.KeyFile
		if keyFile == "" {
			keyFile = c.CertFile
		}
		cert, err := tls.LoadX509KeyPair(c.CertFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	transport.TLSClientConfig = tlsConfig

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}, nil
}
