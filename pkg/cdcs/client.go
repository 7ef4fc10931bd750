package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
)

// Client talks to one CDCS server. It is safe for concurrent use once
// constructed, except that ResolveVersion must not run concurrently with
// other calls.
type Client struct {
	config    *Config
	transport Transport
	logger    hclog.Logger
	observer  Observer
	fs        afero.Fs

	mu         sync.RWMutex
	generation Generation
	protocol   ProtocolStrategy
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithFs sets the filesystem used to read upload files and write
// downloads. The default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

// NewClient connects to the server described by cfg and resolves its
// generation. When cfg carries credentials they are checked with Ping.
func NewClient(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	c := &Client{
		config:   cfg,
		observer: nopObserver{},
		fs:       afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	c.logger = c.logger.Named("cdcs")

	if c.transport == nil {
		t, err := NewHTTPTransport(cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}

	if _, err := c.ResolveVersion(ctx, cfg.Version); err != nil {
		return nil, fmt.Errorf("failed to resolve server version: %w", err)
	}

	if cfg.Username != "" {
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to authenticate as %q: %w", cfg.Username, err)
		}
	}
	return c, nil
}

// Host returns the configured server URL.
func (c *Client) Host() string {
	return c.config.Host
}

// Ping issues a cheap authenticated request that matches no records.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "Ping", &Request{
		Method: http.MethodGet,
		Path:   "/rest/data/",
		Query:  url.Values{"title": {"ARBITRARYNONEXISTANTTITLE"}},
	})
	return err
}

// call sends req and fails with a StatusError on any non-2xx status.
func (c *Client) call(ctx context.Context, op string, req *Request) (*Response, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if !resp.OK() {
		return nil, &Error{Op: op, Err: &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}}
	}
	return resp, nil
}

// callRecord sends req and decodes a single JSON object response.
func (c *Client) callRecord(ctx context.Context, op string, req *Request) (Record, error) {
	resp, err := c.call(ctx, op, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return Record{}, nil
	}
	var r Record
	if err := resp.DecodeJSON(&r); err != nil {
		return nil, &Error{Op: op, Err: ErrFormat, Msg: err.Error()}
	}
	return r, nil
}

// list fetches every row of a listing endpoint, following pages when the
// server paginates it.
func (c *Client) list(ctx context.Context, op string, req *Request) (Table, error) {
	return c.execute(ctx, op, req, 0)
}

func formBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (c *Client) readFile(op, name string) ([]byte, error) {
	b, err := afero.ReadFile(c.fs, name)
	if err != nil {
		return nil, &Error{Op: op, Err: err, Msg: "failed to read upload file"}
	}
	return b, nil
}
