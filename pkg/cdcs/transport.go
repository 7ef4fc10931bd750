package cdcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Request describes one REST call relative to the configured host.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Form is sent urlencoded, or as multipart fields when Files is set.
	Form  url.Values
	Files []FormFile

	// JSON, when non-nil, is marshaled as the request body.
	JSON any
}

// FormFile is one multipart file part.
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// withPage returns a copy of the request carrying a page query parameter.
func (r *Request) withPage(page int) *Request {
	cp := *r
	cp.Query = url.Values{}
	for k, v := range r.Query {
		cp.Query[k] = append([]string(nil), v...)
	}
	cp.Query.Set("page", fmt.Sprint(page))
	return &cp
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body, keeping numbers as json.Number.
func (r *Response) DecodeJSON(out any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Transport sends requests to a CDCS server. Implementations return a
// Response for every status code and an error only when no response was
// received.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	config *Config
	client *http.Client
	logger hclog.Logger
}

// NewHTTPTransport creates a transport for cfg. cfg is validated and
// defaulted in place.
func NewHTTPTransport(cfg *Config, logger hclog.Logger) (*HTTPTransport, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CDCS config: %w", err)
	}
	client, err := cfg.NewHTTPClient()
	if err != nil {
		return nil, err
	}
	return &HTTPTransport{
		config: cfg,
		client: client,
		logger: logger.Named("transport"),
	}, nil
}

// Do executes req once. There are no retries.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	endpoint := t.buildURL(req.Path, req.Query)

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if t.config.Username != "" {
		httpReq.SetBasicAuth(t.config.Username, t.config.Password)
	}

	t.logger.Debug("sending request", "method", req.Method, "path", req.Path, "query", req.Query.Encode())

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}

	t.logger.Debug("received response", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "bytes", len(respBody))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// buildURL joins the host and path and attaches query parameters.
func (t *HTTPTransport) buildURL(path string, params url.Values) string {
	u, _ := url.Parse(strings.TrimRight(t.config.Host, "/") + "/" + strings.TrimLeft(path, "/"))
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func encodeBody(req *Request) (io.Reader, string, error) {
	switch {
	case len(req.Files) > 0:
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for key, values := range req.Form {
			for _, v := range values {
				if err := w.WriteField(key, v); err != nil {
					return nil, "", fmt.Errorf("failed to write form field %q: %w", key, err)
				}
			}
		}
		for _, f := range req.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file %q: %w", f.Field, err)
			}
			if _, err := part.Write(f.Content); err != nil {
				return nil, "", fmt.Errorf("failed to write form file %q: %w", f.Field, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
		}
		return buf, w.FormDataContentType(), nil

	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil

	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
	return nil, "", nil
}
