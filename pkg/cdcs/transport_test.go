package cdcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method      string
	path        string
	query       string
	contentType string
	user        string
	password    string
	form        map[string][]string
	file        string
	body        string
}

func newCaptureServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.contentType = r.Header.Get("Content-Type")
		got.user, got.password, _ = r.BasicAuth()
		switch {
		case strings.HasPrefix(got.contentType, "multipart/"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			got.form = r.MultipartForm.Value
			if f, _, err := r.FormFile("blob"); err == nil {
				b, _ := io.ReadAll(f)
				got.file = string(b)
			}
		case got.contentType == "application/x-www-form-urlencoded":
			require.NoError(t, r.ParseForm())
			got.form = r.PostForm
		default:
			b, _ := io.ReadAll(r.Body)
			got.body = string(b)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestHTTPTransportDo(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		req      Request
		check    func(t *testing.T, got *capturedRequest)
		wantBody string
	}{
		{
			name:   "anonymous get with query",
			config: Config{},
			req:    Request{Method: http.MethodGet, Path: "/rest/data/", Query: map[string][]string{"title": {"a b"}}},
			check: func(t *testing.T, got *capturedRequest) {
				assert.Equal(t, "/rest/data/", got.path)
				assert.Equal(t, "title=a+b", got.query)
				assert.Empty(t, got.user)
			},
		},
		{
			name:   "basic auth and form",
			config: Config{Username: "curator", Password: "secret"},
			req:    Request{Method: http.MethodPatch, Path: "pid/rest/settings/", Form: map[string][]string{"auto_set_pid": {"False"}}},
			check: func(t *testing.T, got *capturedRequest) {
				assert.Equal(t, http.MethodPatch, got.method)
				assert.Equal(t, "/pid/rest/settings/", got.path)
				assert.Equal(t, "curator", got.user)
				assert.Equal(t, "secret", got.password)
				assert.Equal(t, []string{"False"}, got.form["auto_set_pid"])
			},
		},
		{
			name:   "multipart upload",
			config: Config{},
			req: Request{
				Method: http.MethodPost,
				Path:   "/rest/blob/",
				Form:   map[string][]string{"filename": {"a.txt"}},
				Files:  []FormFile{{Field: "blob", Filename: "a.txt", Content: []byte("payload")}},
			},
			check: func(t *testing.T, got *capturedRequest) {
				assert.Contains(t, got.contentType, "multipart/form-data")
				assert.Equal(t, []string{"a.txt"}, got.form["filename"])
				assert.Equal(t, "payload", got.file)
			},
		},
		{
			name:   "json body",
			config: Config{},
			req:    Request{Method: http.MethodPost, Path: "/rest/data/query/", JSON: map[string]any{"query": "{}"}},
			check: func(t *testing.T, got *capturedRequest) {
				assert.Equal(t, "application/json", got.contentType)
				assert.JSONEq(t, `{"query": "{}"}`, got.body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newCaptureServer(t, http.StatusOK, `{"ok": true}`)
			cfg := tt.config
			cfg.Host = srv.URL + "/"
			tr, err := NewHTTPTransport(&cfg, nil)
			require.NoError(t, err)

			resp, err := tr.Do(context.Background(), &tt.req)
			require.NoError(t, err)
			assert.True(t, resp.OK())

			var out map[string]any
			require.NoError(t, resp.DecodeJSON(&out))
			assert.Equal(t, true, out["ok"])
			tt.check(t, got)
		})
	}
}

func TestHTTPTransportStatusIsNotAnError(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusUnauthorized, `{"detail": "no"}`)
	tr, err := NewHTTPTransport(&Config{Host: srv.URL}, nil)
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/rest/core-settings/"})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPTransportConnectionError(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusOK, "")
	host := srv.URL
	srv.Close()

	tr, err := NewHTTPTransport(&Config{Host: host}, nil)
	require.NoError(t, err)
	_, err = tr.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestNewHTTPTransportInvalidConfig(t *testing.T) {
	_, err := NewHTTPTransport(&Config{Host: "not a url"}, nil)
	assert.ErrorContains(t, err, "invalid CDCS config")
}

func TestRequestWithPage(t *testing.T) {
	req := &Request{Method: http.MethodGet, Path: "/rest/data/", Query: map[string][]string{"title": {"x"}}}
	paged := req.withPage(3)
	assert.Equal(t, "3", paged.Query.Get("page"))
	assert.Equal(t, "x", paged.Query.Get("title"))
	assert.Empty(t, req.Query.Get("page"), "caller request is untouched")
}
