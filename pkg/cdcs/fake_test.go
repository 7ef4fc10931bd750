package cdcs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// fakeCDCS is an in-memory CDCS server holding 12 records across the
// templates "first" (8) and "second" (4), three template managers (the
// third disabled), two workspaces, two blobs, two XSLTs and one PID xpath.
// Generation 3 answers with integer ids and paged envelopes; generation 2
// with string ids and bare arrays.
type fakeCDCS struct {
	t          *testing.T
	generation int
	pageSize   int

	// coreStatus overrides the core settings probe status when non-zero.
	coreStatus  int
	coreVersion string

	mu         sync.Mutex
	records    []map[string]any
	managers   []map[string]any
	templates  []map[string]any
	workspaces []map[string]any
	blobs      []map[string]any
	blobData   map[string][]byte
	xslts      []map[string]any
	xpaths     []map[string]any
	autoSetPID bool
	failAssign map[string]bool
	nextID     int
	requests   []fakeRequest

	server *httptest.Server
}

type fakeRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

type fakeOption func(*fakeCDCS)

func withRecords(n int) fakeOption {
	return func(f *fakeCDCS) { f.records = f.records[:n] }
}

func withFailingAssign(ids ...string) fakeOption {
	return func(f *fakeCDCS) {
		for _, id := range ids {
			f.failAssign[id] = true
		}
	}
}

func withCoreSettings(status int, version string) fakeOption {
	return func(f *fakeCDCS) {
		f.coreStatus = status
		f.coreVersion = version
	}
}

func newFakeCDCS(t *testing.T, generation int, opts ...fakeOption) *fakeCDCS {
	t.Helper()
	f := &fakeCDCS{
		t:          t,
		generation: generation,
		pageSize:   10,
		blobData:   map[string][]byte{},
		autoSetPID: true,
		failAssign: map[string]bool{},
		nextID:     100,
	}
	f.seed()
	for _, opt := range opts {
		opt(f)
	}
	f.server = httptest.NewServer(f.routes())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCDCS) seed() {
	f.managers = []map[string]any{
		{"id": 1, "title": "first", "user": nil, "versions": []any{1}, "current": 1, "is_disabled": false, "disabled_versions": []any{}},
		{"id": 2, "title": "second", "user": nil, "versions": []any{2, 3}, "current": 3, "is_disabled": false, "disabled_versions": []any{}},
		{"id": 3, "title": "third", "user": nil, "versions": []any{4}, "current": 4, "is_disabled": true, "disabled_versions": []any{}},
	}
	for i, name := range []string{"first", "second", "second", "third"} {
		f.templates = append(f.templates, map[string]any{
			"id": i + 1, "user": nil, "filename": name + ".xsd",
			"content": "<xs:schema/>", "_hash": fmt.Sprintf("hash%d", i+1),
		})
	}
	for i := 1; i <= 12; i++ {
		name, tmpl, n := "first", 1, i
		if i > 8 {
			name, tmpl, n = "second", 3, i-8
		}
		title := fmt.Sprintf("%s-record-%d", name, n)
		f.records = append(f.records, map[string]any{
			"id":                     i,
			"template":               tmpl,
			"workspace":              nil,
			"user_id":                "1",
			"title":                  title,
			"xml_content":            fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?><%s><name>%s</name></%s>`, name, title, name),
			"creation_date":          fmt.Sprintf("2021-08-26T13:44:%02d.922000Z", i),
			"last_modification_date": fmt.Sprintf("2021-08-26T13:44:%02d.922000Z", i),
			"last_change_date":       fmt.Sprintf("2021-08-26T13:45:%02d.239000Z", i),
		})
	}
	f.workspaces = []map[string]any{
		{"id": 1, "title": "Global Public Workspace", "owner": nil, "is_public": true, "is_global": true},
		{"id": 2, "title": "Bob's stuff", "owner": "1", "is_public": false, "is_global": false},
	}
	f.blobs = []map[string]any{
		{"id": 1, "filename": "test_blob.txt", "user_id": "1"},
		{"id": 2, "filename": "no_blob.txt", "user_id": "1"},
	}
	f.blobData["1"] = []byte("test blob contents")
	f.blobData["2"] = []byte("")
	f.xslts = []map[string]any{
		{"id": 1, "name": "first", "filename": "first.xsl", "content": "<xsl:stylesheet/>"},
		{"id": 2, "name": "second", "filename": "second.xsl", "content": "<xsl:stylesheet/>"},
	}
	f.xpaths = []map[string]any{
		{"id": 1, "template": 1, "xpath": "first.pid"},
	}
}

// client returns a Client probing the fake for its generation.
func (f *fakeCDCS) client(opts ...Option) *Client {
	f.t.Helper()
	opts = append([]Option{WithLogger(hclog.NewNullLogger())}, opts...)
	c, err := NewClient(context.Background(), &Config{Host: f.server.URL}, opts...)
	require.NoError(f.t, err)
	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()
	return c
}

// recorded returns requests whose method matches and whose path starts
// with prefix.
func (f *fakeCDCS) recorded(method, prefix string) []fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeRequest
	for _, r := range f.requests {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// id renders a fixture id the way the current generation does.
func (f *fakeCDCS) id(n int) ID {
	if f.generation < 3 {
		return StringID(strconv.Itoa(n))
	}
	return IntID(int64(n))
}

func (f *fakeCDCS) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rest/core-settings/{$}", f.coreSettings)

	mux.HandleFunc("GET /rest/data/{$}", f.listRecords)
	mux.HandleFunc("POST /rest/data/{$}", f.createRecord)
	mux.HandleFunc("PATCH /rest/data/{id}/{$}", f.updateRecord)
	mux.HandleFunc("DELETE /rest/data/{id}/{$}", f.deleteRecord)
	mux.HandleFunc("PATCH /rest/data/{id}/assign/{ws}", f.assignRecord)
	mux.HandleFunc("POST /rest/data/query/{$}", f.query)
	mux.HandleFunc("POST /rest/data/query/keyword/{$}", f.query)

	mux.HandleFunc("GET /rest/template-version-manager/global/{$}", f.listManagers)
	mux.HandleFunc("GET /rest/template-version-manager/user/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, []any{})
	})
	mux.HandleFunc("PATCH /rest/template-version-manager/{id}/{action}/{$}", f.patchManager)
	mux.HandleFunc("POST /rest/template-version-manager/{id}/version/{$}", f.createVersion)
	mux.HandleFunc("GET /rest/template/{id}/{$}", f.getTemplate)
	mux.HandleFunc("POST /rest/template/global/{$}", f.createTemplate)
	mux.HandleFunc("POST /rest/template/user/{$}", f.createTemplate)
	mux.HandleFunc("PATCH /rest/template/version/{id}/{action}/{$}", f.patchVersion)

	mux.HandleFunc("GET /rest/workspace/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, f.workspaces)
	})

	mux.HandleFunc("GET /rest/blob/{$}", f.listBlobs)
	mux.HandleFunc("POST /rest/blob/{$}", f.createBlob)
	mux.HandleFunc("GET /rest/blob/{id}", f.getBlob)
	mux.HandleFunc("DELETE /rest/blob/{id}", f.deleteBlob)
	mux.HandleFunc("GET /rest/blob/download/{id}", f.downloadBlob)
	mux.HandleFunc("PATCH /rest/blob/{id}/assign/{ws}", f.assignBlob)

	mux.HandleFunc("GET /rest/xslt/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, f.xslts)
	})
	mux.HandleFunc("POST /rest/xslt/{$}", f.createXSLT)
	mux.HandleFunc("PATCH /rest/xslt/{id}/{$}", f.updateXSLT)
	mux.HandleFunc("DELETE /rest/xslt/{id}/{$}", f.deleteXSLT)

	mux.HandleFunc("GET /pid/rest/settings", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, map[string]any{"auto_set_pid": f.autoSetPID})
	})
	mux.HandleFunc("PATCH /pid/rest/settings/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.autoSetPID = r.PostForm.Get("auto_set_pid") == "True"
		f.writeJSON(w, http.StatusOK, map[string]any{"auto_set_pid": f.autoSetPID})
	})
	mux.HandleFunc("GET /pid/rest/settings/xpath/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, f.xpaths)
	})
	mux.HandleFunc("POST /pid/rest/settings/xpath/{$}", f.createXPath)
	mux.HandleFunc("PATCH /pid/rest/settings/xpath/{id}/{$}", f.updateXPath)
	mux.HandleFunc("DELETE /pid/rest/settings/xpath/{id}/{$}", f.deleteXPath)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(1 << 20)
		} else {
			_ = r.ParseForm()
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, fakeRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
		})
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeCDCS) coreSettings(w http.ResponseWriter, r *http.Request) {
	status, version := f.coreStatus, f.coreVersion
	if status == 0 {
		status, version = http.StatusNotFound, ""
		if f.generation >= 3 {
			status, version = http.StatusOK, fmt.Sprintf("%d.0.0", f.generation-1)
		}
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	f.writeJSON(w, status, map[string]any{"core_version": version})
}

// render converts fixture values to the wire shape of the generation.
func (f *fakeCDCS) render(v any) any {
	switch x := v.(type) {
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = f.render(m)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = f.render(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = f.render(val)
		}
		return out
	case int:
		if f.generation < 3 {
			return strconv.Itoa(x)
		}
		return x
	default:
		return v
	}
}

func (f *fakeCDCS) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(f.render(v))
}

// writeListing pages rows under generation 3 and returns them whole under 2.
func (f *fakeCDCS) writeListing(w http.ResponseWriter, r *http.Request, rows []map[string]any) {
	if f.generation < 3 {
		f.writeJSON(w, http.StatusOK, rows)
		return
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}
	start := (page - 1) * f.pageSize
	if page < 1 || (start >= len(rows) && page > 1) {
		http.Error(w, `{"detail": "Invalid page."}`, http.StatusNotFound)
		return
	}
	end := min(start+f.pageSize, len(rows))
	var next, previous any
	if end < len(rows) {
		next = fmt.Sprintf("%s%s?page=%d", f.server.URL, r.URL.Path, page+1)
	}
	if page > 1 {
		previous = fmt.Sprintf("%s%s?page=%d", f.server.URL, r.URL.Path, page-1)
	}
	f.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(rows),
		"next":     next,
		"previous": previous,
		"results":  rows[start:end],
	})
}

func find(rows []map[string]any, id string) (int, map[string]any) {
	for i, row := range rows {
		if fmt.Sprint(row["id"]) == id {
			return i, row
		}
	}
	return -1, nil
}

func (f *fakeCDCS) newID() int {
	f.nextID++
	return f.nextID
}

func (f *fakeCDCS) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var templates map[string]bool
	if t := q.Get("template"); t != "" {
		templates = map[string]bool{t: true}
	}
	f.writeListing(w, r, f.matchRecords(templates, q.Get("title"), "", nil))
}

func (f *fakeCDCS) matchRecords(templates map[string]bool, title, keyword string, mongo map[string]any) []map[string]any {
	var out []map[string]any
	for _, rec := range f.records {
		if templates != nil && !templates[fmt.Sprint(rec["template"])] {
			continue
		}
		if title != "" && rec["title"] != title {
			continue
		}
		content := rec["xml_content"].(string)
		if keyword != "" && !strings.Contains(content, keyword) {
			continue
		}
		matched := true
		for _, v := range mongo {
			if !strings.Contains(content, fmt.Sprint(v)) {
				matched = false
			}
		}
		if matched {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeCDCS) query(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm
	var templates map[string]bool
	if raw := form.Get("templates"); raw != "" {
		var refs []map[string]any
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		templates = map[string]bool{}
		for _, ref := range refs {
			templates[fmt.Sprint(ref["id"])] = true
		}
	}
	var keyword string
	var mongo map[string]any
	if strings.HasSuffix(r.URL.Path, "/keyword/") {
		keyword = form.Get("query")
	} else if err := json.Unmarshal([]byte(form.Get("query")), &mongo); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.writeListing(w, r, f.matchRecords(templates, form.Get("title"), keyword, mongo))
}

func (f *fakeCDCS) createRecord(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm
	tmpl, _ := strconv.Atoi(form.Get("template"))
	rec := map[string]any{
		"id":          f.newID(),
		"template":    tmpl,
		"workspace":   nil,
		"user_id":     "1",
		"title":       form.Get("title"),
		"xml_content": form.Get("xml_content"),
	}
	f.records = append(f.records, rec)
	f.writeJSON(w, http.StatusCreated, rec)
}

func (f *fakeCDCS) updateRecord(w http.ResponseWriter, r *http.Request) {
	_, rec := find(f.records, r.PathValue("id"))
	if rec == nil {
		http.NotFound(w, r)
		return
	}
	rec["xml_content"] = r.PostForm.Get("xml_content")
	f.writeJSON(w, http.StatusOK, rec)
}

func (f *fakeCDCS) deleteRecord(w http.ResponseWriter, r *http.Request) {
	i, _ := find(f.records, r.PathValue("id"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	f.records = append(f.records[:i], f.records[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeCDCS) assignRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if f.failAssign[id] {
		http.Error(w, `{"message": "assignment refused"}`, http.StatusInternalServerError)
		return
	}
	_, rec := find(f.records, id)
	_, ws := find(f.workspaces, r.PathValue("ws"))
	if rec == nil || ws == nil {
		http.NotFound(w, r)
		return
	}
	rec["workspace"] = ws["id"]
	f.writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeCDCS) listManagers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	disabled := q.Get("is_disabled") == "True"
	var out []map[string]any
	for _, m := range f.managers {
		if m["is_disabled"] != disabled {
			continue
		}
		if title := q.Get("title"); title != "" && m["title"] != title {
			continue
		}
		out = append(out, m)
	}
	if out == nil {
		out = []map[string]any{}
	}
	f.writeJSON(w, http.StatusOK, out)
}

func (f *fakeCDCS) patchManager(w http.ResponseWriter, r *http.Request) {
	_, m := find(f.managers, r.PathValue("id"))
	if m == nil {
		http.NotFound(w, r)
		return
	}
	switch r.PathValue("action") {
	case "disable":
		m["is_disabled"] = true
	case "restore":
		m["is_disabled"] = false
	default:
		http.NotFound(w, r)
		return
	}
	f.writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeCDCS) createVersion(w http.ResponseWriter, r *http.Request) {
	_, m := find(f.managers, r.PathValue("id"))
	if m == nil {
		http.NotFound(w, r)
		return
	}
	id := f.newID()
	f.templates = append(f.templates, map[string]any{
		"id": id, "user": nil, "filename": r.PostForm.Get("filename"), "content": r.PostForm.Get("content"),
	})
	m["versions"] = append(m["versions"].([]any), id)
	f.writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (f *fakeCDCS) getTemplate(w http.ResponseWriter, r *http.Request) {
	_, t := find(f.templates, r.PathValue("id"))
	if t == nil {
		http.NotFound(w, r)
		return
	}
	f.writeJSON(w, http.StatusOK, t)
}

func (f *fakeCDCS) createTemplate(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm
	id := f.newID()
	f.templates = append(f.templates, map[string]any{
		"id": id, "user": nil, "filename": form.Get("filename"), "content": form.Get("content"),
	})
	f.managers = append(f.managers, map[string]any{
		"id": f.newID(), "title": form.Get("title"), "user": nil, "versions": []any{id},
		"current": id, "is_disabled": false, "disabled_versions": []any{},
	})
	f.writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (f *fakeCDCS) patchVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, m := range f.managers {
		var found any
		for _, v := range m["versions"].([]any) {
			if fmt.Sprint(v) == id {
				found = v
			}
		}
		if found == nil {
			continue
		}
		disabled := m["disabled_versions"].([]any)
		switch r.PathValue("action") {
		case "current":
			m["current"] = found
		case "disable":
			m["disabled_versions"] = append(disabled, found)
		case "restore":
			kept := []any{}
			for _, v := range disabled {
				if fmt.Sprint(v) != id {
					kept = append(kept, v)
				}
			}
			m["disabled_versions"] = kept
		}
		f.writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	http.NotFound(w, r)
}

func (f *fakeCDCS) blobView(b map[string]any) map[string]any {
	out := map[string]any{"handle": fmt.Sprintf("%s/rest/blob/download/%v/", f.server.URL, b["id"])}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (f *fakeCDCS) listBlobs(w http.ResponseWriter, r *http.Request) {
	out := []map[string]any{}
	for _, b := range f.blobs {
		if name := r.URL.Query().Get("filename"); name != "" && b["filename"] != name {
			continue
		}
		out = append(out, f.blobView(b))
	}
	f.writeJSON(w, http.StatusOK, out)
}

func (f *fakeCDCS) getBlob(w http.ResponseWriter, r *http.Request) {
	_, b := find(f.blobs, r.PathValue("id"))
	if b == nil {
		http.NotFound(w, r)
		return
	}
	f.writeJSON(w, http.StatusOK, f.blobView(b))
}

func (f *fakeCDCS) createBlob(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("blob")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	id := f.newID()
	b := map[string]any{"id": id, "filename": r.PostForm.Get("filename"), "user_id": "1"}
	f.blobs = append(f.blobs, b)
	f.blobData[strconv.Itoa(id)] = content
	f.writeJSON(w, http.StatusCreated, f.blobView(b))
}

func (f *fakeCDCS) deleteBlob(w http.ResponseWriter, r *http.Request) {
	i, _ := find(f.blobs, r.PathValue("id"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	f.blobs = append(f.blobs[:i], f.blobs[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeCDCS) downloadBlob(w http.ResponseWriter, r *http.Request) {
	content, ok := f.blobData[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}

func (f *fakeCDCS) assignBlob(w http.ResponseWriter, r *http.Request) {
	_, b := find(f.blobs, r.PathValue("id"))
	_, ws := find(f.workspaces, r.PathValue("ws"))
	if b == nil || ws == nil {
		http.NotFound(w, r)
		return
	}
	b["workspace"] = ws["id"]
	f.writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeCDCS) createXSLT(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm
	x := map[string]any{"id": f.newID(), "name": form.Get("name"), "filename": form.Get("filename"), "content": form.Get("content")}
	f.xslts = append(f.xslts, x)
	f.writeJSON(w, http.StatusCreated, x)
}

func (f *fakeCDCS) updateXSLT(w http.ResponseWriter, r *http.Request) {
	_, x := find(f.xslts, r.PathValue("id"))
	if x == nil {
		http.NotFound(w, r)
		return
	}
	for _, key := range []string{"name", "filename", "content"} {
		if v, ok := r.PostForm[key]; ok {
			x[key] = v[0]
		}
	}
	f.writeJSON(w, http.StatusOK, x)
}

func (f *fakeCDCS) deleteXSLT(w http.ResponseWriter, r *http.Request) {
	i, _ := find(f.xslts, r.PathValue("id"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	f.xslts = append(f.xslts[:i], f.xslts[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeCDCS) createXPath(w http.ResponseWriter, r *http.Request) {
	tmpl, _ := strconv.Atoi(r.PostForm.Get("template"))
	x := map[string]any{"id": f.newID(), "template": tmpl, "xpath": r.PostForm.Get("xpath")}
	f.xpaths = append(f.xpaths, x)
	f.writeJSON(w, http.StatusCreated, x)
}

func (f *fakeCDCS) updateXPath(w http.ResponseWriter, r *http.Request) {
	_, x := find(f.xpaths, r.PathValue("id"))
	if x == nil {
		http.NotFound(w, r)
		return
	}
	x["xpath"] = r.PostForm.Get("xpath")
	f.writeJSON(w, http.StatusOK, x)
}

func (f *fakeCDCS) deleteXPath(w http.ResponseWriter, r *http.Request) {
	i, _ := find(f.xpaths, r.PathValue("id"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	f.xpaths = append(f.xpaths[:i], f.xpaths[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}
