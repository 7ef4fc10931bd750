package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// TemplateManagerQuery filters template managers.
type TemplateManagerQuery struct {
	Title string
	// Disabled lists disabled managers instead of active ones.
	Disabled bool
	// UserOnly lists the caller's own managers instead of global ones.
	UserOnly bool
}

func (q TemplateManagerQuery) request() *Request {
	path := "/rest/template-version-manager/global/"
	if q.UserOnly {
		path = "/rest/template-version-manager/user/"
	}
	params := url.Values{}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Disabled {
		params.Set("is_disabled", formBool(true))
	}
	return &Request{Method: http.MethodGet, Path: path, Query: params}
}

// TemplateManagers lists template managers.
func (c *Client) TemplateManagers(ctx context.Context, q TemplateManagerQuery) (Table, error) {
	return c.list(ctx, "TemplateManagers", q.request())
}

// TemplateManager returns the single manager matching q.
func (c *Client) TemplateManager(ctx context.Context, q TemplateManagerQuery) (Record, error) {
	const op = "TemplateManager"
	t, err := c.TemplateManagers(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolveOne(op, "template manager", t, criteria("title", q.Title))
}

// templateManager resolves ref into a typed manager. ByName matches the
// title among managers in the given disabled state.
func (c *Client) templateManager(ctx context.Context, op string, ref EntityRef, disabled bool) (*TemplateManager, error) {
	var r Record
	var err error
	switch ref.kind {
	case refName:
		r, err = c.TemplateManager(ctx, TemplateManagerQuery{Title: ref.name, Disabled: disabled})
	case refID:
		var t Table
		t, err = c.TemplateManagers(ctx, TemplateManagerQuery{Disabled: disabled})
		if err == nil {
			r, err = resolveOne(op, "template manager", t.Where("id", ref.id), criteria("id", ref.id.String()))
		}
	case refEntity:
		r = ref.entity
	default:
		err = newError(op, ErrFormat, "template manager reference is required")
	}
	if err != nil {
		return nil, err
	}

	var m TemplateManager
	if err := r.Decode(&m); err != nil {
		return nil, &Error{Op: op, Err: ErrFormat, Msg: err.Error()}
	}
	return &m, nil
}

// TemplateQuery filters templates.
type TemplateQuery struct {
	Title    string
	Disabled bool
	UserOnly bool
	// AllVersions returns every version instead of only current ones.
	AllVersions bool
}

// Templates lists templates, each carrying its manager's title. One request
// is made per template version returned.
func (c *Client) Templates(ctx context.Context, q TemplateQuery) (Table, error) {
	const op = "Templates"

	managers, err := c.TemplateManagers(ctx, TemplateManagerQuery{Title: q.Title, Disabled: q.Disabled, UserOnly: q.UserOnly})
	if err != nil {
		return nil, err
	}

	templates := Table{}
	for _, mr := range managers {
		var m TemplateManager
		if err := mr.Decode(&m); err != nil {
			return nil, &Error{Op: op, Err: ErrFormat, Msg: err.Error()}
		}
		ids := []ID{m.Current}
		if q.AllVersions {
			ids = m.Versions
		}
		for _, id := range ids {
			r, err := c.callRecord(ctx, op, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/rest/template/%s/", id)})
			if err != nil {
				return nil, err
			}
			r["title"] = m.Title
			templates = append(templates, r)
		}
	}
	return templates, nil
}

// Template returns the single template matching q.
func (c *Client) Template(ctx context.Context, q TemplateQuery) (Record, error) {
	const op = "Template"
	t, err := c.Templates(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolveOne(op, "template", t, criteria("title", q.Title))
}

// resolveTemplate resolves a template reference. ByName matches the title of
// a current template version.
func (c *Client) resolveTemplate(ctx context.Context, op string, ref EntityRef) (Record, error) {
	return resolveRef(op, "template", ref, func(title string) (Record, error) {
		return c.Template(ctx, TemplateQuery{Title: title})
	})
}

// TemplateTitles lists the titles of every active global template.
func (c *Client) TemplateTitles(ctx context.Context) ([]string, error) {
	managers, err := c.TemplateManagers(ctx, TemplateManagerQuery{})
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(managers))
	for _, m := range managers {
		titles = append(titles, m.String("title"))
	}
	return titles, nil
}

// TemplateUpload describes a new template. Filename is read when Content is
// nil; Title defaults to the file's stem and Filename to Title + ".xsd".
type TemplateUpload struct {
	Filename string
	Content  any
	Title    string
	UserOnly bool
}

// UploadTemplate creates a new template. Titles must be unused.
func (c *Client) UploadTemplate(ctx context.Context, up TemplateUpload) (ID, error) {
	const op = "UploadTemplate"
	ctx = startOperation(ctx)

	filename, title, content, err := c.schemaPayload(op, up.Filename, up.Title, up.Content)
	if err != nil {
		return ID{}, err
	}

	titles, err := c.TemplateTitles(ctx)
	if err != nil {
		return ID{}, err
	}
	for _, t := range titles {
		if t == title {
			return ID{}, newError(op, ErrConflict, "template %q already exists", title)
		}
	}

	path := "/rest/template/global/"
	if up.UserOnly {
		path = "/rest/template/user/"
	}
	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   path,
		Form:   url.Values{"title": {title}, "filename": {filename}, "content": {string(content)}},
	})
	if err != nil {
		return ID{}, err
	}

	id := r.ID()
	c.logger.Info("template uploaded", "title", title, "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "template", ID: id, Name: title})
	return id, nil
}

// TemplateVersionUpload describes a new version of an existing template.
// Manager may be given instead of Title to skip the manager lookup.
type TemplateVersionUpload struct {
	Filename string
	Content  any
	Title    string
	Manager  EntityRef

	// KeepCurrent leaves the current version in place. By default the
	// uploaded version becomes current.
	KeepCurrent bool
	// DisableOld disables every other active version afterwards.
	DisableOld bool
}

// UploadTemplateVersion adds a version to an existing template.
func (c *Client) UploadTemplateVersion(ctx context.Context, up TemplateVersionUpload) (ID, error) {
	const op = "UploadTemplateVersion"
	ctx = startOperation(ctx)

	ref := up.Manager
	title := up.Title
	if ref.IsZero() {
		if title == "" && up.Filename != "" {
			title = fileStem(up.Filename)
		}
		if title == "" {
			return ID{}, newError(op, ErrFormat, "filename, title or manager must be given")
		}
		ref = ByName(title)
	} else if title != "" {
		return ID{}, newError(op, ErrConflict, "title and manager cannot both be given")
	}

	manager, err := c.templateManager(ctx, op, ref, false)
	if err != nil {
		return ID{}, err
	}

	filename, _, content, err := c.schemaPayload(op, up.Filename, manager.Title, up.Content)
	if err != nil {
		return ID{}, err
	}

	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/rest/template-version-manager/%s/version/", manager.ID),
		Form:   url.Values{"filename": {filename}, "content": {string(content)}},
	})
	if err != nil {
		return ID{}, err
	}
	id := r.ID()
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "template", ID: id, Name: manager.Title})

	if !up.KeepCurrent {
		if err := c.SetCurrentTemplate(ctx, VersionSelector{TemplateID: id}); err != nil {
			return id, err
		}
	}
	if up.DisableOld {
		for _, v := range manager.Versions {
			if manager.IsVersionDisabled(v) {
				continue
			}
			if v.Equal(manager.Current) && up.KeepCurrent {
				continue
			}
			if err := c.DisableTemplate(ctx, VersionSelector{TemplateID: v}); err != nil {
				return id, err
			}
		}
	}
	return id, nil
}

// schemaPayload applies the filename/title defaulting shared by template
// uploads and encodes the content.
func (c *Client) schemaPayload(op, filename, title string, content any) (string, string, []byte, error) {
	switch {
	case filename != "":
		if content == nil {
			b, err := c.readFile(op, filename)
			if err != nil {
				return "", "", nil, err
			}
			content = b
		}
		if title == "" {
			title = fileStem(filename)
		}
		filename = filepath.Base(filename)
	case title != "":
		filename = title + ".xsd"
	default:
		return "", "", nil, newError(op, ErrFormat, "filename or title must be given")
	}
	if content == nil {
		return "", "", nil, newError(op, ErrFormat, "filename or content must be given")
	}
	b, _, err := EncodeContent(content)
	if err != nil {
		return "", "", nil, err
	}
	return filename, title, b, nil
}

// DisableTemplateManager disables every version of a template.
func (c *Client) DisableTemplateManager(ctx context.Context, manager EntityRef) error {
	const op = "DisableTemplateManager"
	ctx = startOperation(ctx)

	m, err := c.templateManager(ctx, op, manager, false)
	if err != nil {
		return err
	}
	if m.IsDisabled {
		return newError(op, ErrConflict, "template manager %q already disabled", m.Title)
	}
	return c.patchTemplate(ctx, op, fmt.Sprintf("/rest/template-version-manager/%s/disable/", m.ID), "template manager", m.ID, "disabled")
}

// RestoreTemplateManager re-enables a disabled template. ByName looks among
// disabled managers.
func (c *Client) RestoreTemplateManager(ctx context.Context, manager EntityRef) error {
	const op = "RestoreTemplateManager"
	ctx = startOperation(ctx)

	m, err := c.templateManager(ctx, op, manager, true)
	if err != nil {
		return err
	}
	if !m.IsDisabled {
		return newError(op, ErrConflict, "template manager %q already active", m.Title)
	}
	return c.patchTemplate(ctx, op, fmt.Sprintf("/rest/template-version-manager/%s/restore/", m.ID), "template manager", m.ID, "restored")
}

// VersionSelector picks one template version either directly by TemplateID
// or by Manager plus a 1-based Version index.
type VersionSelector struct {
	Manager    EntityRef
	Version    int
	TemplateID ID
}

// selectVersion returns the template id and, when looked up, its manager.
func (c *Client) selectVersion(ctx context.Context, op string, sel VersionSelector) (ID, *TemplateManager, error) {
	if !sel.TemplateID.IsZero() {
		if err := exclusive(op, map[string]bool{
			"template id": true,
			"manager":     !sel.Manager.IsZero(),
		}); err != nil {
			return ID{}, nil, err
		}
		if sel.Version != 0 {
			return ID{}, nil, newError(op, ErrConflict, "template id and version cannot both be given")
		}
		return sel.TemplateID, nil, nil
	}
	if sel.Manager.IsZero() {
		return ID{}, nil, newError(op, ErrFormat, "manager or template id must be given")
	}
	if sel.Version == 0 {
		return ID{}, nil, newError(op, ErrFormat, "version is required with a manager")
	}
	m, err := c.templateManager(ctx, op, sel.Manager, false)
	if err != nil {
		return ID{}, nil, err
	}
	id, err := m.VersionID(sel.Version)
	if err != nil {
		return ID{}, nil, &Error{Op: op, Err: ErrRange, Msg: err.Error()}
	}
	return id, m, nil
}

// DisableTemplate disables a non-current template version.
func (c *Client) DisableTemplate(ctx context.Context, sel VersionSelector) error {
	const op = "DisableTemplate"
	ctx = startOperation(ctx)

	id, m, err := c.selectVersion(ctx, op, sel)
	if err != nil {
		return err
	}
	if m != nil {
		if id.Equal(m.Current) {
			return newError(op, ErrConflict, "cannot disable the current version of %q", m.Title)
		}
		if m.IsVersionDisabled(id) {
			return newError(op, ErrConflict, "version %d of %q already disabled", sel.Version, m.Title)
		}
	}
	return c.patchTemplate(ctx, op, fmt.Sprintf("/rest/template/version/%s/disable/", id), "template", id, "disabled")
}

// RestoreTemplate re-enables a disabled template version.
func (c *Client) RestoreTemplate(ctx context.Context, sel VersionSelector) error {
	const op = "RestoreTemplate"
	ctx = startOperation(ctx)

	id, m, err := c.selectVersion(ctx, op, sel)
	if err != nil {
		return err
	}
	if m != nil && !m.IsVersionDisabled(id) {
		return newError(op, ErrConflict, "version %d of %q already active", sel.Version, m.Title)
	}
	return c.patchTemplate(ctx, op, fmt.Sprintf("/rest/template/version/%s/restore/", id), "template", id, "restored")
}

// SetCurrentTemplate makes an active template version current.
func (c *Client) SetCurrentTemplate(ctx context.Context, sel VersionSelector) error {
	const op = "SetCurrentTemplate"
	ctx = startOperation(ctx)

	id, m, err := c.selectVersion(ctx, op, sel)
	if err != nil {
		return err
	}
	if m != nil {
		if id.Equal(m.Current) {
			return newError(op, ErrConflict, "version %d of %q is already current", sel.Version, m.Title)
		}
		if m.IsVersionDisabled(id) {
			return newError(op, ErrConflict, "version %d of %q is disabled", sel.Version, m.Title)
		}
	}
	return c.patchTemplate(ctx, op, fmt.Sprintf("/rest/template/version/%s/current/", id), "template", id, "set current")
}

func (c *Client) patchTemplate(ctx context.Context, op, path, entity string, id ID, action string) error {
	if _, err := c.call(ctx, op, &Request{Method: http.MethodPatch, Path: path}); err != nil {
		return err
	}
	c.logger.Info(entity+" "+action, "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityUpdated, Entity: entity, ID: id, Detail: action})
	return nil
}

func fileStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
