package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AutoSetPID reports whether the server assigns PIDs to records on upload.
func (c *Client) AutoSetPID(ctx context.Context) (bool, error) {
	const op = "AutoSetPID"
	r, err := c.callRecord(ctx, op, &Request{Method: http.MethodGet, Path: "/pid/rest/settings"})
	if err != nil {
		return false, err
	}
	v, ok := r["auto_set_pid"].(bool)
	if !ok {
		return false, newError(op, ErrFormat, "auto_set_pid missing from settings")
	}
	return v, nil
}

// SetAutoSetPID changes the auto_set_pid setting.
func (c *Client) SetAutoSetPID(ctx context.Context, on bool) error {
	const op = "SetAutoSetPID"
	ctx = startOperation(ctx)

	if _, err := c.call(ctx, op, &Request{
		Method: http.MethodPatch,
		Path:   "/pid/rest/settings/",
		Form:   url.Values{"auto_set_pid": {formBool(on)}},
	}); err != nil {
		return err
	}
	c.logger.Info("auto_set_pid changed", "value", on)
	c.emit(ctx, Event{Kind: EventSettingChanged, Name: "auto_set_pid", Detail: formBool(on)})
	return nil
}

// WithAutoSetPIDOff turns auto_set_pid off while fn runs and back on
// afterwards, also when fn fails. Use it around bulk uploads of records that
// already carry PIDs.
func (c *Client) WithAutoSetPIDOff(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx = startOperation(ctx)
	if err := c.SetAutoSetPID(ctx, false); err != nil {
		return err
	}
	defer func() {
		if restoreErr := c.SetAutoSetPID(ctx, true); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()
	return fn(ctx)
}

// PIDXPaths lists PID xpaths, optionally for one template.
func (c *Client) PIDXPaths(ctx context.Context, template EntityRef) (Table, error) {
	const op = "PIDXPaths"

	var tmplID ID
	if !template.IsZero() {
		tmpl, err := c.resolveTemplate(ctx, op, template)
		if err != nil {
			return nil, err
		}
		tmplID = tmpl.ID()
	}

	t, err := c.list(ctx, op, &Request{Method: http.MethodGet, Path: "/pid/rest/settings/xpath/"})
	if err != nil {
		return nil, err
	}
	if !tmplID.IsZero() {
		t = t.Filter(func(r Record) bool { return r.IDField("template").Equal(tmplID) })
	}
	return t, nil
}

// PIDXPath returns the xpath assigned to one template.
func (c *Client) PIDXPath(ctx context.Context, template EntityRef) (Record, error) {
	const op = "PIDXPath"
	t, err := c.PIDXPaths(ctx, template)
	if err != nil {
		return nil, err
	}
	return resolveOne(op, "pid xpath", t, criteria("template", refLabel(template)))
}

// UploadPIDXPath assigns an xpath to a template that has none.
func (c *Client) UploadPIDXPath(ctx context.Context, template EntityRef, xpath string) (ID, error) {
	const op = "UploadPIDXPath"
	ctx = startOperation(ctx)

	tmpl, err := c.resolveTemplate(ctx, op, template)
	if err != nil {
		return ID{}, err
	}
	existing, err := c.PIDXPaths(ctx, ByEntity(tmpl))
	if err != nil {
		return ID{}, err
	}
	if len(existing) > 0 {
		return ID{}, newError(op, ErrConflict, "template %s already has a pid xpath", tmpl.ID())
	}

	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/pid/rest/settings/xpath/",
		Form:   url.Values{"template": {tmpl.ID().String()}, "xpath": {xpath}},
	})
	if err != nil {
		return ID{}, err
	}
	id := r.ID()
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "pid xpath", ID: id, Name: xpath})
	return id, nil
}

// UpdatePIDXPath changes the xpath assigned to a template.
func (c *Client) UpdatePIDXPath(ctx context.Context, template EntityRef, xpath string) error {
	const op = "UpdatePIDXPath"
	ctx = startOperation(ctx)

	current, err := c.PIDXPath(ctx, template)
	if err != nil {
		return err
	}
	id := current.ID()
	if _, err := c.call(ctx, op, &Request{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("/pid/rest/settings/xpath/%s/", id),
		Form:   url.Values{"xpath": {xpath}},
	}); err != nil {
		return err
	}
	c.emit(ctx, Event{Kind: EventEntityUpdated, Entity: "pid xpath", ID: id, Name: xpath})
	return nil
}

// DeletePIDXPath removes the xpath assigned to a template.
func (c *Client) DeletePIDXPath(ctx context.Context, template EntityRef) error {
	const op = "DeletePIDXPath"
	ctx = startOperation(ctx)

	current, err := c.PIDXPath(ctx, template)
	if err != nil {
		return err
	}
	id := current.ID()
	if _, err := c.call(ctx, op, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/pid/rest/settings/xpath/%s/", id)}); err != nil {
		return err
	}
	c.emit(ctx, Event{Kind: EventEntityDeleted, Entity: "pid xpath", ID: id})
	return nil
}
