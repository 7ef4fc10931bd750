package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RecordQuery filters records by template and title.
type RecordQuery struct {
	Template EntityRef
	Title    string
}

// Records lists the caller's records. The template reference is resolved
// first and sent by id.
func (c *Client) Records(ctx context.Context, q RecordQuery) (Table, error) {
	const op = "Records"
	ctx = startOperation(ctx)

	params := url.Values{}
	if !q.Template.IsZero() {
		tmpl, err := c.resolveTemplate(ctx, op, q.Template)
		if err != nil {
			return nil, err
		}
		params.Set("template", tmpl.ID().String())
	}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	return c.Execute(ctx, &Request{Method: http.MethodGet, Path: "/rest/data/", Query: params}, 0)
}

// Record returns the single record matching q.
func (c *Client) Record(ctx context.Context, q RecordQuery) (Record, error) {
	const op = "Record"
	t, err := c.Records(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolveOne(op, "record", t, criteria("template", refLabel(q.Template), "title", q.Title))
}

// RecordSelector identifies one record either directly through Record or
// through the Template/Title filter, never both.
type RecordSelector struct {
	Record   EntityRef
	Template EntityRef
	Title    string
}

func (c *Client) selectRecord(ctx context.Context, op string, sel RecordSelector) (Record, error) {
	hasFilter := !sel.Template.IsZero() || sel.Title != ""
	if err := exclusive(op, map[string]bool{"record": !sel.Record.IsZero(), "template/title": hasFilter}); err != nil {
		return nil, err
	}
	if !sel.Record.IsZero() {
		return resolveRef(op, "record", sel.Record, func(title string) (Record, error) {
			return c.Record(ctx, RecordQuery{Title: title})
		})
	}
	if !hasFilter {
		return nil, newError(op, ErrFormat, "record or template/title must be given")
	}
	return c.Record(ctx, RecordQuery{Template: sel.Template, Title: sel.Title})
}

// RecordUpload describes a new record. Exactly one of Filename or Content
// is required; Title defaults to the file's stem.
type RecordUpload struct {
	Template EntityRef
	Filename string
	Content  any
	Title    string

	// SkipDuplicateCheck allows several records with one template and title.
	SkipDuplicateCheck bool

	// Workspace, when set, receives the new record.
	Workspace EntityRef
}

// UploadRecord creates a record and returns its id.
func (c *Client) UploadRecord(ctx context.Context, up RecordUpload) (ID, error) {
	const op = "UploadRecord"
	ctx = startOperation(ctx)

	content, title, err := c.recordPayload(op, up.Filename, up.Content, up.Title)
	if err != nil {
		return ID{}, err
	}
	if title == "" {
		return ID{}, newError(op, ErrFormat, "title must be given with content")
	}

	tmpl, err := c.resolveTemplate(ctx, op, up.Template)
	if err != nil {
		return ID{}, err
	}

	if !up.SkipDuplicateCheck {
		matches, err := c.Query(ctx, QueryCriteria{Templates: []EntityRef{ByEntity(tmpl)}, Title: title})
		if err != nil {
			return ID{}, err
		}
		if len(matches) > 0 {
			return ID{}, newError(op, ErrConflict, "record %q already exists for template %s", title, tmpl.ID())
		}
	}

	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/rest/data/",
		Form: url.Values{
			"title":       {title},
			"template":    {tmpl.ID().String()},
			"xml_content": {string(content)},
		},
	})
	if err != nil {
		return ID{}, err
	}
	id := r.ID()
	c.logger.Info("record uploaded", "title", title, "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "record", ID: id, Name: title})

	if !up.Workspace.IsZero() {
		if err := c.assignOne(ctx, op, up.Workspace, RecordTargets{IDs: []ID{id}}); err != nil {
			return id, err
		}
	}
	return id, nil
}

// RecordUpdate replaces a record's XML content.
type RecordUpdate struct {
	RecordSelector
	Filename  string
	Content   any
	Workspace EntityRef
}

// UpdateRecord replaces the content of one record.
func (c *Client) UpdateRecord(ctx context.Context, up RecordUpdate) error {
	const op = "UpdateRecord"
	ctx = startOperation(ctx)

	content, _, err := c.recordPayload(op, up.Filename, up.Content, "")
	if err != nil {
		return err
	}
	record, err := c.selectRecord(ctx, op, up.RecordSelector)
	if err != nil {
		return err
	}

	id := record.ID()
	if _, err := c.call(ctx, op, &Request{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("/rest/data/%s/", id),
		Form:   url.Values{"xml_content": {string(content)}},
	}); err != nil {
		return err
	}
	c.logger.Info("record updated", "title", record.String("title"), "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityUpdated, Entity: "record", ID: id, Name: record.String("title")})

	if !up.Workspace.IsZero() {
		return c.assignOne(ctx, op, up.Workspace, RecordTargets{IDs: []ID{id}})
	}
	return nil
}

// DeleteRecord deletes one record.
func (c *Client) DeleteRecord(ctx context.Context, sel RecordSelector) error {
	const op = "DeleteRecord"
	ctx = startOperation(ctx)

	record, err := c.selectRecord(ctx, op, sel)
	if err != nil {
		return err
	}
	id := record.ID()
	if _, err := c.call(ctx, op, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/rest/data/%s/", id)}); err != nil {
		return err
	}
	c.logger.Info("record deleted", "title", record.String("title"), "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityDeleted, Entity: "record", ID: id, Name: record.String("title")})
	return nil
}

// recordPayload loads and encodes record content. The returned title is
// the given one, or the file stem when reading from a file.
func (c *Client) recordPayload(op, filename string, content any, title string) ([]byte, string, error) {
	if err := exclusive(op, map[string]bool{"filename": filename != "", "content": content != nil}); err != nil {
		return nil, "", err
	}
	switch {
	case filename != "":
		b, err := c.readFile(op, filename)
		if err != nil {
			return nil, "", err
		}
		if title == "" {
			title = fileStem(filename)
		}
		return b, title, nil
	case content != nil:
		b, _, err := EncodeContent(content)
		if err != nil {
			return nil, "", err
		}
		return b, title, nil
	default:
		return nil, "", newError(op, ErrFormat, "filename or content must be given")
	}
}

// assignOne assigns a freshly written entity and surfaces its failure.
func (c *Client) assignOne(ctx context.Context, op string, workspace EntityRef, targets RecordTargets) error {
	result, err := c.AssignRecords(ctx, workspace, targets)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return &Error{Op: op, Err: err, Msg: "workspace assignment failed"}
	}
	return nil
}

func refLabel(r EntityRef) string {
	if r.IsZero() {
		return ""
	}
	if r.kind == refName {
		return r.name
	}
	return r.String()
}
