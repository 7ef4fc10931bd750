package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/spf13/afero"
)

// XSLTQuery filters stored transformations. The server lists them all and
// the filter is applied locally.
type XSLTQuery struct {
	Name     string
	Filename string
}

// XSLTs lists stored transformations.
func (c *Client) XSLTs(ctx context.Context, q XSLTQuery) (Table, error) {
	t, err := c.list(ctx, "XSLTs", &Request{Method: http.MethodGet, Path: "/rest/xslt/"})
	if err != nil {
		return nil, err
	}
	if q.Name != "" {
		t = t.Where("name", q.Name)
	}
	if q.Filename != "" {
		t = t.Where("filename", q.Filename)
	}
	return t, nil
}

// XSLT returns the single transformation matching q.
func (c *Client) XSLT(ctx context.Context, q XSLTQuery) (Record, error) {
	const op = "XSLT"
	t, err := c.XSLTs(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolveOne(op, "xslt", t, criteria("name", q.Name, "filename", q.Filename))
}

// XSLTUpload describes a new transformation. Name defaults to the file
// stem and Filename to Name + ".xsl".
type XSLTUpload struct {
	Name     string
	Filename string
	Content  any
}

// UploadXSLT stores a transformation and returns its id.
func (c *Client) UploadXSLT(ctx context.Context, up XSLTUpload) (ID, error) {
	const op = "UploadXSLT"
	ctx = startOperation(ctx)

	name, filename, content := up.Name, up.Filename, up.Content
	switch {
	case filename != "":
		if content == nil {
			b, err := c.readFile(op, filename)
			if err != nil {
				return ID{}, err
			}
			content = b
		}
		if name == "" {
			name = fileStem(filename)
		}
		filename = filepath.Base(filename)
	case name != "":
		filename = name + ".xsl"
	default:
		return ID{}, newError(op, ErrFormat, "filename or name must be given")
	}
	if content == nil {
		return ID{}, newError(op, ErrFormat, "filename or content must be given")
	}
	b, _, err := EncodeContent(content)
	if err != nil {
		return ID{}, err
	}

	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/rest/xslt/",
		Form:   url.Values{"name": {name}, "filename": {filename}, "content": {string(b)}},
	})
	if err != nil {
		return ID{}, err
	}
	id := r.ID()
	c.logger.Info("xslt uploaded", "name", name, "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "xslt", ID: id, Name: name})
	return id, nil
}

// XSLTUpdate changes a stored transformation.
//
// When XSLT is set, Name and Filename are aliases of NewName and
// NewFilename. Otherwise Name and Filename locate the transformation.
type XSLTUpdate struct {
	XSLT     EntityRef
	Name     string
	Filename string

	NewName     string
	NewFilename string
	Content     any
}

// UpdateXSLT patches the fields that are set.
func (c *Client) UpdateXSLT(ctx context.Context, up XSLTUpdate) error {
	const op = "UpdateXSLT"
	ctx = startOperation(ctx)

	var id ID
	if !up.XSLT.IsZero() {
		if up.Name != "" {
			if up.NewName != "" {
				return newError(op, ErrConflict, "name and new name are aliases when the xslt is given")
			}
			up.NewName = up.Name
		}
		if up.Filename != "" {
			if up.NewFilename != "" {
				return newError(op, ErrConflict, "filename and new filename are aliases when the xslt is given")
			}
			up.NewFilename = up.Filename
		}
		r, err := resolveRef(op, "xslt", up.XSLT, func(name string) (Record, error) {
			return c.XSLT(ctx, XSLTQuery{Name: name})
		})
		if err != nil {
			return err
		}
		id = r.ID()
	} else {
		r, err := c.XSLT(ctx, XSLTQuery{Name: up.Name, Filename: up.Filename})
		if err != nil {
			return err
		}
		id = r.ID()
	}

	form := url.Values{}
	content := up.Content
	if up.NewFilename != "" {
		if content == nil {
			if ok, _ := afero.Exists(c.fs, up.NewFilename); ok {
				b, err := c.readFile(op, up.NewFilename)
				if err != nil {
					return err
				}
				content = b
			}
		}
		form.Set("filename", filepath.Base(up.NewFilename))
	}
	if up.NewName != "" {
		form.Set("name", up.NewName)
	}
	if content != nil {
		b, _, err := EncodeContent(content)
		if err != nil {
			return err
		}
		form.Set("content", string(b))
	}
	if len(form) == 0 {
		return newError(op, ErrFormat, "nothing to update")
	}

	if _, err := c.call(ctx, op, &Request{Method: http.MethodPatch, Path: fmt.Sprintf("/rest/xslt/%s/", id), Form: form}); err != nil {
		return err
	}
	c.logger.Info("xslt updated", "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityUpdated, Entity: "xslt", ID: id, Name: up.NewName})
	return nil
}

// XSLTSelector identifies one transformation by XSLT or by Name/Filename.
type XSLTSelector struct {
	XSLT     EntityRef
	Name     string
	Filename string
}

// DeleteXSLT deletes one transformation.
func (c *Client) DeleteXSLT(ctx context.Context, sel XSLTSelector) error {
	const op = "DeleteXSLT"
	ctx = startOperation(ctx)

	hasFilter := sel.Name != "" || sel.Filename != ""
	if err := exclusive(op, map[string]bool{"xslt": !sel.XSLT.IsZero(), "name/filename": hasFilter}); err != nil {
		return err
	}

	var r Record
	var err error
	if !sel.XSLT.IsZero() {
		r, err = resolveRef(op, "xslt", sel.XSLT, func(name string) (Record, error) {
			return c.XSLT(ctx, XSLTQuery{Name: name})
		})
	} else {
		r, err = c.XSLT(ctx, XSLTQuery{Name: sel.Name, Filename: sel.Filename})
	}
	if err != nil {
		return err
	}

	id := r.ID()
	if _, err := c.call(ctx, op, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/rest/xslt/%s/", id)}); err != nil {
		return err
	}
	c.logger.Info("xslt deleted", "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityDeleted, Entity: "xslt", ID: id, Name: r.String("name")})
	return nil
}
