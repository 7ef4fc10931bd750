package cdcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/spf13/afero"
)

// Blobs lists blob metadata, optionally for one filename.
func (c *Client) Blobs(ctx context.Context, filename string) (Table, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("filename", filename)
	}
	return c.list(ctx, "Blobs", &Request{Method: http.MethodGet, Path: "/rest/blob/", Query: params})
}

// Blob returns one blob's metadata. ByName matches the filename.
func (c *Client) Blob(ctx context.Context, ref EntityRef) (Record, error) {
	const op = "Blob"
	if ref.kind == refID {
		return c.callRecord(ctx, op, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/rest/blob/%s", ref.id)})
	}
	return resolveRef(op, "blob", ref, func(filename string) (Record, error) {
		t, err := c.Blobs(ctx, filename)
		if err != nil {
			return nil, err
		}
		return resolveOne(op, "blob", t, criteria("filename", filename))
	})
}

// blobID resolves ref to an id without fetching metadata for ByID.
func (c *Client) blobID(ctx context.Context, ref EntityRef) (ID, error) {
	if ref.kind == refID && !ref.id.IsZero() {
		return ref.id, nil
	}
	r, err := c.Blob(ctx, ref)
	if err != nil {
		return ID{}, err
	}
	return r.ID(), nil
}

// BlobUpload describes a file to upload. Content is read from Filename on
// the client filesystem when nil.
type BlobUpload struct {
	Filename  string
	Content   []byte
	Workspace EntityRef
}

// UploadBlob stores a file and returns its download handle.
func (c *Client) UploadBlob(ctx context.Context, up BlobUpload) (string, error) {
	const op = "UploadBlob"
	ctx = startOperation(ctx)

	if up.Filename == "" {
		return "", newError(op, ErrFormat, "filename must be given")
	}
	content := up.Content
	if content == nil {
		b, err := c.readFile(op, up.Filename)
		if err != nil {
			return "", err
		}
		content = b
	}
	name := filepath.Base(up.Filename)

	r, err := c.callRecord(ctx, op, &Request{
		Method: http.MethodPost,
		Path:   "/rest/blob/",
		Form:   url.Values{"filename": {name}},
		Files:  []FormFile{{Field: "blob", Filename: name, Content: content}},
	})
	if err != nil {
		return "", err
	}

	var blob Blob
	if err := r.Decode(&blob); err != nil {
		return "", &Error{Op: op, Err: ErrFormat, Msg: err.Error()}
	}
	c.logger.Info("blob uploaded", "filename", blob.Filename, "id", blob.ID.String())
	c.emit(ctx, Event{Kind: EventEntityCreated, Entity: "blob", ID: blob.ID, Name: blob.Filename})

	if !up.Workspace.IsZero() {
		result, err := c.AssignBlobs(ctx, up.Workspace, BlobTargets{IDs: []ID{blob.ID}})
		if err != nil {
			return blob.Handle, err
		}
		if err := result.Err(); err != nil {
			return blob.Handle, &Error{Op: op, Err: err, Msg: "workspace assignment failed"}
		}
	}
	return blob.Handle, nil
}

// BlobContents downloads a blob's bytes.
func (c *Client) BlobContents(ctx context.Context, ref EntityRef) ([]byte, error) {
	const op = "BlobContents"
	id, err := c.blobID(ctx, ref)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, op, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/rest/blob/download/%s", id)})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadBlob saves a blob under its stored filename in dir and returns
// the written path.
func (c *Client) DownloadBlob(ctx context.Context, ref EntityRef, dir string) (string, error) {
	const op = "DownloadBlob"
	ctx = startOperation(ctx)

	blob, err := c.Blob(ctx, ref)
	if err != nil {
		return "", err
	}
	name := filepath.Base(blob.String("filename"))
	if name == "." || name == string(filepath.Separator) {
		return "", newError(op, ErrFormat, "blob %s has no filename", blob.ID())
	}

	content, err := c.BlobContents(ctx, ByEntity(blob))
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Op: op, Err: err, Msg: "failed to create directory"}
	}
	if err := afero.WriteFile(c.fs, path, content, 0o644); err != nil {
		return "", &Error{Op: op, Err: err, Msg: "failed to write blob"}
	}
	c.logger.Debug("blob downloaded", "id", blob.ID().String(), "path", path)
	return path, nil
}

// DeleteBlob deletes a blob.
func (c *Client) DeleteBlob(ctx context.Context, ref EntityRef) error {
	const op = "DeleteBlob"
	ctx = startOperation(ctx)

	id, err := c.blobID(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, op, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/rest/blob/%s", id)}); err != nil {
		return err
	}
	c.logger.Info("blob deleted", "id", id.String())
	c.emit(ctx, Event{Kind: EventEntityDeleted, Entity: "blob", ID: id})
	return nil
}
