package cdcs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
)

// AssignOutcome is the result of assigning one entity.
type AssignOutcome struct {
	ID  ID
	Err error
}

// AssignResult collects independent per-entity outcomes of a batch
// assignment, in request order.
type AssignResult struct {
	Workspace ID
	Outcomes  []AssignOutcome
}

// Succeeded returns the ids that were assigned.
func (r *AssignResult) Succeeded() []ID {
	var ids []ID
	for _, o := range r.Outcomes {
		if o.Err == nil {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Failed returns the outcomes that carry an error.
func (r *AssignResult) Failed() []AssignOutcome {
	var out []AssignOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Err aggregates every failure into one error, or nil.
func (r *AssignResult) Err() error {
	var result *multierror.Error
	for _, o := range r.Failed() {
		result = multierror.Append(result, fmt.Errorf("%s: %w", o.ID, o.Err))
	}
	return result.ErrorOrNil()
}

// RecordTargets selects records for assignment. Exactly one of Records, IDs
// or the Template/Title filter must be set.
type RecordTargets struct {
	Records  Table
	IDs      []ID
	Template EntityRef
	Title    string
}

// BlobTargets selects blobs for assignment. Exactly one of Blobs, IDs or
// Filename must be set.
type BlobTargets struct {
	Blobs    Table
	IDs      []ID
	Filename string
}

// AssignRecords moves records into a workspace, one request per record.
// A failed record does not stop the batch; inspect the result's outcomes.
func (c *Client) AssignRecords(ctx context.Context, workspace EntityRef, targets RecordTargets) (*AssignResult, error) {
	const op = "AssignRecords"
	ctx = startOperation(ctx)

	hasFilter := !targets.Template.IsZero() || targets.Title != ""
	if err := targetForms(op, targets.Records != nil, targets.IDs != nil, hasFilter); err != nil {
		return nil, err
	}

	ws, err := c.Workspace(ctx, workspace)
	if err != nil {
		return nil, err
	}

	ids := targets.IDs
	switch {
	case targets.Records != nil:
		ids = targets.Records.IDs()
	case hasFilter:
		records, err := c.Records(ctx, RecordQuery{Template: targets.Template, Title: targets.Title})
		if err != nil {
			return nil, err
		}
		ids = records.IDs()
	}

	return c.assign(ctx, "record", "/rest/data/%s/assign/%s", ws.ID(), ids), nil
}

// AssignBlobs moves blobs into a workspace, one request per blob.
func (c *Client) AssignBlobs(ctx context.Context, workspace EntityRef, targets BlobTargets) (*AssignResult, error) {
	const op = "AssignBlobs"
	ctx = startOperation(ctx)

	if err := targetForms(op, targets.Blobs != nil, targets.IDs != nil, targets.Filename != ""); err != nil {
		return nil, err
	}

	ws, err := c.Workspace(ctx, workspace)
	if err != nil {
		return nil, err
	}

	ids := targets.IDs
	switch {
	case targets.Blobs != nil:
		ids = targets.Blobs.IDs()
	case targets.Filename != "":
		blobs, err := c.Blobs(ctx, targets.Filename)
		if err != nil {
			return nil, err
		}
		ids = blobs.IDs()
	}

	return c.assign(ctx, "blob", "/rest/blob/%s/assign/%s", ws.ID(), ids), nil
}

func targetForms(op string, entities, ids, filter bool) error {
	n := 0
	for _, set := range []bool{entities, ids, filter} {
		if set {
			n++
		}
	}
	if n != 1 {
		return newError(op, ErrConflict, "exactly one of entities, ids or a filter must be given (got %d)", n)
	}
	return nil
}

func (c *Client) assign(ctx context.Context, entity, pathFmt string, workspace ID, ids []ID) *AssignResult {
	result := &AssignResult{Workspace: workspace, Outcomes: make([]AssignOutcome, 0, len(ids))}
	for _, id := range ids {
		path := fmt.Sprintf(pathFmt, id, workspace)
		_, err := c.call(ctx, "Assign", &Request{Method: http.MethodPatch, Path: path})
		result.Outcomes = append(result.Outcomes, AssignOutcome{ID: id, Err: err})
		if err != nil {
			c.logger.Warn("assignment failed", "entity", entity, "id", id.String(), "workspace", workspace.String(), "error", err)
			c.emit(ctx, Event{Kind: EventAssignFailed, Entity: entity, ID: id, Detail: workspace.String(), Err: err})
			continue
		}
		c.emit(ctx, Event{Kind: EventAssigned, Entity: entity, ID: id, Detail: workspace.String()})
	}
	return result
}
