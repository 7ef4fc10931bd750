package cdcs

import (
	"context"
	"net/http"
)

// GlobalWorkspaceTitle is the title of the server-wide public workspace.
const GlobalWorkspaceTitle = "Global Public Workspace"

// Workspaces lists workspaces visible to the caller, optionally narrowed to
// one title. The server has no title filter, so it is applied locally.
func (c *Client) Workspaces(ctx context.Context, title string) (Table, error) {
	t, err := c.list(ctx, "Workspaces", &Request{Method: http.MethodGet, Path: "/rest/workspace/"})
	if err != nil {
		return nil, err
	}
	if title != "" {
		t = t.Where("title", title)
	}
	return t, nil
}

// Workspace resolves a workspace reference. ByName matches the title.
func (c *Client) Workspace(ctx context.Context, ref EntityRef) (Record, error) {
	const op = "Workspace"
	return resolveRef(op, "workspace", ref, func(title string) (Record, error) {
		t, err := c.Workspaces(ctx, title)
		if err != nil {
			return nil, err
		}
		return resolveOne(op, "workspace", t, criteria("title", title))
	})
}

// GlobalWorkspace returns the Global Public Workspace.
func (c *Client) GlobalWorkspace(ctx context.Context) (Record, error) {
	return c.Workspace(ctx, ByName(GlobalWorkspaceTitle))
}
