package cdcs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QueryCriteria filters a record search. Keyword and MongoQuery are
// mutually exclusive; with neither set every record matches.
type QueryCriteria struct {
	Templates []EntityRef
	Title     string

	// Keyword performs a full text search; all words must match.
	Keyword string

	// MongoQuery is a raw JSON string or any JSON-marshalable value.
	MongoQuery any

	// Page selects a single 1-based page. Zero fetches every page.
	Page int
}

// Query searches records and appends a template_title column.
func (c *Client) Query(ctx context.Context, q QueryCriteria) (Table, error) {
	const op = "Query"
	if q.Page < 0 {
		return nil, newError(op, ErrRange, "page must be non-negative, got %d", q.Page)
	}
	ctx = startOperation(ctx)

	if err := exclusive(op, map[string]bool{"keyword": q.Keyword != "", "mongo query": q.MongoQuery != nil}); err != nil {
		return nil, err
	}

	form := url.Values{}
	path := "/rest/data/query/"
	switch {
	case q.Keyword != "":
		path = "/rest/data/query/keyword/"
		form.Set("query", q.Keyword)
	case q.MongoQuery != nil:
		mq, err := mongoQuery(q.MongoQuery)
		if err != nil {
			return nil, &Error{Op: op, Err: ErrType, Msg: err.Error()}
		}
		form.Set("query", mq)
	default:
		form.Set("query", "{}")
	}

	if len(q.Templates) > 0 {
		ids := make([]ID, 0, len(q.Templates))
		for _, ref := range q.Templates {
			tmpl, err := c.resolveTemplate(ctx, op, ref)
			if err != nil {
				return nil, err
			}
			ids = append(ids, tmpl.ID())
		}
		filter, err := templatesFilter(c.strategy(), ids)
		if err != nil {
			return nil, &Error{Op: op, Err: ErrType, Msg: err.Error()}
		}
		form.Set("templates", filter)
	}
	if q.Title != "" {
		form.Set("title", q.Title)
	}

	records, err := c.Execute(ctx, &Request{Method: http.MethodPost, Path: path, Form: form}, q.Page)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if err := c.addTemplateTitles(ctx, records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// templatesFilter renders [{"id": ...}, ...] with ids typed for the strategy.
func templatesFilter(s ProtocolStrategy, ids []ID) (string, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		v, err := json.Marshal(s.TemplateRef(id))
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf(`{"id": %s}`, v)
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func mongoQuery(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("mongo query is not JSON-marshalable: %w", err)
	}
	return string(b), nil
}

// addTemplateTitles maps each record's template id to its manager title.
// Templates unknown to the active global managers get an empty title.
func (c *Client) addTemplateTitles(ctx context.Context, records Table) error {
	managers, err := c.TemplateManagers(ctx, TemplateManagerQuery{})
	if err != nil {
		return err
	}
	titles := map[string]string{}
	for _, mr := range managers {
		var m TemplateManager
		if err := mr.Decode(&m); err != nil {
			return &Error{Op: "Query", Err: ErrFormat, Msg: err.Error()}
		}
		for _, v := range m.Versions {
			titles[v.String()] = m.Title
		}
	}
	for _, r := range records {
		r["template_title"] = titles[r.IDField("template").String()]
	}
	return nil
}
