package cdcs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolStrategy captures how one server generation shapes requests and
// responses. The set is closed: v2Strategy and v3Strategy.
type ProtocolStrategy interface {
	// Name is "v2" or "v3".
	Name() string

	// Paginated reports whether list endpoints answer with a
	// {count, next, previous, results} envelope.
	Paginated() bool

	// TemplateRef converts a template id into the value embedded in
	// query filters: a string under v2 and an integer under v3.
	TemplateRef(id ID) any

	// DecodeListing parses a list response body.
	DecodeListing(body []byte) (*Page, error)

	sealed()
}

// Page is one decoded listing response.
type Page struct {
	Count    int
	Next     *string
	Previous *string
	Results  Table
}

type envelope struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []map[string]any `json:"results"`
}

type v2Strategy struct{}

func (v2Strategy) Name() string    { return "v2" }
func (v2Strategy) Paginated() bool { return false }
func (v2Strategy) sealed()         {}

func (v2Strategy) TemplateRef(id ID) any {
	return id.String()
}

// DecodeListing accepts a bare array. An envelope is tolerated and
// flattened to its results with no next page.
func (v2Strategy) DecodeListing(body []byte) (*Page, error) {
	page, err := decodeListing(body)
	if err != nil {
		return nil, err
	}
	page.Count = len(page.Results)
	page.Next, page.Previous = nil, nil
	return page, nil
}

type v3Strategy struct{}

func (v3Strategy) Name() string    { return "v3" }
func (v3Strategy) Paginated() bool { return true }
func (v3Strategy) sealed()         {}

func (v3Strategy) TemplateRef(id ID) any {
	if n, ok := id.Int(); ok {
		return n
	}
	return id.String()
}

// DecodeListing accepts the pagination envelope. Unpaginated endpoints that
// answer with a bare array decode as a single complete page.
func (v3Strategy) DecodeListing(body []byte) (*Page, error) {
	return decodeListing(body)
}

func decodeListing(body []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("failed to decode listing: %w", err)
		}
		t := tableFromMaps(rows)
		return &Page{Count: len(t), Results: t}, nil
	}

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &Page{
		Count:    env.Count,
		Next:     env.Next,
		Previous: env.Previous,
		Results:  tableFromMaps(env.Results),
	}, nil
}
