package cdcs

import (
	"context"
)

// Execute runs a listing request through the pagination contract.
//
// A positive page fetches just that page with ?page=N and returns its
// results verbatim. Page zero fetches everything: the first response is
// returned directly when it already holds the whole count, otherwise pages
// 2, 3, ... follow while next is set and the concatenation must match the
// reported count. Pages are fetched strictly in order, one at a time.
//
// Under a v2 server the first response is the full result set. A negative
// page fails with ErrRange.
func (c *Client) Execute(ctx context.Context, req *Request, page int) (Table, error) {
	return c.execute(ctx, "Execute", req, page)
}

func (c *Client) execute(ctx context.Context, op string, req *Request, page int) (Table, error) {
	if page < 0 {
		return nil, newError(op, ErrRange, "page must be non-negative, got %d", page)
	}
	ctx = startOperation(ctx)
	strategy := c.strategy()

	if page > 0 {
		p, err := c.fetchPage(ctx, op, strategy, req.withPage(page))
		if err != nil {
			return nil, err
		}
		c.emit(ctx, Event{Kind: EventPageFetched, Name: req.Path, Page: page, Fetched: len(p.Results), Total: p.Count})
		return p.Results, nil
	}

	p, err := c.fetchPage(ctx, op, strategy, req)
	if err != nil {
		return nil, err
	}
	results := p.Results
	c.emit(ctx, Event{Kind: EventPageFetched, Name: req.Path, Page: 1, Fetched: len(results), Total: p.Count})

	if !strategy.Paginated() || len(results) == p.Count {
		return results, nil
	}

	total := p.Count
	for n := 2; p.Next != nil; n++ {
		p, err = c.fetchPage(ctx, op, strategy, req.withPage(n))
		if err != nil {
			return nil, err
		}
		results = append(results, p.Results...)
		total = p.Count
		c.emit(ctx, Event{Kind: EventPageFetched, Name: req.Path, Page: n, Fetched: len(results), Total: total})
	}

	if len(results) != total {
		return nil, newError(op, ErrProtocolInvariant, "%s returned %d results but reported %d", req.Path, len(results), total)
	}
	return results, nil
}

func (c *Client) fetchPage(ctx context.Context, op string, strategy ProtocolStrategy, req *Request) (*Page, error) {
	resp, err := c.call(ctx, op, req)
	if err != nil {
		return nil, err
	}
	p, err := strategy.DecodeListing(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Err: ErrFormat, Msg: err.Error()}
	}
	c.logger.Debug("fetched page", "path", req.Path, "page", req.Query.Get("page"), "rows", len(p.Results), "count", p.Count)
	return p, nil
}
