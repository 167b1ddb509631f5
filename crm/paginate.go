package crm

import (
	"context"

	"github.com/lotworks/dunner/logger"
)

// SearchOptions tunes a paginated search.
type SearchOptions struct {
	// Target stops pagination once at least this many records have
	// accumulated. Zero walks every page. The page that crosses the
	// threshold is kept whole, so the result may run slightly past
	// Target; callers that need an exact count truncate.
	Target int

	// Fields is the lead projection injected as _fields when the query
	// carries none of its own.
	Fields []string

	// PageSize caps each page via the query's limit key when the query
	// has none. Zero leaves the server default.
	PageSize int

	// OnPage, when set, is called after each page with the running
	// record count.
	OnPage func(total int)
}

// SearchAll walks the cursor chain and accumulates every record. The
// absence of a cursor is the only terminator: an empty page that still
// carries a cursor keeps the walk going. A shared limiter paces page
// fetches so long walks stay polite.
func (c *Client) SearchAll(ctx context.Context, query map[string]interface{}, opts SearchOptions) ([]LeadRef, error) {
	var all []LeadRef
	cursor := ""
	pages := 0
	for {
		if err := c.pages.Wait(ctx); err != nil {
			return all, err
		}
		payload := make(map[string]interface{}, len(query)+3)
		for k, v := range query {
			payload[k] = v
		}
		if cursor != "" {
			payload["cursor"] = cursor
		}
		if len(opts.Fields) > 0 {
			if _, ok := payload["_fields"]; !ok {
				payload["_fields"] = map[string]interface{}{"lead": opts.Fields}
			}
		}
		if opts.PageSize > 0 {
			if _, ok := payload["limit"]; !ok {
				payload["limit"] = opts.PageSize
			}
		}

		page, err := c.Search(ctx, payload)
		if err != nil {
			return all, err
		}
		pages++
		all = append(all, page.Data...)
		if logger.ShouldOutput(c.verbosity, logger.OutputPages) {
			c.log.Debugw("search page",
				"page", pages,
				"records", len(page.Data),
				"total", len(all),
				"more", page.HasMore())
		}
		if opts.OnPage != nil {
			opts.OnPage(len(all))
		}
		if opts.Target > 0 && len(all) >= opts.Target {
			return all, nil
		}
		if !page.HasMore() {
			return all, nil
		}
		cursor = page.Cursor
	}
}
