package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
)

// Client is the typed surface over one CRM account. Every call goes
// through the rate-aware executor; reads decode with the soft-failure
// policy (malformed 2xx body is "no data", never an error), writes report
// success on status alone.
type Client struct {
	exec      *Executor
	pages     *rate.Limiter
	log       *zap.SugaredLogger
	verbosity int
}

// NewClient builds a client for one account.
func NewClient(account config.CRMConfig, pacing config.PacingConfig) *Client {
	return NewClientWithExecutor(NewExecutor(account, pacing), pacing)
}

// NewClientWithExecutor accepts a pre-built executor so tests can inject
// a fake clock.
func NewClientWithExecutor(exec *Executor, pacing config.PacingConfig) *Client {
	return &Client{
		exec:  exec,
		pages: rate.NewLimiter(rate.Limit(pacing.PagesPerSecond), 1),
		log:   logger.ComponentLogger("crm"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.exec.SetHTTPClient(client)
}

// SetVerbosity adjusts how much per-call detail is logged.
func (c *Client) SetVerbosity(v int) {
	c.verbosity = v
	c.exec.SetVerbosity(v)
}

// Search posts a query and returns a single page.
func (c *Client) Search(ctx context.Context, query map[string]interface{}) (SearchResult, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: "/data/search/", Body: query})
	if err != nil {
		return SearchResult{}, err
	}
	var page SearchResult
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		c.log.Debugw("search page did not decode, treating as empty",
			logger.FieldError, err)
		return SearchResult{}, nil
	}
	return page, nil
}

// LeadDetail fetches the full lead body.
func (c *Client) LeadDetail(ctx context.Context, leadID string) (DetailResult[Lead], error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/lead/" + leadID + "/"})
	if err != nil {
		return DetailResult[Lead]{}, err
	}
	return decodeDetail[Lead](c.log, resp)
}

// OpportunityDetail fetches the full opportunity body, including the
// flattened custom fields.
func (c *Client) OpportunityDetail(ctx context.Context, oppID string) (DetailResult[Opportunity], error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/opportunity/" + oppID + "/"})
	if err != nil {
		return DetailResult[Opportunity]{}, err
	}
	return decodeDetail[Opportunity](c.log, resp)
}

// ContactDetail fetches one contact.
func (c *Client) ContactDetail(ctx context.Context, contactID string) (DetailResult[Contact], error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/contact/" + contactID + "/"})
	if err != nil {
		return DetailResult[Contact]{}, err
	}
	return decodeDetail[Contact](c.log, resp)
}

// LeadOpportunities lists the opportunities attached to a lead.
func (c *Client) LeadOpportunities(ctx context.Context, leadID string) ([]Opportunity, error) {
	query := url.Values{"lead_id": {leadID}}
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/opportunity/", Query: query})
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []Opportunity `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		c.log.Debugw("opportunity list did not decode, treating as empty",
			"lead", leadID, logger.FieldError, err)
		return nil, nil
	}
	return body.Data, nil
}

// EmailAccounts lists the sending identities configured on the account.
func (c *Client) EmailAccounts(ctx context.Context) ([]EmailAccount, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/email_account/"})
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []EmailAccount `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		c.log.Debugw("email account list did not decode, treating as empty",
			logger.FieldError, err)
		return nil, nil
	}
	return body.Data, nil
}

// UpdateLead applies a partial update to a lead.
func (c *Client) UpdateLead(ctx context.Context, leadID string, fields map[string]interface{}) (WriteResult, error) {
	return c.write(ctx, Request{Method: http.MethodPut, Path: "/lead/" + leadID + "/", Body: fields})
}

// UpdateOpportunity applies a partial update to an opportunity.
func (c *Client) UpdateOpportunity(ctx context.Context, oppID string, fields map[string]interface{}) (WriteResult, error) {
	return c.write(ctx, Request{Method: http.MethodPut, Path: "/opportunity/" + oppID + "/", Body: fields})
}

// CreateNote records a note activity on a lead.
func (c *Client) CreateNote(ctx context.Context, leadID, noteHTML string) (WriteResult, error) {
	body := map[string]interface{}{
		"lead_id":   leadID,
		"note_html": noteHTML,
	}
	return c.write(ctx, Request{Method: http.MethodPost, Path: "/activity/note/", Body: body})
}

// SendEmail creates an outbound email activity and returns its id. An
// unreadable success body yields an empty id, not an error.
func (c *Client) SendEmail(ctx context.Context, draft EmailDraft) (string, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: "/activity/email/", Body: draft})
	if err != nil {
		return "", err
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		c.log.Debugw("email activity response did not decode",
			"lead", draft.LeadID, logger.FieldError, err)
		return "", nil
	}
	return body.ID, nil
}

// CustomFields returns the name-to-id mapping for one object type
// ("lead" or "opportunity").
func (c *Client) CustomFields(ctx context.Context, objectType string) (map[string]string, error) {
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "/custom_field/" + objectType + "/"})
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, errors.Wrapf(err, "custom field schema for %s did not decode", objectType)
	}
	fields := make(map[string]string, len(body.Data))
	for _, f := range body.Data {
		fields[f.Name] = f.ID
	}
	return fields, nil
}

func (c *Client) write(ctx context.Context, req Request) (WriteResult, error) {
	resp, err := c.exec.Do(ctx, req)
	if err != nil {
		return WriteResult{}, err
	}
	if !resp.Empty() && !json.Valid(resp.Body) {
		c.log.Debugw("write response body did not decode, write still counts",
			"path", req.Path, "status", resp.Status)
	}
	return WriteResult{OK: true, Status: resp.Status}, nil
}

func decodeDetail[T any](log *zap.SugaredLogger, resp *Response) (DetailResult[T], error) {
	var result DetailResult[T]
	if resp.Empty() {
		return result, nil
	}
	if err := json.Unmarshal(resp.Body, &result.Value); err != nil {
		log.Debugw("detail body did not decode, treating as no data",
			logger.FieldError, err)
		return DetailResult[T]{}, nil
	}
	result.Found = true
	return result, nil
}
