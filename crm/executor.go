// Package crm talks to the CRM's REST API: a rate-aware request
// executor, cursor pagination over the search endpoint, typed detail
// and write calls, the custom-field registry, and two-phase file
// uploads. Everything above it (campaign engine, workflows) sees typed
// results and never a raw HTTP status.
package crm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/internal/httpx"
	"github.com/lotworks/dunner/logger"
)

// Request describes one API call. Body is marshaled to JSON when non-nil;
// Query is appended to the URL. Path may be absolute or relative to the
// executor's base URL.
type Request struct {
	Method string
	Path   string
	Body   interface{}
	Query  url.Values
}

// Response is a definitive success response: status 200, 201 or 204 with
// the raw body. Rate limiting and transient failures never surface here.
type Response struct {
	Status int
	Body   []byte
}

// Empty reports whether the response carried no body, as a 204 does.
func (r *Response) Empty() bool {
	return r == nil || len(bytes.TrimSpace(r.Body)) == 0
}

// Executor issues single API calls and absorbs rate-limit and transient
// network failures by blocking and retrying. Callers only ever see a
// definitive response or a non-retryable error.
type Executor struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	pacing     config.PacingConfig
	log        *zap.SugaredLogger
	verbosity  int

	timeNow func() time.Time
	sleep   func(time.Duration)
}

// NewExecutor creates an executor for one CRM account with real time.
func NewExecutor(account config.CRMConfig, pacing config.PacingConfig) *Executor {
	return NewExecutorWithClock(account, pacing, time.Now, time.Sleep)
}

// NewExecutorWithClock creates an executor with an injectable clock and
// sleep (for testing).
func NewExecutorWithClock(account config.CRMConfig, pacing config.PacingConfig, timeNow func() time.Time, sleep func(time.Duration)) *Executor {
	return &Executor{
		httpClient: httpx.New(account.Timeout()),
		baseURL:    strings.TrimRight(account.BaseURL, "/"),
		authHeader: basicAuth(account.APIKey),
		pacing:     pacing,
		log:        logger.ComponentLogger("crm.exec"),
		timeNow:    timeNow,
		sleep:      sleep,
	}
}

// SetHTTPClient allows overriding the HTTP client for testing.
func (e *Executor) SetHTTPClient(client *http.Client) {
	e.httpClient = client
}

// SetVerbosity controls per-call logging detail.
func (e *Executor) SetVerbosity(v int) {
	e.verbosity = v
}

// basicAuth builds the Authorization header value for an "apikey:" pair.
func basicAuth(apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"))
}

// Do executes one request, blocking through rate limiting and transient
// network failures until a definitive response or a non-retryable error
// is obtained. A 4xx/5xx other than 429 returns an *errors.APIError; the
// caller decides whether to skip, log, or escalate.
//
// Retries are unbounded by default, matching the batch-job preference
// for eventual completion over fast-fail. pacing.max_attempts > 0 caps
// them.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "marshaling request body")
		}
		if logger.ShouldLogBodies(e.verbosity) {
			e.log.Debugw("request body", logger.FieldPath, req.Path, "body", string(data))
		}
		payload = data
	}

	attempt := 0
	for {
		attempt++
		if e.pacing.MaxAttempts > 0 && attempt > e.pacing.MaxAttempts {
			return nil, errors.Newf("%s %s: gave up after %d attempts", req.Method, req.Path, e.pacing.MaxAttempts)
		}

		status, header, body, err := e.send(ctx, req, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network-level failure. Wait the fixed interval and try again.
			if logger.ShouldOutput(e.verbosity, logger.OutputHTTPCalls) {
				e.log.Debugw("request failed, retrying",
					logger.FieldMethod, req.Method,
					logger.FieldPath, req.Path,
					logger.FieldAttempt, attempt,
					logger.FieldError, err)
			}
			e.sleep(e.pacing.TransientRetry())
			continue
		}

		if status == http.StatusTooManyRequests {
			hint, source := waitHint(header, body)
			wait := hint + e.pacing.RateBuffer()
			if logger.ShouldOutput(e.verbosity, logger.OutputRateWaits) {
				e.log.Debugw("rate limited, waiting",
					logger.FieldMethod, req.Method,
					logger.FieldPath, req.Path,
					logger.FieldWait, wait.Seconds(),
					"source", source,
					logger.FieldAttempt, attempt)
			}
			e.sleep(wait)
			continue
		}

		if !isSuccess(status) {
			return nil, errors.NewAPIError(req.Method, req.Path, status, body)
		}

		if logger.ShouldOutput(e.verbosity, logger.OutputHTTPCalls) {
			e.log.Debugw("request ok",
				logger.FieldMethod, req.Method,
				logger.FieldPath, req.Path,
				logger.FieldStatus, status,
				logger.FieldAttempt, attempt)
		}
		return &Response{Status: status, Body: body}, nil
	}
}

// send performs one network round trip, rebuilding the request each time
// so retries never reuse a consumed body.
func (e *Executor) send(ctx context.Context, req Request, payload []byte) (int, http.Header, []byte, error) {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = e.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reqBody)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "building request")
	}
	httpReq.Header.Set("Authorization", e.authHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	if logger.ShouldLogBodies(e.verbosity) {
		e.log.Debugw("response body", logger.FieldPath, req.Path, logger.FieldStatus, resp.StatusCode, "body", string(body))
	}
	return resp.StatusCode, resp.Header, body, nil
}

// isSuccess reports whether the API signaled success. The API uses 200,
// 201 and 204 exclusively; any other 2xx is unexpected and treated as an
// error.
func isSuccess(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true
	}
	return false
}
