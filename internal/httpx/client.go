// Package httpx constructs the HTTP clients shared by the CRM, mail
// vendor, and chat integrations, and validates vendor-issued upload
// targets before any file content is streamed to them.
package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lotworks/dunner/errors"
)

const maxRedirects = 10

// New returns an HTTP client with the shared transport settings and a
// redirect cap. All integrations build their client here so timeout and
// connection behavior stay uniform across the run.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.Newf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// TargetPolicy relaxes upload target validation. The zero value is the
// production policy: https only, no localhost, no embedded credentials.
type TargetPolicy struct {
	AllowHTTP  bool // permit plain http targets (tests only)
	AllowLocal bool // permit localhost targets (tests only)
}

// ValidateUploadURL checks a vendor-issued upload target with the
// production policy. Signed upload URLs arrive inside API response
// bodies; they are the only URLs the tool requests that an operator
// never configured, so they get scheme and host checks before any
// file content goes out.
func ValidateUploadURL(raw string) (*url.URL, error) {
	return ValidateUploadURLWithPolicy(raw, TargetPolicy{})
}

// ValidateUploadURLWithPolicy checks an upload target against the given
// policy.
func ValidateUploadURLWithPolicy(raw string, policy TargetPolicy) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid upload URL")
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "https":
	case "http":
		if !policy.AllowHTTP {
			return nil, errors.Newf("upload URL scheme %q not allowed (https only)", u.Scheme)
		}
	default:
		return nil, errors.Newf("upload URL scheme %q not allowed (https only)", u.Scheme)
	}

	if u.User != nil {
		// Could be credential injection or URL confusion: https://evil.com@host/
		return nil, errors.New("upload URL contains embedded credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return nil, errors.New("upload URL missing hostname")
	}
	if !policy.AllowLocal && isLocalhost(hostname) {
		return nil, errors.Newf("upload URL points at %s", hostname)
	}

	return u, nil
}

// isLocalhost checks for localhost variants
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}
