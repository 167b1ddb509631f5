package crm

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// defaultRateReset is the wait when a 429 carries no usable hint.
const defaultRateReset = 5 * time.Second

// waitHint resolves how long to wait before retrying a throttled call,
// checking signals in priority order: the Retry-After header (seconds,
// possibly fractional), the RateLimit header's reset key, a rate_reset
// field in the body, then a fixed default. The returned source names
// which signal won, for logging.
func waitHint(header http.Header, body []byte) (time.Duration, string) {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return secondsToWait(secs), "retry-after"
		}
	}

	if v := header.Get("RateLimit"); v != "" {
		if wait, ok := parseRateLimitReset(v); ok {
			return wait, "ratelimit"
		}
	}

	if wait, ok := bodyRateReset(body); ok {
		return wait, "body"
	}

	return defaultRateReset, "default"
}

// parseRateLimitReset extracts the reset value from a header shaped like
// "limit=160, remaining=0, reset=2.5; window=10". Values may carry a
// semicolon-delimited suffix, which is dropped.
func parseRateLimitReset(header string) (time.Duration, bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "reset") {
			continue
		}
		value = strings.TrimSpace(value)
		if semi := strings.Index(value, ";"); semi >= 0 {
			value = strings.TrimSpace(value[:semi])
		}
		secs, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return secondsToWait(secs), true
	}
	return 0, false
}

// bodyRateReset reads a rate_reset hint embedded in the 429 body.
func bodyRateReset(body []byte) (time.Duration, bool) {
	if len(body) == 0 {
		return 0, false
	}
	var hint struct {
		RateReset *float64 `json:"rate_reset"`
	}
	if err := json.Unmarshal(body, &hint); err != nil || hint.RateReset == nil {
		return 0, false
	}
	return secondsToWait(*hint.RateReset), true
}

// secondsToWait converts a fractional-seconds hint to a duration,
// clamping negatives to zero. The wait hint is never negative; the
// fixed buffer on top guards the window boundary.
func secondsToWait(secs float64) time.Duration {
	if secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
