package crm

import (
	"net/http"
	"testing"
	"time"
)

func TestWaitHint(t *testing.T) {
	tests := []struct {
		name       string
		header     http.Header
		body       string
		want       time.Duration
		wantSource string
	}{
		{
			name:       "retry-after header",
			header:     http.Header{"Retry-After": {"2.5"}},
			want:       2500 * time.Millisecond,
			wantSource: "retry-after",
		},
		{
			name:       "retry-after wins over ratelimit header",
			header:     http.Header{"Retry-After": {"1.0"}, "Ratelimit": {"limit=100, remaining=0, reset=9"}},
			want:       time.Second,
			wantSource: "retry-after",
		},
		{
			name:       "ratelimit reset part",
			header:     http.Header{"Ratelimit": {"limit=100, remaining=0, reset=7.5"}},
			want:       7500 * time.Millisecond,
			wantSource: "ratelimit",
		},
		{
			name:       "ratelimit reset with window suffix",
			header:     http.Header{"Ratelimit": {"limit=100, remaining=0, reset=3;w=60"}},
			want:       3 * time.Second,
			wantSource: "ratelimit",
		},
		{
			name:       "malformed reset falls through to body",
			header:     http.Header{"Ratelimit": {"reset=soon"}},
			body:       `{"rate_reset": 4.25}`,
			want:       4250 * time.Millisecond,
			wantSource: "body",
		},
		{
			name:       "body rate_reset",
			body:       `{"rate_reset": 1.5}`,
			want:       1500 * time.Millisecond,
			wantSource: "body",
		},
		{
			name:       "nothing usable defaults",
			body:       `{"error": "too many requests"}`,
			want:       5 * time.Second,
			wantSource: "default",
		},
		{
			name:       "empty everything defaults",
			want:       5 * time.Second,
			wantSource: "default",
		},
		{
			name:       "negative hint clamps to zero",
			header:     http.Header{"Retry-After": {"-3"}},
			want:       0,
			wantSource: "retry-after",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			got, source := waitHint(header, []byte(tt.body))
			if got != tt.want {
				t.Errorf("waitHint = %v, want %v", got, tt.want)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestParseRateLimitReset(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{"plain", "reset=12", 12 * time.Second, true},
		{"fractional with suffix", "limit=40, remaining=0, reset=0.75;w=1", 750 * time.Millisecond, true},
		{"case insensitive key", "Reset=2", 2 * time.Second, true},
		{"no reset part", "limit=40, remaining=39", 0, false},
		{"unparseable aborts", "reset=never, remaining=0", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRateLimitReset(tt.value)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("reset = %v, want %v", got, tt.want)
			}
		})
	}
}
