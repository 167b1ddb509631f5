package crm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
)

// pageServer serves a fixed cursor chain and records what each request
// asked for.
type pageServer struct {
	pages    []SearchResult
	requests []map[string]interface{}
	calls    int32
}

func (s *pageServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		s.requests = append(s.requests, body)
		n := int(atomic.AddInt32(&s.calls, 1))
		if n > len(s.pages) {
			t.Errorf("request %d past the last page", n)
			http.Error(w, "no more pages", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.pages[n-1]); err != nil {
			t.Errorf("encode page: %v", err)
		}
	})
}

func makeLeads(prefix string, n int) []LeadRef {
	leads := make([]LeadRef, n)
	for i := range leads {
		leads[i] = LeadRef{ID: fmt.Sprintf("lead_%s_%d", prefix, i)}
	}
	return leads
}

func TestSearchAll_WalksEveryPage(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: makeLeads("a", 100), Cursor: "cur_1"},
		{Data: makeLeads("b", 100), Cursor: "cur_2"},
		{Data: makeLeads("c", 50)},
	}}
	client := newTestClient(t, srv.handler(t))

	leads, err := client.SearchAll(t.Context(), map[string]interface{}{"query": "smart"}, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(leads) != 250 {
		t.Errorf("records = %d, want 250", len(leads))
	}
	if srv.calls != 3 {
		t.Errorf("requests = %d, want 3", srv.calls)
	}
	// First request carries no cursor, later ones echo the previous page's.
	if _, ok := srv.requests[0]["cursor"]; ok {
		t.Error("first request carried a cursor")
	}
	if got := srv.requests[1]["cursor"]; got != "cur_1" {
		t.Errorf("second request cursor = %v, want cur_1", got)
	}
	if got := srv.requests[2]["cursor"]; got != "cur_2" {
		t.Errorf("third request cursor = %v, want cur_2", got)
	}
}

func TestSearchAll_EmptyPageWithCursorContinues(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: nil, Cursor: "cur_1"},
		{Data: makeLeads("z", 3)},
	}}
	client := newTestClient(t, srv.handler(t))

	leads, err := client.SearchAll(t.Context(), map[string]interface{}{"query": "smart"}, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(leads) != 3 {
		t.Errorf("records = %d, want 3 (empty page must not terminate)", len(leads))
	}
	if srv.calls != 2 {
		t.Errorf("requests = %d, want 2", srv.calls)
	}
}

func TestSearchAll_TargetStopsEarly(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: makeLeads("a", 100), Cursor: "cur_1"},
		{Data: makeLeads("b", 100), Cursor: "cur_2"},
		{Data: makeLeads("c", 100), Cursor: "cur_3"},
	}}
	client := newTestClient(t, srv.handler(t))

	leads, err := client.SearchAll(t.Context(), map[string]interface{}{"query": "smart"}, SearchOptions{Target: 150})
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	// The crossing page is kept whole.
	if len(leads) != 200 {
		t.Errorf("records = %d, want 200", len(leads))
	}
	if srv.calls != 2 {
		t.Errorf("requests = %d, want 2 (stop once target reached)", srv.calls)
	}
}

func TestSearchAll_InjectsProjectionAndLimit(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: makeLeads("a", 2)},
	}}
	client := newTestClient(t, srv.handler(t))

	opts := SearchOptions{
		Fields:   []string{"id", "display_name", "opportunities"},
		PageSize: 100,
	}
	if _, err := client.SearchAll(t.Context(), map[string]interface{}{"query": "smart"}, opts); err != nil {
		t.Fatalf("SearchAll: %v", err)
	}

	req := srv.requests[0]
	fields, ok := req["_fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("_fields = %T, want object", req["_fields"])
	}
	leadFields, _ := fields["lead"].([]interface{})
	if len(leadFields) != 3 || leadFields[0] != "id" {
		t.Errorf("lead fields = %v", leadFields)
	}
	if got, _ := req["limit"].(float64); got != 100 {
		t.Errorf("limit = %v, want 100", req["limit"])
	}
}

func TestSearchAll_RespectsExistingProjection(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: makeLeads("a", 1)},
	}}
	client := newTestClient(t, srv.handler(t))

	query := map[string]interface{}{
		"query":   "smart",
		"_fields": map[string]interface{}{"lead": []string{"id"}},
	}
	opts := SearchOptions{Fields: []string{"id", "display_name"}}
	if _, err := client.SearchAll(t.Context(), query, opts); err != nil {
		t.Fatalf("SearchAll: %v", err)
	}

	fields, _ := srv.requests[0]["_fields"].(map[string]interface{})
	leadFields, _ := fields["lead"].([]interface{})
	if len(leadFields) != 1 {
		t.Errorf("lead fields = %v, want the query's own projection kept", leadFields)
	}
}

func TestSearchAll_OnPageCallback(t *testing.T) {
	srv := &pageServer{pages: []SearchResult{
		{Data: makeLeads("a", 2), Cursor: "cur_1"},
		{Data: makeLeads("b", 3)},
	}}
	client := newTestClient(t, srv.handler(t))

	var totals []int
	opts := SearchOptions{OnPage: func(total int) { totals = append(totals, total) }}
	if _, err := client.SearchAll(t.Context(), map[string]interface{}{"query": "smart"}, opts); err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(totals) != 2 || totals[0] != 2 || totals[1] != 5 {
		t.Errorf("totals = %v, want [2 5]", totals)
	}
}
