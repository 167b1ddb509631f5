package campaign

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
)

func testFields() config.FieldsConfig {
	return config.FieldsConfig{
		MailerDates:     "cf_dates",
		Template:        "cf_tmpl",
		CitationDate:    "cf_cit_date",
		LastMailDate:    "cf_lmd",
		MailedToday:     "cf_mt",
		SecondaryLotUID: "cf_lot_uid_sec",
	}
}

// capture records every write the engine makes, in order.
type capture struct {
	mu       sync.Mutex
	requests []capturedWrite

	// failures maps "METHOD /path/" to a status code to return instead
	// of 200.
	failures map[string]int
}

type capturedWrite struct {
	method string
	path   string
	body   map[string]interface{}
}

func (c *capture) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			t.Errorf("decoding %s %s body: %v", r.Method, r.URL.Path, err)
		}
		c.mu.Lock()
		c.requests = append(c.requests, capturedWrite{method: r.Method, path: r.URL.Path, body: body})
		status, failed := c.failures[r.Method+" "+r.URL.Path]
		c.mu.Unlock()
		if failed {
			w.WriteHeader(status)
			return
		}
		okJSON(w, `{"id": "echo"}`)
	})
}

func (c *capture) all() []capturedWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedWrite(nil), c.requests...)
}

func okJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}

func testClock() func() time.Time {
	return func() time.Time { return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC) }
}

func newTestCRM(t *testing.T, handler http.Handler) *crm.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	account := config.CRMConfig{APIKey: "api_test_key", BaseURL: srv.URL, TimeoutSeconds: 5}
	pacing := config.PacingConfig{PagesPerSecond: 1000, MaxAttempts: 3}
	return crm.NewClient(account, pacing)
}

func newTestEngine(t *testing.T, handler http.Handler) *Engine {
	t.Helper()
	client := newTestCRM(t, handler)
	cfg := testCampaign()
	engine := NewEngine(client, NewTable(cfg), crm.NewFieldRegistry(testFields()), cfg.Stages)
	engine.SetClock(testClock())
	return engine
}

func TestAdvance_FirstNoticeWritesChildThenParent(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	opp := crm.Opportunity{ID: "oppo_1", LeadID: "lead_1", StatusID: "stat_unpaid"}
	if err := engine.Advance(t.Context(), "lead_1", opp); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].method != "PUT" || reqs[0].path != "/opportunity/oppo_1/" {
		t.Errorf("first write = %s %s, want PUT /opportunity/oppo_1/", reqs[0].method, reqs[0].path)
	}
	oppBody := reqs[0].body
	if oppBody["status_id"] != "stat_s1" {
		t.Errorf("status_id = %v, want stat_s1", oppBody["status_id"])
	}
	if oppBody["custom.cf_tmpl"] != "tmpl_r1" {
		t.Errorf("template = %v, want tmpl_r1", oppBody["custom.cf_tmpl"])
	}
	if oppBody["custom.cf_dates"] != "06/01/2024" {
		t.Errorf("mailer dates = %v, want fresh 06/01/2024", oppBody["custom.cf_dates"])
	}

	if reqs[1].method != "PUT" || reqs[1].path != "/lead/lead_1/" {
		t.Errorf("second write = %s %s, want PUT /lead/lead_1/", reqs[1].method, reqs[1].path)
	}
	if reqs[1].body["custom.cf_lmd"] != "06/01/2024" {
		t.Errorf("last mail date = %v, want 06/01/2024", reqs[1].body["custom.cf_lmd"])
	}
}

func TestAdvance_AppendKeepsDateHistory(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	opp := crm.Opportunity{
		ID:       "oppo_2",
		LeadID:   "lead_1",
		StatusID: "stat_s1",
		Custom:   crm.Custom{"cf_dates": "05/01/2024"},
	}
	if err := engine.Advance(t.Context(), "lead_1", opp); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if got := reqs[0].body["custom.cf_dates"]; got != "05/01/2024,06/01/2024" {
		t.Errorf("mailer dates = %v, want 05/01/2024,06/01/2024", got)
	}
	if got := reqs[0].body["custom.cf_tmpl"]; got != "tmpl_r2" {
		t.Errorf("template = %v, want tmpl_r2", got)
	}
}

func TestAdvance_UnknownStageIsNoMatch(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	opp := crm.Opportunity{ID: "oppo_3", StatusID: "stat_paid"}
	err := engine.Advance(t.Context(), "lead_1", opp)
	if !errors.Is(err, errors.ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
	if len(rec.all()) != 0 {
		t.Errorf("requests = %d, want none for an unmapped stage", len(rec.all()))
	}
}

func TestAdvance_ParentFailureIsPartial(t *testing.T) {
	rec := &capture{failures: map[string]int{"PUT /lead/lead_1/": http.StatusInternalServerError}}
	engine := newTestEngine(t, rec.handler(t))

	var hooked []errors.PartialFailure
	engine.OnPartialFailure(func(p errors.PartialFailure) { hooked = append(hooked, p) })

	opp := crm.Opportunity{ID: "oppo_4", LeadID: "lead_1", StatusID: "stat_unpaid"}
	err := engine.Advance(t.Context(), "lead_1", opp)

	var partial *errors.PartialFailure
	ok := errors.As(err, &partial)
	if !ok {
		t.Fatalf("err = %v, want PartialFailure", err)
	}
	if !partial.ChildOK || partial.ParentOK {
		t.Errorf("partial = %+v, want child ok and parent failed", partial)
	}
	if partial.ChildID != "oppo_4" || partial.ParentID != "lead_1" {
		t.Errorf("partial ids = %s/%s, want oppo_4/lead_1", partial.ChildID, partial.ParentID)
	}
	if len(hooked) != 1 {
		t.Errorf("hook calls = %d, want 1", len(hooked))
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want the opportunity write to have landed", len(reqs))
	}
	if reqs[0].path != "/opportunity/oppo_4/" {
		t.Errorf("first write = %s, want the opportunity", reqs[0].path)
	}
}

func TestRelease_HoldMovesChildOnly(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	opp := crm.Opportunity{
		ID:       "oppo_5",
		LeadID:   "lead_1",
		StatusID: "stat_hold",
		Custom:   crm.Custom{"cf_dates": "05/01/2024"},
	}
	if err := engine.Release(t.Context(), "lead_1", opp); err != nil {
		t.Fatalf("Release: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want the single opportunity write", len(reqs))
	}
	body := reqs[0].body
	if body["status_id"] != "stat_unpaid" {
		t.Errorf("status_id = %v, want stat_unpaid", body["status_id"])
	}
	if _, ok := body["custom.cf_tmpl"]; ok {
		t.Error("hold release must not assign a template")
	}
	if _, ok := body["custom.cf_dates"]; ok {
		t.Error("hold release must not rewrite mailer dates")
	}
}

func TestQuarantine_MovesLeadAndLeavesNote(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	if err := engine.Quarantine(t.Context(), "lead_9", "letter vendor declined"); err != nil {
		t.Fatalf("Quarantine: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want lead write plus note", len(reqs))
	}
	if reqs[0].path != "/lead/lead_9/" || reqs[0].body["status_id"] != "stat_err" {
		t.Errorf("first write = %s %v, want error stage on the lead", reqs[0].path, reqs[0].body)
	}
	if reqs[1].method != "POST" || reqs[1].path != "/activity/note/" {
		t.Fatalf("second write = %s %s, want POST /activity/note/", reqs[1].method, reqs[1].path)
	}
	wantNote := "<body><p><strong>Letter Error (06/01/2024):</strong> letter vendor declined</p></body>"
	if reqs[1].body["note_html"] != wantNote {
		t.Errorf("note_html = %v, want %s", reqs[1].body["note_html"], wantNote)
	}
	if reqs[1].body["lead_id"] != "lead_9" {
		t.Errorf("lead_id = %v, want lead_9", reqs[1].body["lead_id"])
	}
}

func TestQuarantine_NoteFailureFailsTheQuarantine(t *testing.T) {
	rec := &capture{failures: map[string]int{"POST /activity/note/": http.StatusBadRequest}}
	engine := newTestEngine(t, rec.handler(t))

	err := engine.Quarantine(t.Context(), "lead_9", "boom")
	if err == nil {
		t.Fatal("Quarantine succeeded despite the note failing")
	}
	if !errors.IsAPIStatus(err, http.StatusBadRequest) {
		t.Errorf("err = %v, want the note's API error", err)
	}
}

func TestMarkMailed(t *testing.T) {
	rec := &capture{}
	engine := newTestEngine(t, rec.handler(t))

	if err := engine.MarkMailed(t.Context(), "lead_3"); err != nil {
		t.Fatalf("MarkMailed: %v", err)
	}
	reqs := rec.all()
	if len(reqs) != 1 || reqs[0].path != "/lead/lead_3/" {
		t.Fatalf("requests = %+v, want one lead write", reqs)
	}
	if reqs[0].body["custom.cf_mt"] != "06/01/2024" {
		t.Errorf("mailed-today = %v, want 06/01/2024", reqs[0].body["custom.cf_mt"])
	}
}
