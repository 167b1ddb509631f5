package campaign

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/runner"
)

type nopEmitter struct{}

func (nopEmitter) RunStarted(string, string, int)     {}
func (nopEmitter) RecordDone(int, int, runner.Result) {}
func (nopEmitter) RunFinished(runner.Stats)           {}

func newTestOrchestrator() *runner.Orchestrator {
	return runner.New(nopEmitter{}, config.PacingConfig{})
}

// testWorkflowConfig builds a config whose saved-search files live in a
// temp dir.
func testWorkflowConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	query := `{"limit": 100, "query": {"type": "and", "queries": [{"type": "object_type", "object_type": "lead"}]}}`
	for _, name := range []string{"rounds.json", "holds.json", "mailers.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(query), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &config.Config{
		Campaign: testCampaign(),
		Fields:   testFields(),
		Queries: config.QueriesConfig{
			Dir:     dir,
			Rounds:  "rounds.json",
			Holds:   "holds.json",
			Mailers: "mailers.json",
		},
	}
}

func newTestHolds(t *testing.T, handler http.Handler) *Holds {
	t.Helper()
	client := newTestCRM(t, handler)
	fields := crm.NewFieldRegistry(testFields())
	resolver := NewResolver(client, nil, fields)
	cfg := testWorkflowConfig(t)
	engine := NewEngine(client, NewTable(cfg.Campaign), fields, cfg.Campaign.Stages)
	engine.SetClock(testClock())
	return NewHolds(client, resolver, engine, newTestOrchestrator(), cfg)
}

func TestHolds_ReleasesOldestCitation(t *testing.T) {
	var (
		mu      sync.Mutex
		details []string
		puts    []capturedWrite
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/data/search/":
			okJSON(w, `{"data": [{"id": "lead_1", "display_name": "L1", "opportunities": [
				{"id": "oppo_new", "status_id": "stat_hold"},
				{"id": "oppo_old", "status_id": "stat_hold"},
				{"id": "oppo_live", "status_id": "stat_s1"}
			]}]}`)
		case r.Method == "GET" && r.URL.Path == "/opportunity/oppo_new/":
			mu.Lock()
			details = append(details, "oppo_new")
			mu.Unlock()
			okJSON(w, `{"id": "oppo_new", "lead_id": "lead_1", "status_id": "stat_hold", "custom.cf_cit_date": "3/1/2024"}`)
		case r.Method == "GET" && r.URL.Path == "/opportunity/oppo_old/":
			mu.Lock()
			details = append(details, "oppo_old")
			mu.Unlock()
			okJSON(w, `{"id": "oppo_old", "lead_id": "lead_1", "status_id": "stat_hold", "custom.cf_cit_date": "01-15-2024"}`)
		case r.Method == "PUT":
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding PUT body: %v", err)
			}
			mu.Lock()
			puts = append(puts, capturedWrite{method: r.Method, path: r.URL.Path, body: body})
			mu.Unlock()
			okJSON(w, `{"id": "echo"}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	holds := newTestHolds(t, handler)
	stats, err := holds.Run(t.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Attempted != 1 || stats.Succeeded != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want one success", stats)
	}
	// Only the held opportunities cost a detail read.
	if len(details) != 2 {
		t.Errorf("detail reads = %v, want the two held opportunities", details)
	}
	if len(puts) != 1 {
		t.Fatalf("writes = %+v, want exactly one", puts)
	}
	put := puts[0]
	if put.path != "/opportunity/oppo_old/" {
		t.Errorf("released %s, want oppo_old (oldest citation)", put.path)
	}
	if put.body["status_id"] != "stat_unpaid" {
		t.Errorf("status_id = %v, want stat_unpaid", put.body["status_id"])
	}
	if len(put.body) != 1 {
		t.Errorf("release body = %v, want the stage move alone", put.body)
	}
}

func TestHolds_NoHeldOpportunityIsIneligible(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/data/search/":
			okJSON(w, `{"data": [{"id": "lead_1", "opportunities": [{"id": "oppo_a", "status_id": "stat_s1"}]}]}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	})

	holds := newTestHolds(t, handler)
	stats, err := holds.Run(t.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Ineligible != 1 || stats.Succeeded != 0 {
		t.Errorf("stats = %+v, want one ineligible", stats)
	}
}

func TestHolds_UnparseableCitationDatesAreIneligible(t *testing.T) {
	var putCalls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/data/search/":
			okJSON(w, `{"data": [{"id": "lead_1", "opportunities": [
				{"id": "oppo_a", "status_id": "stat_hold"},
				{"id": "oppo_b", "status_id": "stat_hold"}
			]}]}`)
		case r.Method == "GET" && r.URL.Path == "/opportunity/oppo_a/":
			okJSON(w, `{"id": "oppo_a", "status_id": "stat_hold", "custom.cf_cit_date": "pending review"}`)
		case r.Method == "GET" && r.URL.Path == "/opportunity/oppo_b/":
			okJSON(w, `{"id": "oppo_b", "status_id": "stat_hold"}`)
		case r.Method == "PUT":
			putCalls++
			okJSON(w, `{}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	})

	holds := newTestHolds(t, handler)
	stats, err := holds.Run(t.Context())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Ineligible != 1 {
		t.Errorf("stats = %+v, want the lead skipped", stats)
	}
	if putCalls != 0 {
		t.Errorf("writes = %d, want none without a parseable date", putCalls)
	}
}

func TestHolds_MissingQueryFileAborts(t *testing.T) {
	holds := newTestHolds(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should leave the process")
	}))
	holds.queries.Holds = "absent.json"

	_, err := holds.Run(t.Context())
	if !errors.IsFatalConfig(err) {
		t.Fatalf("err = %v, want fatal config", err)
	}
}
