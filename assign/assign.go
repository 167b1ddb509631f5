// Package assign tops up each rep's lead queue from the unassigned
// reservoir until everyone holds the configured target.
package assign

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// countProjection keeps counting pages light; only ids matter.
var countProjection = []string{"id"}

// Summary is the per-rep outcome of one assignment run. WorkedPct is the
// share of the target the rep had burned through before the top-up.
type Summary struct {
	Name      string `json:"name"`
	UserID    string `json:"user_id"`
	Has       int    `json:"has"`
	Needs     int    `json:"needs"`
	Assigned  int    `json:"assigned"`
	WorkedPct int    `json:"worked_pct"`
}

// Workflow distributes reservoir leads across the sales roster.
type Workflow struct {
	client     *crm.Client
	orch       *runner.Orchestrator
	fields     *crm.FieldRegistry
	target     int
	queries    config.QueriesConfig
	rosterPath string
	delay      time.Duration
	sleep      func(time.Duration)
	log        *zap.SugaredLogger
}

// New builds the assignment workflow.
func New(client *crm.Client, orch *runner.Orchestrator, fields *crm.FieldRegistry, cfg *config.Config) *Workflow {
	return &Workflow{
		client:     client,
		orch:       orch,
		fields:     fields,
		target:     cfg.Assign.TargetCount,
		queries:    cfg.Queries,
		rosterPath: cfg.RosterPath,
		delay:      cfg.Pacing.RecordDelay(),
		sleep:      time.Sleep,
		log:        logger.ComponentLogger("assign"),
	}
}

// SetSleep injects a fake sleeper. Used by tests.
func (w *Workflow) SetSleep(sleep func(time.Duration)) {
	w.sleep = sleep
}

// Run counts each rep's queue and tops it up from the reservoir. Roster
// and query problems abort before any write; per-rep failures are
// tallied and the run continues to the next rep.
func (w *Workflow) Run(ctx context.Context) ([]Summary, runner.Stats, error) {
	roster, err := config.LoadRoster(w.rosterPath)
	if err != nil {
		return nil, runner.Stats{}, err
	}
	counting, err := crm.LoadQuery(w.queries.Path(w.queries.Counting))
	if err != nil {
		return nil, runner.Stats{}, err
	}
	reservoir, err := crm.LoadQuery(w.queries.Path(w.queries.Reservoir))
	if err != nil {
		return nil, runner.Stats{}, err
	}

	// A counting query without the owner condition would count the whole
	// book for every rep. Catch it before any record is touched.
	probe, err := crm.CloneQuery(counting)
	if err != nil {
		return nil, runner.Stats{}, err
	}
	if !crm.RewriteOwnerCondition(probe, w.fields.Lead.SalesOwner, roster[0].UserID) {
		return nil, runner.Stats{}, errors.WithHint(
			errors.NewFatalConfig("counting query %s has no condition on the sales-owner field", w.queries.Counting),
			"re-export the per-rep saved search from the CRM")
	}

	summaries := make([]Summary, len(roster))
	stats := w.orch.Run(ctx, "assign", len(roster), func(ctx context.Context, i int) runner.Result {
		summary, res := w.topUp(ctx, counting, reservoir, roster[i])
		summaries[i] = summary
		return res
	})
	return summaries, stats, nil
}

// topUp counts one rep's queue and assigns the shortfall.
func (w *Workflow) topUp(ctx context.Context, counting, reservoir map[string]interface{}, rep config.Rep) (Summary, runner.Result) {
	summary := Summary{Name: rep.Name, UserID: rep.UserID}

	count, err := w.countQueue(ctx, counting, rep.UserID)
	if err != nil {
		return summary, runner.Failed(rep.UserID, err)
	}
	summary.Has = count
	if needs := w.target - count; needs > 0 {
		summary.Needs = needs
	}
	summary.WorkedPct = int(math.Round(float64(summary.Needs) / float64(w.target) * 100))

	if summary.Needs == 0 {
		return summary, runner.Ineligible(rep.UserID, "queue already at target")
	}

	pool, err := w.client.SearchAll(ctx, reservoir, crm.SearchOptions{
		Target:   summary.Needs,
		Fields:   countProjection,
		PageSize: min(100, summary.Needs),
	})
	if err != nil {
		return summary, runner.Failed(rep.UserID, err)
	}
	if len(pool) > summary.Needs {
		pool = pool[:summary.Needs]
	}
	if len(pool) == 0 {
		return summary, runner.Ineligible(rep.UserID, "reservoir is empty")
	}

	ownerKey := crm.CustomKey(w.fields.Lead.SalesOwner)
	var lastErr error
	for i, lead := range pool {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.client.UpdateLead(ctx, lead.ID, map[string]interface{}{ownerKey: rep.UserID}); err != nil {
			lastErr = err
			w.log.Warnw("lead assignment failed",
				logger.FieldLeadID, lead.ID,
				"rep", rep.Name,
				logger.FieldError, err)
			continue
		}
		summary.Assigned++
		if w.delay > 0 && i < len(pool)-1 {
			w.sleep(w.delay)
		}
	}
	if summary.Assigned == 0 {
		return summary, runner.Failed(rep.UserID, errors.Wrapf(lastErr, "no leads assigned to %s", rep.Name))
	}
	return summary, runner.Succeeded(rep.UserID, fmt.Sprintf("assigned %d of %d needed", summary.Assigned, summary.Needs))
}

// countQueue runs the counting query scoped to one rep and returns the
// number of leads already on their plate.
func (w *Workflow) countQueue(ctx context.Context, counting map[string]interface{}, userID string) (int, error) {
	query, err := crm.CloneQuery(counting)
	if err != nil {
		return 0, err
	}
	if !crm.RewriteOwnerCondition(query, w.fields.Lead.SalesOwner, userID) {
		return 0, errors.NewFatalConfig("counting query has no condition on the sales-owner field")
	}
	leads, err := w.client.SearchAll(ctx, query, crm.SearchOptions{Fields: countProjection})
	if err != nil {
		return 0, err
	}
	return len(leads), nil
}
