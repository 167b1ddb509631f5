// Package report renders the previous calendar month's call activity
// for every rep on the roster.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/campaign"
	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// reportMetrics is everything one rep's row needs, fetched in a single
// report call.
var reportMetrics = []string{
	crm.MetricCallsAllCount,
	crm.MetricCallsAllDuration,
	crm.MetricOutboundCount,
	crm.MetricOutboundDuration,
	crm.MetricOutboundAvgDuration,
	crm.MetricInboundCount,
	crm.MetricInboundDuration,
	crm.MetricWonCount,
}

// Row is one rep's month. A rep whose report read failed keeps a zeroed
// row so the table still accounts for the whole roster.
type Row struct {
	Name          string        `json:"name"`
	UserID        string        `json:"user_id"`
	TotalCalls    int           `json:"total_calls"`
	TotalDuration time.Duration `json:"total_duration"`
	OutboundCalls int           `json:"outbound_calls"`
	InboundCalls  int           `json:"inbound_calls"`
	WonOpps       int           `json:"won_opportunities"`
}

// CallTime renders the total duration the way the summary table shows
// it: whole hours, minutes, seconds.
func (r Row) CallTime() string {
	total := int(r.TotalDuration / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// Workflow pulls per-rep activity for the previous month.
type Workflow struct {
	client     *crm.Client
	orch       *runner.Orchestrator
	rosterPath string
	timeNow    func() time.Time
	log        *zap.SugaredLogger
}

// New builds the report workflow.
func New(client *crm.Client, orch *runner.Orchestrator, cfg *config.Config) *Workflow {
	return &Workflow{
		client:     client,
		orch:       orch,
		rosterPath: cfg.RosterPath,
		timeNow:    time.Now,
		log:        logger.ComponentLogger("report"),
	}
}

// SetClock injects a fixed clock. Used by tests.
func (w *Workflow) SetClock(now func() time.Time) {
	w.timeNow = now
}

// Run reports the previous month for every rep, sorted by total call
// time. A failed report read keeps the rep in the output with zeros.
func (w *Workflow) Run(ctx context.Context) ([]Row, runner.Stats, error) {
	roster, err := config.LoadRoster(w.rosterPath)
	if err != nil {
		return nil, runner.Stats{}, err
	}
	start, end := campaign.PreviousMonthRange(w.timeNow())
	w.log.Infow("reporting window",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	rows := make([]Row, len(roster))
	stats := w.orch.Run(ctx, "report", len(roster), func(ctx context.Context, i int) runner.Result {
		rep := roster[i]
		rows[i] = Row{Name: rep.Name, UserID: rep.UserID}

		metrics, err := w.client.ActivityReport(ctx, crm.ActivityRequest{
			Start:   start,
			End:     end,
			UserID:  rep.UserID,
			Metrics: reportMetrics,
		})
		if err != nil {
			return runner.Failed(rep.UserID, err)
		}
		rows[i].TotalCalls = int(metrics[crm.MetricCallsAllCount])
		rows[i].TotalDuration = time.Duration(metrics[crm.MetricCallsAllDuration] * float64(time.Second))
		rows[i].OutboundCalls = int(metrics[crm.MetricOutboundCount])
		rows[i].InboundCalls = int(metrics[crm.MetricInboundCount])
		rows[i].WonOpps = int(metrics[crm.MetricWonCount])
		return runner.Succeeded(rep.UserID, fmt.Sprintf("%d calls, %s", rows[i].TotalCalls, rows[i].CallTime()))
	})

	// Heaviest callers first; ties keep roster order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalDuration > rows[j].TotalDuration
	})
	return rows, stats, nil
}
