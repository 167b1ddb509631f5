package campaign

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// leadProjection is the search projection every lead-driven workflow
// asks for when the query carries none of its own.
var leadProjection = []string{"id", "display_name", "opportunities"}

// RoundMode selects which rung of the ladder a rounds run touches.
type RoundMode int

const (
	// RoundAuto advances stage1 and stage2 opportunities (second and
	// third notices); the query supplies the candidates.
	RoundAuto RoundMode = iota
	// RoundFirst sends first notices: only unpaid opportunities move,
	// and only the first one found per lead.
	RoundFirst
)

// RoundsOptions tunes one rounds run.
type RoundsOptions struct {
	Mode  RoundMode
	Limit int // cap on leads processed, 0 = all
}

// Rounds advances opportunities along the notice ladder.
type Rounds struct {
	client   *crm.Client
	resolver *Resolver
	engine   *Engine
	orch     *runner.Orchestrator
	stages   config.StageIDs
	queries  config.QueriesConfig
	log      *zap.SugaredLogger
}

// NewRounds builds the rounds workflow.
func NewRounds(client *crm.Client, resolver *Resolver, engine *Engine, orch *runner.Orchestrator, cfg *config.Config) *Rounds {
	return &Rounds{
		client:   client,
		resolver: resolver,
		engine:   engine,
		orch:     orch,
		stages:   cfg.Campaign.Stages,
		queries:  cfg.Queries,
		log:      logger.ComponentLogger("campaign.rounds"),
	}
}

// Run searches for candidate leads and advances each one. Search and
// query-loading failures abort before any record is touched; per-record
// failures are tallied and the run continues.
func (w *Rounds) Run(ctx context.Context, opts RoundsOptions) (runner.Stats, error) {
	query, err := crm.LoadQuery(w.queries.Path(w.queries.Rounds))
	if err != nil {
		return runner.Stats{}, err
	}
	leads, err := w.client.SearchAll(ctx, query, crm.SearchOptions{
		Target: opts.Limit,
		Fields: leadProjection,
	})
	if err != nil {
		return runner.Stats{}, err
	}
	if opts.Limit > 0 && len(leads) > opts.Limit {
		leads = leads[:opts.Limit]
	}
	w.log.Infow("candidates found", logger.FieldCount, len(leads))

	stats := w.orch.Run(ctx, "rounds", len(leads), func(ctx context.Context, i int) runner.Result {
		return w.step(ctx, leads[i], opts.Mode)
	})
	return stats, nil
}

func (w *Rounds) step(ctx context.Context, ref crm.LeadRef, mode RoundMode) runner.Result {
	if len(ref.Opportunities) == 0 {
		return runner.Ineligible(ref.ID, "no opportunities")
	}
	if mode == RoundFirst {
		return w.firstNotice(ctx, ref)
	}
	return w.laterNotice(ctx, ref)
}

// firstNotice moves the lead's first unpaid opportunity onto the ladder.
func (w *Rounds) firstNotice(ctx context.Context, ref crm.LeadRef) runner.Result {
	for _, oppRef := range ref.Opportunities {
		if oppRef.StatusID != w.stages.Unpaid {
			continue
		}
		opp := crm.Opportunity{ID: oppRef.ID, LeadID: ref.ID, StatusID: oppRef.StatusID}
		if err := w.engine.Advance(ctx, ref.ID, opp); err != nil {
			return runner.Failed(ref.ID, err)
		}
		return runner.Succeeded(ref.ID, "first notice sent to ladder")
	}
	return runner.Ineligible(ref.ID, "no unpaid opportunity")
}

// laterNotice advances every opportunity sitting in a mail stage. The
// detail read supplies the current mailer-date list for the append.
func (w *Rounds) laterNotice(ctx context.Context, ref crm.LeadRef) runner.Result {
	eligible := map[string]bool{
		w.stages.Stage1: true,
		w.stages.Stage2: true,
	}

	advanced := 0
	for _, oppRef := range ref.Opportunities {
		opp, err := w.resolver.Opportunity(ctx, oppRef.ID)
		if err != nil {
			return runner.Failed(ref.ID, err)
		}
		if opp.StatusID == "" {
			opp.StatusID = oppRef.StatusID
		}
		if !eligible[opp.StatusID] {
			continue
		}
		if opp.LeadID == "" {
			opp.LeadID = ref.ID
		}
		if err := w.engine.Advance(ctx, ref.ID, opp); err != nil {
			return runner.Failed(ref.ID, err)
		}
		advanced++
	}
	if advanced == 0 {
		return runner.Ineligible(ref.ID, "no opportunity in a mail stage")
	}
	return runner.Succeeded(ref.ID, fmt.Sprintf("%d notice(s) advanced", advanced))
}
