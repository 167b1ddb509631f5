package campaign

import (
	"context"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// Holds releases held opportunities back into the dunning ladder. For
// each lead on the holds saved search it picks the held opportunity
// with the oldest citation date and moves that one back to unpaid. The
// lead itself is untouched: no mail date, no template, no note.
type Holds struct {
	client   *crm.Client
	resolver *Resolver
	engine   *Engine
	orch     *runner.Orchestrator
	fields   *crm.FieldRegistry
	stages   config.StageIDs
	queries  config.QueriesConfig
	log      *zap.SugaredLogger
}

func NewHolds(client *crm.Client, resolver *Resolver, engine *Engine, orch *runner.Orchestrator, cfg *config.Config) *Holds {
	return &Holds{
		client:   client,
		resolver: resolver,
		engine:   engine,
		orch:     orch,
		fields:   resolver.fields,
		stages:   cfg.Campaign.Stages,
		queries:  cfg.Queries,
		log:      logger.ComponentLogger("holds"),
	}
}

// Run walks the holds saved search and releases one opportunity per
// lead. Leads with no held opportunity, or whose held opportunities all
// carry unparseable citation dates, are skipped rather than failed.
func (w *Holds) Run(ctx context.Context) (runner.Stats, error) {
	query, err := crm.LoadQuery(w.queries.Path(w.queries.Holds))
	if err != nil {
		return runner.Stats{}, err
	}

	leads, err := w.client.SearchAll(ctx, query, crm.SearchOptions{Fields: leadProjection})
	if err != nil {
		return runner.Stats{}, errors.Wrap(err, "searching held leads")
	}
	w.log.Infow("candidates found", logger.FieldCount, len(leads))

	stats := w.orch.Run(ctx, "holds", len(leads), func(ctx context.Context, i int) runner.Result {
		return w.release(ctx, leads[i])
	})
	return stats, nil
}

func (w *Holds) release(ctx context.Context, ref crm.LeadRef) runner.Result {
	oppRefs := ref.Opportunities
	if len(oppRefs) == 0 {
		lead, err := w.resolver.Lead(ctx, ref.ID)
		if err != nil {
			return runner.Failed(ref.ID, err)
		}
		oppRefs = lead.Opportunities
	}

	var held []crm.OpportunityRef
	for _, opp := range oppRefs {
		if opp.StatusID == w.stages.Hold {
			held = append(held, opp)
		}
	}
	if len(held) == 0 {
		return runner.Ineligible(ref.ID, "no held opportunity")
	}

	// The citation date lives on the full opportunity body, so each
	// held opportunity costs a detail read before we can rank them.
	details := make(map[string]crm.Opportunity, len(held))
	candidates := make([]Dated, 0, len(held))
	for _, hr := range held {
		opp, err := w.resolver.Opportunity(ctx, hr.ID)
		if err != nil {
			return runner.Failed(ref.ID, err)
		}
		if opp.StatusID == "" {
			opp.StatusID = hr.StatusID
		}
		if opp.LeadID == "" {
			opp.LeadID = ref.ID
		}
		details[opp.ID] = opp
		candidates = append(candidates, Dated{
			ID:  opp.ID,
			Raw: opp.Custom.String(w.fields.Opportunity.CitationDate),
		})
	}

	oldest, ok := Oldest(candidates)
	if !ok {
		return runner.Ineligible(ref.ID, "no parseable citation date")
	}

	opp := details[oldest]
	if err := w.engine.Release(ctx, ref.ID, opp); err != nil {
		return runner.Failed(ref.ID, err)
	}
	return runner.Succeeded(ref.ID, "hold released")
}
