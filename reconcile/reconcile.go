// Package reconcile copies lot addresses from the secondary account onto
// opportunities that track a lot by uid but never got its address.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/campaign"
	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// candidateProjection keeps the nested opportunity refs on each search
// hit so a lead's children can be walked without a list call.
var candidateProjection = []string{"id", "display_name", "opportunities"}

// Workflow walks the missing-lot saved search and fills the gaps. The
// lookup runs against the secondary account, so the workflow requires
// one to be configured.
type Workflow struct {
	client   *crm.Client
	resolver *campaign.Resolver
	orch     *runner.Orchestrator
	fields   *crm.FieldRegistry
	queries  config.QueriesConfig
	log      *zap.SugaredLogger
}

// New builds the reconciliation workflow.
func New(client *crm.Client, resolver *campaign.Resolver, orch *runner.Orchestrator, fields *crm.FieldRegistry, cfg *config.Config) *Workflow {
	return &Workflow{
		client:   client,
		resolver: resolver,
		orch:     orch,
		fields:   fields,
		queries:  cfg.Queries,
		log:      logger.ComponentLogger("reconcile"),
	}
}

// Run examines every opportunity under every lead on the missing-lot
// saved search and copies the secondary account's address onto the ones
// that have a lot uid but no lot address.
func (w *Workflow) Run(ctx context.Context) (runner.Stats, error) {
	query, err := crm.LoadQuery(w.queries.Path(w.queries.MissingLot))
	if err != nil {
		return runner.Stats{}, err
	}
	leads, err := w.client.SearchAll(ctx, query, crm.SearchOptions{Fields: candidateProjection})
	if err != nil {
		return runner.Stats{}, errors.Wrap(err, "searching for leads missing lot addresses")
	}
	w.log.Infow("candidates found", logger.FieldCount, len(leads))

	stats := w.orch.Run(ctx, "reconcile", len(leads), func(ctx context.Context, i int) runner.Result {
		return w.fix(ctx, leads[i])
	})
	return stats, nil
}

// fix walks one lead's opportunities. The per-lead outcome aggregates
// the per-opportunity ones: any error fails the lead, otherwise a copy
// counts as success and the lookup misses rank above having had nothing
// to do.
func (w *Workflow) fix(ctx context.Context, ref crm.LeadRef) runner.Result {
	var (
		copied  int
		noMatch int
		noUID   int
		errs    []error
	)
	cf := w.fields.Opportunity
	for _, oppRef := range ref.Opportunities {
		if ctx.Err() != nil {
			break
		}
		opp, err := w.resolver.Opportunity(ctx, oppRef.ID)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "opportunity %s", oppRef.ID))
			continue
		}
		if strings.TrimSpace(opp.Custom.String(cf.LotAddress)) != "" {
			continue
		}
		uid := strings.TrimSpace(opp.Custom.String(cf.LotUID))
		if uid == "" {
			noUID++
			w.log.Infow("opportunity missing both lot address and lot uid",
				logger.FieldOppID, oppRef.ID,
				logger.FieldLeadID, ref.ID)
			continue
		}

		addr, found, err := w.resolver.LotAddress(ctx, uid)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "looking up lot %s", uid))
			continue
		}
		if !found {
			noMatch++
			continue
		}

		if _, err := w.client.UpdateOpportunity(ctx, oppRef.ID, map[string]interface{}{
			crm.CustomKey(cf.LotAddress): addr,
		}); err != nil {
			errs = append(errs, errors.Wrapf(err, "writing lot address to opportunity %s", oppRef.ID))
			continue
		}
		copied++
		w.log.Debugw("lot address copied",
			logger.FieldOppID, oppRef.ID,
			"lot_uid", uid,
			"address", addr)
	}

	switch {
	case len(errs) > 0:
		return runner.Failed(ref.ID, errors.Join(errs...))
	case copied > 0:
		return runner.Succeeded(ref.ID, fmt.Sprintf("%d lot address(es) copied", copied))
	case noMatch > 0:
		return runner.Ineligible(ref.ID, "lot unknown to the secondary account")
	case noUID > 0:
		return runner.Ineligible(ref.ID, "no lot uid to look up")
	default:
		return runner.Ineligible(ref.ID, "no opportunity missing a lot address")
	}
}
