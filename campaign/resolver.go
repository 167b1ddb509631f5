package campaign

import (
	"context"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/logger"
)

// Resolver assembles the full picture of one record: the lead detail,
// the detail of every opportunity under it, and (when a secondary
// account is wired) the cross-account lot lookup. Reads degrade rather
// than fail: a lead with no readable detail resolves to an empty body
// with its id intact, matching the executor's soft-read policy.
type Resolver struct {
	client    *crm.Client
	secondary *crm.Client
	fields    *crm.FieldRegistry
	log       *zap.SugaredLogger
}

// NewResolver builds a resolver. secondary may be nil when no
// cross-account lookup is configured.
func NewResolver(client *crm.Client, secondary *crm.Client, fields *crm.FieldRegistry) *Resolver {
	return &Resolver{
		client:    client,
		secondary: secondary,
		fields:    fields,
		log:       logger.ComponentLogger("campaign.resolver"),
	}
}

// Record is a lead with its opportunities fully resolved.
type Record struct {
	Lead          crm.Lead
	Opportunities []crm.Opportunity
}

// Lead fetches the lead detail, returning an empty body carrying the id
// when the read yields no data.
func (r *Resolver) Lead(ctx context.Context, leadID string) (crm.Lead, error) {
	detail, err := r.client.LeadDetail(ctx, leadID)
	if err != nil {
		return crm.Lead{}, err
	}
	if !detail.Found {
		r.log.Debugw("lead detail empty", logger.FieldLeadID, leadID)
		return crm.Lead{ID: leadID}, nil
	}
	return detail.Value, nil
}

// Opportunity fetches one opportunity detail the same way.
func (r *Resolver) Opportunity(ctx context.Context, oppID string) (crm.Opportunity, error) {
	detail, err := r.client.OpportunityDetail(ctx, oppID)
	if err != nil {
		return crm.Opportunity{}, err
	}
	if !detail.Found {
		r.log.Debugw("opportunity detail empty", logger.FieldOppID, oppID)
		return crm.Opportunity{ID: oppID}, nil
	}
	return detail.Value, nil
}

// Resolve builds the full record for a search hit. Opportunity ids come
// from the search projection when present; otherwise the opportunity
// list endpoint fills them in.
func (r *Resolver) Resolve(ctx context.Context, ref crm.LeadRef) (*Record, error) {
	lead, err := r.Lead(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	record := &Record{Lead: lead}

	if len(ref.Opportunities) == 0 {
		opps, err := r.client.LeadOpportunities(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		record.Opportunities = opps
		return record, nil
	}
	for _, oppRef := range ref.Opportunities {
		opp, err := r.Opportunity(ctx, oppRef.ID)
		if err != nil {
			return nil, err
		}
		record.Opportunities = append(record.Opportunities, opp)
	}
	return record, nil
}

// LotAddress looks the lot up in the secondary account by its uid and
// returns the formatted address of the first match. found is false when
// the secondary account knows nothing about the lot or no resolver is
// wired for it; that is an answer, not an error.
func (r *Resolver) LotAddress(ctx context.Context, lotUID string) (string, bool, error) {
	if r.secondary == nil || lotUID == "" {
		return "", false, nil
	}
	query := lotQuery(r.fields.SecondaryLotUID, lotUID)
	page, err := r.secondary.Search(ctx, query)
	if err != nil {
		return "", false, err
	}
	if len(page.Data) == 0 {
		r.log.Debugw("lot unknown to secondary account", "lot_uid", lotUID)
		return "", false, nil
	}

	match := page.Data[0]
	lead, err := r.secondary.LeadDetail(ctx, match.ID)
	if err != nil {
		return "", false, err
	}
	if !lead.Found || len(lead.Value.Addresses) == 0 {
		return "", false, nil
	}
	addr := lead.Value.Addresses[0]
	for _, a := range lead.Value.Addresses {
		if a.Label == "business" {
			addr = a
			break
		}
	}
	return addr.OneLine(), true, nil
}

// lotQuery is the secondary-account search for one lot uid. The match
// mode is prefix-based because the secondary account suffixes uids with
// unit designators.
func lotQuery(fieldID, lotUID string) map[string]interface{} {
	return map[string]interface{}{
		"limit": 10,
		"query": map[string]interface{}{
			"type": "and",
			"queries": []interface{}{
				map[string]interface{}{
					"type":        "object_type",
					"object_type": "lead",
				},
				map[string]interface{}{
					"type": "field_condition",
					"field": map[string]interface{}{
						"type":            "custom_field",
						"custom_field_id": fieldID,
					},
					"condition": map[string]interface{}{
						"type":  "text",
						"mode":  "beginning_of_words",
						"value": lotUID,
					},
				},
			},
		},
		"_fields": map[string]interface{}{
			"lead": []string{"id", "display_name"},
		},
	}
}
