package crm

import (
	"context"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
)

// FieldRegistry maps the semantic field names the workflows use onto
// remote custom-field ids. Ids come from configuration; Validate checks
// them against the account's actual schema before a run touches any
// record, and resolves the handful of fields configured by display name.
type FieldRegistry struct {
	Opportunity OpportunityFields
	Lead        LeadFields

	// SecondaryLotUID lives in the secondary account's schema. Validate
	// only sees the primary account, so this id is taken on faith.
	SecondaryLotUID string

	names config.LeadNameFields
	log   *zap.SugaredLogger
}

// OpportunityFields are the custom-field ids read and written on
// opportunities.
type OpportunityFields struct {
	MailerDates      string
	Template         string
	CitationNumber   string
	CitationDate     string
	CitationTime     string
	CitationImageURL string
	FineAmount       string
	ServiceFee       string
	LotAddress       string
	LotUID           string
}

// LeadFields are the custom-field ids read and written on leads. The
// name-resolved ids stay empty until Validate runs.
type LeadFields struct {
	LastMailDate string
	MailedToday  string
	SalesOwner   string

	// Resolved from display names at startup.
	MailingAddress string
	Make           string
	Model          string
}

// NewFieldRegistry builds a registry from configuration.
func NewFieldRegistry(fields config.FieldsConfig) *FieldRegistry {
	return &FieldRegistry{
		Opportunity: OpportunityFields{
			MailerDates:      fields.MailerDates,
			Template:         fields.Template,
			CitationNumber:   fields.CitationNumber,
			CitationDate:     fields.CitationDate,
			CitationTime:     fields.CitationTime,
			CitationImageURL: fields.CitationImageURL,
			FineAmount:       fields.FineAmount,
			ServiceFee:       fields.ServiceFee,
			LotAddress:       fields.LotAddress,
			LotUID:           fields.LotUID,
		},
		Lead: LeadFields{
			LastMailDate: fields.LastMailDate,
			MailedToday:  fields.MailedToday,
			SalesOwner:   fields.SalesOwner,
		},
		SecondaryLotUID: fields.SecondaryLotUID,
		names:           fields.LeadNames,
		log:             logger.ComponentLogger("crm.fields"),
	}
}

// Validate checks every configured id against the account's schema and
// resolves display-name fields to ids. Unknown ids are fatal
// configuration: a typo here would otherwise silently write into fields
// nobody reads. A display name that resolves to nothing only warns; the
// workflows treat the field as absent.
func (r *FieldRegistry) Validate(ctx context.Context, c *Client) error {
	oppSchema, err := c.CustomFields(ctx, "opportunity")
	if err != nil {
		return errors.Wrap(err, "loading opportunity field schema")
	}
	leadSchema, err := c.CustomFields(ctx, "lead")
	if err != nil {
		return errors.Wrap(err, "loading lead field schema")
	}

	var unknown []error
	checkIDs := func(object string, schema map[string]string, ids map[string]string) {
		known := make(map[string]bool, len(schema))
		for _, id := range schema {
			known[id] = true
		}
		for name, id := range ids {
			if id == "" {
				continue
			}
			if !known[id] {
				unknown = append(unknown, errors.Newf("%s field %s: id %s not in account schema", object, name, id))
			}
		}
	}

	checkIDs("opportunity", oppSchema, map[string]string{
		"mailer_dates":       r.Opportunity.MailerDates,
		"template":           r.Opportunity.Template,
		"citation_number":    r.Opportunity.CitationNumber,
		"citation_date":      r.Opportunity.CitationDate,
		"citation_time":      r.Opportunity.CitationTime,
		"citation_image_url": r.Opportunity.CitationImageURL,
		"fine_amount":        r.Opportunity.FineAmount,
		"service_fee":        r.Opportunity.ServiceFee,
		"lot_address":        r.Opportunity.LotAddress,
		"lot_uid":            r.Opportunity.LotUID,
	})
	checkIDs("lead", leadSchema, map[string]string{
		"last_mail_date": r.Lead.LastMailDate,
		"mailed_today":   r.Lead.MailedToday,
		"sales_owner":    r.Lead.SalesOwner,
	})
	if len(unknown) > 0 {
		return errors.WithHint(
			errors.NewFatalConfig("custom field validation: %v", errors.Join(unknown...)),
			"compare [fields] ids in dunner.toml against the account's custom field settings")
	}

	r.Lead.MailingAddress = r.resolveName(leadSchema, r.names.MailingAddress)
	r.Lead.Make = r.resolveName(leadSchema, r.names.Make)
	r.Lead.Model = r.resolveName(leadSchema, r.names.Model)

	r.log.Debugw("field registry validated",
		"opportunity_fields", len(oppSchema),
		"lead_fields", len(leadSchema))
	return nil
}

func (r *FieldRegistry) resolveName(schema map[string]string, name string) string {
	if name == "" {
		return ""
	}
	id, ok := schema[name]
	if !ok {
		r.log.Warnw("lead field name not found in schema, reads will be empty",
			"name", name)
		return ""
	}
	return id
}
