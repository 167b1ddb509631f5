package campaign

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/letters"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// mailerProjection keeps the mailers search light; everything the letter
// needs comes from the detail reads.
var mailerProjection = []string{"id", "display_name"}

// Mailers turns staged opportunities into physical mail. For each lead
// on the mailers saved search it assembles the recipient and the
// template's merge variables from CRM fields, submits the letter to the
// vendor, and stamps the lead. A lead the vendor cannot mail is
// quarantined so the ladder stops advancing it.
type Mailers struct {
	client   *crm.Client
	resolver *Resolver
	engine   *Engine
	vendor   *letters.Client
	orch     *runner.Orchestrator
	stages   config.StageIDs
	fields   *crm.FieldRegistry
	queries  config.QueriesConfig
	log      *zap.SugaredLogger
}

// NewMailers builds the letter-generation workflow.
func NewMailers(client *crm.Client, resolver *Resolver, engine *Engine, vendor *letters.Client, orch *runner.Orchestrator, cfg *config.Config) *Mailers {
	return &Mailers{
		client:   client,
		resolver: resolver,
		engine:   engine,
		vendor:   vendor,
		orch:     orch,
		stages:   cfg.Campaign.Stages,
		fields:   resolver.fields,
		queries:  cfg.Queries,
		log:      logger.ComponentLogger("campaign.mailers"),
	}
}

// Run mails every lead on the mailers saved search.
func (w *Mailers) Run(ctx context.Context) (runner.Stats, error) {
	query, err := crm.LoadQuery(w.queries.Path(w.queries.Mailers))
	if err != nil {
		return runner.Stats{}, err
	}
	leads, err := w.client.SearchAll(ctx, query, crm.SearchOptions{Fields: mailerProjection})
	if err != nil {
		return runner.Stats{}, errors.Wrap(err, "searching mail candidates")
	}
	w.log.Infow("candidates found", logger.FieldCount, len(leads))

	stats := w.orch.Run(ctx, "mailers", len(leads), func(ctx context.Context, i int) runner.Result {
		return w.mail(ctx, leads[i])
	})
	return stats, nil
}

func (w *Mailers) mail(ctx context.Context, ref crm.LeadRef) runner.Result {
	lead, err := w.resolver.Lead(ctx, ref.ID)
	if err != nil {
		return runner.Failed(ref.ID, err)
	}
	opps, err := w.client.LeadOpportunities(ctx, ref.ID)
	if err != nil {
		return runner.Failed(ref.ID, err)
	}

	letter, err := w.assemble(ctx, lead, opps)
	if err != nil {
		return runner.Failed(ref.ID, err)
	}

	// On the ladder, the template id on the opportunity is what the last
	// rounds run assigned. No template means the lead showed up here
	// without ever being advanced, and mailing it would print a blank.
	if letter.Template == "" {
		return w.quarantine(ctx, ref.ID, "no letter template assigned")
	}
	if !letter.To.Complete() {
		return w.quarantine(ctx, ref.ID, "missing recipient name or address")
	}

	letterID, err := w.vendor.Send(ctx, letter)
	if err != nil {
		reason := err.Error()
		if vendorErr, ok := letters.IsVendorDecline(err); ok {
			reason = fmt.Sprintf("Error %d - %s", vendorErr.Status, vendorErr.Message)
		}
		return w.quarantine(ctx, ref.ID, reason)
	}

	if err := w.engine.MarkMailed(ctx, ref.ID); err != nil {
		// The letter is already in the vendor's queue; quarantining the
		// lead now would overstate the failure.
		w.log.Warnw("letter sent but the mailed stamp failed",
			logger.FieldLeadID, ref.ID,
			logger.FieldLetterID, letterID,
			logger.FieldError, err)
		return runner.Failed(ref.ID, errors.Wrap(err, "letter sent but mailed-today stamp failed"))
	}

	detail := "letter sent"
	if letterID != "" {
		detail = fmt.Sprintf("letter %s sent", letterID)
	}
	return runner.Succeeded(ref.ID, detail)
}

// quarantine moves the lead to the error stage with the reason and
// reports the record failed either way.
func (w *Mailers) quarantine(ctx context.Context, leadID, reason string) runner.Result {
	cause := errors.New(reason)
	if err := w.engine.Quarantine(ctx, leadID, reason); err != nil {
		return runner.Failed(leadID, errors.Join(cause, err))
	}
	return runner.Failed(leadID, cause)
}

// assemble gathers every field the letter template needs. It fills what
// it can find and leaves the rest blank; the gates in mail decide
// whether what it found is mailable.
func (w *Mailers) assemble(ctx context.Context, lead crm.Lead, opps []crm.Opportunity) (letters.Letter, error) {
	var letter letters.Letter

	if len(lead.Contacts) > 0 {
		letter.To.FirstName, letter.To.LastName = splitFirst(lead.Contacts[0].DisplayName)
	}
	letter.Merge.PlateNumber, letter.Merge.PlateLocation = splitFirst(lead.Name)

	fillAddress(&letter.To, lead.Custom.String(w.fields.Lead.MailingAddress))

	if raw := lead.Custom.String(w.fields.Lead.LastMailDate); raw != "" {
		letter.Merge.LastMailDate = FromISO(raw)
	}
	letter.Merge.Make = lead.Custom.String(w.fields.Lead.Make)
	letter.Merge.Model = lead.Custom.String(w.fields.Lead.Model)

	opp, found := w.firstInMailStage(opps)
	if !found {
		return letter, nil
	}
	letter.Merge.Value = letters.FormatAmount(letters.StripCurrency(opp.ValueFormatted))

	detail, err := w.resolver.Opportunity(ctx, opp.ID)
	if err != nil {
		return letter, err
	}

	cf := w.fields.Opportunity
	letter.Template = detail.Custom.String(cf.Template)
	letter.Merge.CitationNumber = detail.Custom.String(cf.CitationNumber)
	letter.Merge.CitationDate = FromISO(detail.Custom.String(cf.CitationDate))
	letter.Merge.CitationTime = detail.Custom.String(cf.CitationTime)
	letter.Merge.LotLocation = detail.Custom.String(cf.LotAddress)
	letter.Merge.CitationImageURL = detail.Custom.String(cf.CitationImageURL)
	letter.Merge.FineAmount = letters.FormatAmount(detail.Custom.String(cf.FineAmount))
	letter.Merge.ServiceFee = letters.FormatAmount(detail.Custom.String(cf.ServiceFee))

	// Which prior mail dates the template shows depends on the rung:
	// the second notice cites the first mailing, the final notice cites
	// both.
	dates := SplitMailerDates(detail.Custom.String(cf.MailerDates))
	switch opp.StatusID {
	case w.stages.Stage2:
		if len(dates) > 0 {
			letter.Merge.FirstMailer = FromISO(dates[0])
		}
	case w.stages.Stage3:
		if len(dates) > 0 {
			letter.Merge.FirstMailer = FromISO(dates[0])
		}
		if len(dates) > 1 {
			letter.Merge.SecondMailer = FromISO(dates[1])
		}
	}

	return letter, nil
}

// firstInMailStage picks the opportunity the letter is about: the first
// one sitting in any rung of the ladder.
func (w *Mailers) firstInMailStage(opps []crm.Opportunity) (crm.Opportunity, bool) {
	eligible := map[string]bool{
		w.stages.Stage1: true,
		w.stages.Stage2: true,
		w.stages.Stage3: true,
	}
	for _, opp := range opps {
		if eligible[opp.StatusID] {
			return opp, true
		}
	}
	return crm.Opportunity{}, false
}

// splitFirst splits on the first space: "Pat Q Driver" becomes "Pat"
// and "Q Driver".
func splitFirst(s string) (string, string) {
	before, after, _ := strings.Cut(s, " ")
	return before, after
}

// fillAddress parses the comma-separated mailing address the CRM stores
// as one string: "12 Elm St, Reno, NV 89501". Two parts means no
// state/zip; one part goes in as the street alone.
func fillAddress(to *letters.Recipient, raw string) {
	if raw == "" {
		return
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	switch {
	case len(parts) >= 3:
		to.AddressLine1 = parts[0]
		to.City = parts[1]
		to.State, to.PostalCode = splitFirst(parts[2])
	case len(parts) == 2:
		to.AddressLine1 = parts[0]
		to.City = parts[1]
	default:
		to.AddressLine1 = raw
	}
	to.Country = "US"
}
