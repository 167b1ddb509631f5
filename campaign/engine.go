package campaign

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
)

// Engine advances opportunities along the transition table. Each advance
// is a two-phase write: the opportunity (stage, template, dates) first,
// then the lead's last-mail date. A failure between the phases leaves
// the record torn; the engine surfaces that as a PartialFailure and
// hands it to the reconciliation hook instead of pretending either way.
type Engine struct {
	client *crm.Client
	table  Table
	fields *crm.FieldRegistry
	stages config.StageIDs
	log    *zap.SugaredLogger

	timeNow func() time.Time

	// onPartial observes torn writes. Wired to the reconciliation queue;
	// nil is allowed and means log-only.
	onPartial func(errors.PartialFailure)
}

// NewEngine builds an engine over the campaign's transition table.
func NewEngine(client *crm.Client, table Table, fields *crm.FieldRegistry, stages config.StageIDs) *Engine {
	return &Engine{
		client:  client,
		table:   table,
		fields:  fields,
		stages:  stages,
		log:     logger.ComponentLogger("campaign.engine"),
		timeNow: time.Now,
	}
}

// SetClock injects a fixed clock. Used by tests.
func (e *Engine) SetClock(timeNow func() time.Time) {
	e.timeNow = timeNow
}

// OnPartialFailure registers the reconciliation hook.
func (e *Engine) OnPartialFailure(hook func(errors.PartialFailure)) {
	e.onPartial = hook
}

// Advance moves one opportunity to the next stage. The caller supplies
// the opportunity with whatever custom fields it already holds; DateAppend
// transitions read the current mailer-date list from there.
func (e *Engine) Advance(ctx context.Context, leadID string, opp crm.Opportunity) error {
	tr, ok := e.table.Next(opp.StatusID)
	if !ok {
		return errors.Wrapf(errors.ErrNoMatch, "stage %s has no transition", opp.StatusID)
	}
	today := Today(e.timeNow())

	oppFields := map[string]interface{}{"status_id": tr.To}
	if tr.Template != "" {
		oppFields[crm.CustomKey(e.fields.Opportunity.Template)] = tr.Template
	}
	switch tr.Dates {
	case DateReplace:
		oppFields[crm.CustomKey(e.fields.Opportunity.MailerDates)] = today
	case DateAppend:
		current := opp.Custom.String(e.fields.Opportunity.MailerDates)
		oppFields[crm.CustomKey(e.fields.Opportunity.MailerDates)] = AppendMailerDate(current, today)
	}

	if _, err := e.client.UpdateOpportunity(ctx, opp.ID, oppFields); err != nil {
		return errors.Wrapf(err, "advancing opportunity %s to %s", opp.ID, tr.To)
	}
	e.log.Debugw("opportunity advanced",
		logger.FieldOppID, opp.ID,
		logger.FieldFromStage, opp.StatusID,
		logger.FieldToStage, tr.To)

	if !tr.TouchParent {
		return nil
	}
	leadFields := map[string]interface{}{
		crm.CustomKey(e.fields.Lead.LastMailDate): today,
	}
	if _, err := e.client.UpdateLead(ctx, leadID, leadFields); err != nil {
		partial := errors.PartialFailure{
			ChildID:  opp.ID,
			ParentID: leadID,
			ChildOK:  true,
			ParentOK: false,
			Cause:    err,
		}
		if e.onPartial != nil {
			e.onPartial(partial)
		}
		e.log.Warnw("opportunity advanced but lead update failed, record is torn",
			logger.FieldLeadID, leadID,
			logger.FieldOppID, opp.ID,
			logger.FieldError, err)
		return &partial
	}
	return nil
}

// Release moves a held opportunity back to the unpaid stage. The table
// drives it like any other transition; the method exists so callers read
// as intent rather than table mechanics.
func (e *Engine) Release(ctx context.Context, leadID string, opp crm.Opportunity) error {
	return e.Advance(ctx, leadID, opp)
}

// Quarantine moves a lead to the error stage and leaves a note saying
// why. The note is the operator's only breadcrumb, so it carries the
// date and the human-readable reason. A note that fails to post fails
// the quarantine; a silent error stage is worse than none.
func (e *Engine) Quarantine(ctx context.Context, leadID, reason string) error {
	if _, err := e.client.UpdateLead(ctx, leadID, map[string]interface{}{"status_id": e.stages.Error}); err != nil {
		return errors.Wrapf(err, "moving lead %s to error stage", leadID)
	}
	note := fmt.Sprintf("<body><p><strong>Letter Error (%s):</strong> %s</p></body>", Today(e.timeNow()), reason)
	if _, err := e.client.CreateNote(ctx, leadID, note); err != nil {
		return errors.Wrapf(err, "noting error reason on lead %s", leadID)
	}
	return nil
}

// MarkMailed stamps the lead's mailed-today flag after a letter went out.
func (e *Engine) MarkMailed(ctx context.Context, leadID string) error {
	fields := map[string]interface{}{
		crm.CustomKey(e.fields.Lead.MailedToday): Today(e.timeNow()),
	}
	_, err := e.client.UpdateLead(ctx, leadID, fields)
	return err
}
