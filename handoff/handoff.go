// Package handoff ships the owner-research queue to the outside vendor
// once it reaches its goal: CSV artifact, CRM file upload, an email
// logged under the vendor's lead, and a chat announcement. Below the
// goal it only posts the current depth so the team knows the gap.
package handoff

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lotworks/dunner/chat"
	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/export"
	"github.com/lotworks/dunner/logger"
	"github.com/lotworks/dunner/runner"
)

// queueProjection keeps queue pages light; rows come from detail reads.
var queueProjection = []string{"id", "display_name"}

const subjectDateLayout = "01/02/06"

// Outcome reports what a handoff run did.
type Outcome struct {
	QueueDepth int    `json:"queue_depth"`
	Target     int    `json:"target"`
	HandedOff  bool   `json:"handed_off"`
	CSVPath    string `json:"csv_path,omitempty"`
	EmailID    string `json:"email_id,omitempty"`
}

// Workflow measures the find-owner queue and hands the batch off.
type Workflow struct {
	client   *crm.Client
	uploader *crm.Uploader
	chat     *chat.Client
	orch     *runner.Orchestrator
	cfg      config.HandoffConfig
	queries  config.QueriesConfig
	timeNow  func() time.Time
	log      *zap.SugaredLogger
}

// New builds the handoff workflow.
func New(client *crm.Client, uploader *crm.Uploader, chatClient *chat.Client, orch *runner.Orchestrator, cfg *config.Config) *Workflow {
	return &Workflow{
		client:   client,
		uploader: uploader,
		chat:     chatClient,
		orch:     orch,
		cfg:      cfg.Handoff,
		queries:  cfg.Queries,
		timeNow:  time.Now,
		log:      logger.ComponentLogger("handoff"),
	}
}

// SetClock injects a fixed clock. Used by tests.
func (w *Workflow) SetClock(now func() time.Time) {
	w.timeNow = now
}

// Run measures the queue and either reports the shortfall to chat or
// executes the full handoff. The below-goal chat post is the run's whole
// purpose, so its failure is the run's failure; the post-handoff
// announcement is advisory and never fails a batch that already shipped.
func (w *Workflow) Run(ctx context.Context) (Outcome, runner.Stats, error) {
	outcome := Outcome{Target: w.cfg.TargetCount}

	query, err := crm.LoadQuery(w.queries.Path(w.queries.Handoff))
	if err != nil {
		return outcome, runner.Stats{}, err
	}
	refs, err := w.client.SearchAll(ctx, query, crm.SearchOptions{
		Target: w.cfg.TargetCount,
		Fields: queueProjection,
	})
	if err != nil {
		return outcome, runner.Stats{}, err
	}
	outcome.QueueDepth = len(refs)
	w.log.Infow("queue measured",
		logger.FieldCount, len(refs),
		"target", w.cfg.TargetCount)

	if len(refs) < w.cfg.TargetCount {
		text := fmt.Sprintf("%sWe currently have %d leads in the find-owner queue. We need %d more to reach our goal of %d before the next handoff.",
			chat.Mention(w.cfg.ChatMention), len(refs), w.cfg.TargetCount-len(refs), w.cfg.TargetCount)
		if err := w.chat.Post(ctx, text); err != nil {
			return outcome, runner.Stats{}, errors.Wrap(err, "posting queue depth")
		}
		return outcome, runner.Stats{}, nil
	}

	rows := make([]export.OwnerRow, 0, len(refs))
	stats := w.orch.Run(ctx, "handoff", len(refs), func(ctx context.Context, i int) runner.Result {
		row, res := w.buildRow(ctx, refs[i])
		if res.Status == runner.StatusSucceeded {
			rows = append(rows, row)
		}
		return res
	})
	if err := ctx.Err(); err != nil {
		return outcome, stats, errors.Wrap(err, "canceled before the batch shipped")
	}
	if len(rows) == 0 {
		return outcome, stats, errors.New("no exportable rows: every lead detail read failed")
	}

	path, content, err := export.SaveOwnerCSV(w.cfg.OutputDir, rows, w.timeNow())
	if err != nil {
		return outcome, stats, err
	}
	outcome.CSVPath = path
	filename := filepath.Base(path)

	ticket, err := w.client.RequestUpload(ctx, filename, export.ContentType)
	if err != nil {
		return outcome, stats, errors.Wrapf(err, "requesting upload for %s", filename)
	}
	if err := w.uploader.Send(ctx, ticket, filename, export.ContentType, content); err != nil {
		return outcome, stats, errors.Wrapf(err, "uploading %s; attach it to the vendor email by hand", path)
	}

	emailID, err := w.sendEmail(ctx, ticket, filename, int64(len(content)))
	if err != nil {
		return outcome, stats, errors.Wrapf(err, "emailing the batch; %s is uploaded, attach it by hand", path)
	}
	outcome.EmailID = emailID
	outcome.HandedOff = true
	w.log.Infow("batch handed off",
		"rows", len(rows),
		"csv", path,
		"email_id", emailID)

	w.chat.Announce(ctx, fmt.Sprintf("%sWe've reached our goal in the find-owner queue and sent the batch of %d leads to the research vendor.",
		chat.Mention(w.cfg.ChatMention), len(rows)))
	return outcome, stats, nil
}

// buildRow reads one lead's detail and shapes its CSV row. Leads with no
// postal address still export; the researcher works from the id alone.
func (w *Workflow) buildRow(ctx context.Context, ref crm.LeadRef) (export.OwnerRow, runner.Result) {
	detail, err := w.client.LeadDetail(ctx, ref.ID)
	if err != nil {
		return export.OwnerRow{}, runner.Failed(ref.ID, err)
	}
	if !detail.Found {
		return export.OwnerRow{}, runner.Ineligible(ref.ID, "lead detail empty")
	}
	row := export.OwnerRow{ID: detail.Value.ID}
	if len(detail.Value.Addresses) > 0 {
		addr := detail.Value.Addresses[0]
		row.Address = addr.Address1
		row.City = addr.City
		row.State = addr.State
		row.Zipcode = addr.Zipcode
	}
	return row, runner.Succeeded(ref.ID, "exported")
}

// sendEmail logs the outbound email with the uploaded file attached. A
// sender identity that cannot be matched only warns; the CRM falls back
// to its default identity.
func (w *Workflow) sendEmail(ctx context.Context, ticket *crm.UploadTicket, filename string, size int64) (string, error) {
	recipient := w.recipient(ctx)
	if recipient == "" {
		return "", errors.New("no recipient: vendor contact has no email and no fallback is configured")
	}

	draft := crm.EmailDraft{
		LeadID:        w.cfg.VendorLeadID,
		ContactID:     w.cfg.VendorContactID,
		Direction:     "outbound",
		Status:        "outbox",
		Subject:       w.timeNow().Format(subjectDateLayout) + " " + w.cfg.EmailSubject,
		Sender:        fmt.Sprintf("%q <%s>", w.cfg.SenderName, w.cfg.SenderEmail),
		CreatedByName: w.cfg.SenderName,
		To:            []string{recipient},
		BodyText:      w.emailBody(),
		Attachments: []crm.EmailAttachment{{
			URL:         ticket.Download.URL,
			Filename:    filename,
			ContentType: export.ContentType,
			Size:        size,
		}},
		EmailAccountID: w.senderAccount(ctx),
	}
	return w.client.SendEmail(ctx, draft)
}

// recipient resolves the vendor contact's address, falling back to the
// configured address when the contact record has none.
func (w *Workflow) recipient(ctx context.Context) string {
	contact, err := w.client.ContactDetail(ctx, w.cfg.VendorContactID)
	if err != nil {
		w.log.Warnw("vendor contact unreadable, using fallback",
			"contact_id", w.cfg.VendorContactID,
			logger.FieldError, err)
		return w.cfg.FallbackEmail
	}
	if email := contact.Value.PrimaryEmail(); email != "" {
		return email
	}
	return w.cfg.FallbackEmail
}

// senderAccount matches the configured sender against the account's
// email identities. No match sends through the CRM default.
func (w *Workflow) senderAccount(ctx context.Context) string {
	accounts, err := w.client.EmailAccounts(ctx)
	if err != nil {
		w.log.Warnw("email accounts unreadable, sending through the default identity",
			logger.FieldError, err)
		return ""
	}
	for _, account := range accounts {
		if account.Email == w.cfg.SenderEmail {
			return account.ID
		}
	}
	w.log.Warnw("no email identity matches the configured sender",
		"sender", w.cfg.SenderEmail)
	return ""
}

func (w *Workflow) emailBody() string {
	return fmt.Sprintf(`Hi,

We have another batch of owner lookups ready for processing. Please see the attached file and let us know when you are ready for review and payment.

Best,
%s
%s
`, w.cfg.SenderName, w.cfg.SenderEmail)
}
