package commands

import (
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/campaign"
	"github.com/lotworks/dunner/letters"
)

// MailersCmd creates vendor letters for today's mailings.
var MailersCmd = &cobra.Command{
	Use:   "mailers",
	Short: "Create vendor letters for opportunities mailed today",
	Long: `Create a print-vendor letter for every opportunity that entered a
mail stage today.

Per lead: resolve the mailing address and merge variables (citation
number, amount due, violation date and type, lot address - pulled from
the secondary account when the opportunity is missing it), then post the
letter with the stage's template. Stage 2 letters reference the first
mailer date, stage 3 letters the first two; later dates are preserved.

A lead that cannot produce a complete letter (missing address, vendor
decline) is moved to the Error status with a note explaining why, so no
lead is left stranded mid-campaign without an operator-visible reason.`,
	RunE: runMailers,
}

func runMailers(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}
	if err := cfg.RequireLetters(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client, _, resolver, engine, err := campaignKit(ctx, cfg)
	if err != nil {
		return err
	}
	vendor := letters.NewClient(cfg.Letters)

	workflow := campaign.NewMailers(client, resolver, engine, vendor, orch, cfg)
	_, err = workflow.Run(ctx)
	return err
}
