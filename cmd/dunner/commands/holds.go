package commands

import (
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/campaign"
)

// HoldsCmd releases held opportunities back to unpaid.
var HoldsCmd = &cobra.Command{
	Use:   "holds",
	Short: "Release held opportunities back to unpaid (oldest citation first)",
	Long: `Release each lead's oldest held opportunity back to unpaid.

Candidates come from the holds saved search. Per lead, the opportunity
with the oldest parseable citation date is selected; candidates whose
date parses under none of the accepted formats are excluded outright,
never treated as oldest. Only the selected opportunity moves; the rest
of the lead's holds stay put for a later run.`,
	RunE: runHolds,
}

func runHolds(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client, _, resolver, engine, err := campaignKit(ctx, cfg)
	if err != nil {
		return err
	}

	workflow := campaign.NewHolds(client, resolver, engine, orch, cfg)
	_, err = workflow.Run(ctx)
	return err
}
