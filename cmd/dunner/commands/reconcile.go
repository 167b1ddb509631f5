package commands

import (
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/reconcile"
)

// ReconcileCmd backfills lot addresses from the secondary account.
var ReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Backfill lot addresses from the secondary account",
	Long: `Copy missing lot addresses over from the secondary CRM account.

For every lead on the missing-lot saved search, each opportunity that
carries a lot uid but no lot address is looked up in the secondary
account (first match wins) and the formatted address is written back.
An opportunity with no match in the secondary account is counted as a
no-data outcome, not a failure - those lots simply are not in the other
system yet.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}
	if err := cfg.RequireSecondary(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client, fields, resolver, _, err := campaignKit(ctx, cfg)
	if err != nil {
		return err
	}

	workflow := reconcile.New(client, resolver, orch, fields, cfg)
	_, err = workflow.Run(ctx)
	return err
}
