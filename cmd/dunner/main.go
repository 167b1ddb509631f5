package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/cmd/dunner/commands"
	"github.com/lotworks/dunner/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dunner",
	Short: "dunner - CRM mailer campaign operations",
	Long: `dunner - drive a collections mailer campaign through the CRM API.

Each subcommand is one operational workflow. All of them share the same
rate-aware request pipeline: 429 responses are waited out and retried,
cursor pagination runs to exhaustion, and a single record's failure never
stops a run.

Available workflows:
  rounds    - Advance unpaid opportunities to the next notice round
  holds     - Release held opportunities back to unpaid (oldest citation)
  mailers   - Create vendor letters for opportunities mailed today
  assign    - Top up each sales rep's queue from the reservoir
  handoff   - Export the owner-research queue and hand it to the vendor
  report    - Last month's call activity per sales rep
  reconcile - Backfill lot addresses from the secondary account

Examples:
  dunner rounds --round auto       # Second and third notices
  dunner rounds --round 1 --limit 50
  dunner assign                    # Distribute reservoir leads
  dunner config init               # Write a commented default config`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable output (JSON logs and progress events)")

	rootCmd.AddCommand(commands.RoundsCmd)
	rootCmd.AddCommand(commands.HoldsCmd)
	rootCmd.AddCommand(commands.MailersCmd)
	rootCmd.AddCommand(commands.AssignCmd)
	rootCmd.AddCommand(commands.HandoffCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.ReconcileCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	// SIGINT stops the run between records; there is no mid-record abort.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
