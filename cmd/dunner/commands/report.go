package commands

import (
	"encoding/json"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/report"
)

// ReportCmd summarizes last month's rep activity.
var ReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Last month's call activity per sales rep",
	Long: `Pull the previous calendar month's activity report for every rep on
the roster and print a per-rep summary sorted by total call time.

A rep whose report read fails stays in the table with zeros rather than
disappearing, so the roster is always fully accounted for.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client := crm.NewClient(cfg.CRM, cfg.Pacing)

	workflow := report.New(client, orch, cfg)
	rows, _, err := workflow.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
	}

	pterm.Println()
	pterm.Printf("%-20s %10s %6s %9s %8s %5s\n", "Rep", "Call time", "Calls", "Outbound", "Inbound", "Won")
	for _, r := range rows {
		pterm.Printf("%-20s %10s %6d %9d %8d %5d\n",
			r.Name, r.CallTime(), r.TotalCalls, r.OutboundCalls, r.InboundCalls, r.WonOpps)
	}
	return nil
}
