package commands

import (
	"encoding/json"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/assign"
	"github.com/lotworks/dunner/crm"
)

// AssignCmd tops up each sales rep's lead queue.
var AssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Top up each sales rep's queue from the reservoir",
	Long: `Count each rep's working queue and top it up from the reservoir.

For every rep on the roster: count the leads currently assigned to them
(cursor pagination with an early exit once the target is reached), then
claim reservoir leads one at a time until the rep is back at target.
Claiming a lead is a single owner-field write; the reservoir search
re-runs per rep so two reps never receive the same lead.

The summary shows, per rep, how many leads they had, how many they
needed, and how many this run assigned.`,
	RunE: runAssign,
}

func init() {
	AssignCmd.Flags().Int("target", 0, "Per-rep queue target (0 = use configured assign.target_count)")
}

func runAssign(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}
	if target, _ := cmd.Flags().GetInt("target"); target > 0 {
		cfg.Assign.TargetCount = target
	}

	ctx := cmd.Context()
	client := crm.NewClient(cfg.CRM, cfg.Pacing)
	fields := crm.NewFieldRegistry(cfg.Fields)
	if err := fields.Validate(ctx, client); err != nil {
		return err
	}

	workflow := assign.New(client, orch, fields, cfg)
	summaries, _, err := workflow.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(summaries)
	}

	pterm.Println()
	pterm.Printf("%-20s %6s %6s %9s %7s\n", "Rep", "Had", "Needed", "Assigned", "Worked")
	for _, s := range summaries {
		pterm.Printf("%-20s %6d %6d %9d %6d%%\n", s.Name, s.Has, s.Needs, s.Assigned, s.WorkedPct)
	}
	return nil
}
