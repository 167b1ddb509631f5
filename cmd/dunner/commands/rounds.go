package commands

import (
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/campaign"
	"github.com/lotworks/dunner/errors"
)

// RoundsCmd advances opportunities along the notice ladder.
var RoundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Advance unpaid opportunities to the next notice round",
	Long: `Advance opportunities along the mail-round ladder.

In auto mode (the default) the saved search supplies leads whose
opportunities sit in stage 1 or stage 2; each eligible opportunity moves
one rung (1 to 2, 2 to 3), today's date is appended to the mailer-date
audit list, and the round's letter template id is stamped on the
opportunity. Round 1 mode instead moves each lead's first unpaid
opportunity onto the ladder.

Both writes of a transition (opportunity, then lead) ride the retry
pipeline; a torn write is reported for manual reconciliation, never
counted as a success.

Examples:
  dunner rounds                  # auto: second and third notices
  dunner rounds --round 1        # first notices
  dunner rounds --limit 25       # cap the run at 25 leads`,
	RunE: runRounds,
}

func init() {
	RoundsCmd.Flags().String("round", "auto", "Which rung to run: auto (1->2, 2->3) or 1 (first notice)")
	RoundsCmd.Flags().Int("limit", 0, "Maximum leads to process (0 = all)")
}

func runRounds(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}

	round, _ := cmd.Flags().GetString("round")
	limit, _ := cmd.Flags().GetInt("limit")

	var mode campaign.RoundMode
	switch round {
	case "auto":
		mode = campaign.RoundAuto
	case "1":
		mode = campaign.RoundFirst
	default:
		return errors.Newf("unknown --round %q: want auto or 1", round)
	}

	ctx := cmd.Context()
	client, _, resolver, engine, err := campaignKit(ctx, cfg)
	if err != nil {
		return err
	}

	workflow := campaign.NewRounds(client, resolver, engine, orch, cfg)
	_, err = workflow.Run(ctx, campaign.RoundsOptions{Mode: mode, Limit: limit})
	return err
}
