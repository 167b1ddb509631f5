package commands

import (
	"encoding/json"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/chat"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/handoff"
)

// HandoffCmd exports the owner-research queue to the vendor.
var HandoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Export the owner-research queue and hand it to the vendor",
	Long: `Measure the owner-research queue and, once it reaches the configured
target, hand the batch off.

A full handoff writes the queue to a CSV, uploads the file to the CRM
via the two-phase upload, logs an email with the file attached under the
vendor's lead, and announces the batch in chat. Below target, the run
just posts the current queue depth to chat so the team can see it
filling.`,
	RunE: runHandoff,
}

func runHandoff(cmd *cobra.Command, args []string) error {
	cfg, orch, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireCRM(); err != nil {
		return err
	}
	if err := cfg.RequireHandoff(); err != nil {
		return err
	}
	if err := cfg.RequireChat(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client := crm.NewClient(cfg.CRM, cfg.Pacing)
	uploader := crm.NewUploader(cfg.CRM.Timeout())
	chatClient := chat.NewClient(cfg.Chat)

	workflow := handoff.New(client, uploader, chatClient, orch, cfg)
	outcome, _, err := workflow.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(outcome)
	}

	if !outcome.HandedOff {
		pterm.Info.Printf("Queue at %d of %d - no handoff this run\n", outcome.QueueDepth, outcome.Target)
		return nil
	}
	pterm.Success.Printf("Handed off %d leads\n", outcome.QueueDepth)
	pterm.Printf("  csv:   %s\n", outcome.CSVPath)
	pterm.Printf("  email: %s\n", outcome.EmailID)
	return nil
}
