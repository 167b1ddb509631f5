package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lotworks/dunner/campaign"
	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/crm"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/runner"
)

// setup loads and validates configuration and builds the orchestrator
// every workflow runs under. Emitter choice follows the global --json
// flag so machine consumers get structured progress events.
func setup(cmd *cobra.Command) (*config.Config, *runner.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbosity, _ := cmd.Flags().GetCount("verbose")

	var emitter runner.Emitter
	if jsonOutput {
		emitter = runner.NewJSONEmitter()
	} else {
		emitter = runner.NewCLIEmitter(verbosity)
	}
	return cfg, runner.New(emitter, cfg.Pacing), nil
}

// campaignKit builds the shared campaign pipeline: primary client,
// validated field registry, resolver (with the secondary account when
// one is configured) and the transition engine. Field validation runs
// before any record is touched so an id typo aborts the whole run.
func campaignKit(ctx context.Context, cfg *config.Config) (*crm.Client, *crm.FieldRegistry, *campaign.Resolver, *campaign.Engine, error) {
	client := crm.NewClient(cfg.CRM, cfg.Pacing)

	fields := crm.NewFieldRegistry(cfg.Fields)
	if err := fields.Validate(ctx, client); err != nil {
		return nil, nil, nil, nil, err
	}

	var secondary *crm.Client
	if cfg.Secondary.APIKey != "" {
		secondary = crm.NewClient(cfg.Secondary, cfg.Pacing)
	}

	resolver := campaign.NewResolver(client, secondary, fields)
	engine := campaign.NewEngine(client, campaign.NewTable(cfg.Campaign), fields, cfg.Campaign.Stages)
	return client, fields, resolver, engine, nil
}
