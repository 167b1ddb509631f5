package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lotworks/dunner/config"
)

// ConfigCmd manages dunner configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dunner configuration",
	Long: `Display and manage dunner configuration.

Configuration sources (in order of precedence):
1. Environment variables (DUNNER_* prefix)
2. Project config (./dunner.toml, walking up the directory tree)
3. User config (~/.dunner/dunner.toml)
4. Default values

Secrets (api keys, tokens) belong in the environment; stage ids, field
ids and pacing belong in the file.

Examples:
  dunner config show                  # Show effective configuration
  dunner config show --format json
  dunner config get pacing.pages_per_second
  dunner config set assign target_count 500
  dunner config init                  # Write a default ~/.dunner/dunner.toml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the merged configuration from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g. pacing.record_delay_ms, campaign.stages.unpaid)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <section> <key> <value>",
	Short: "Set a value in the user config file",
	Long:  "Write one value into ~/.dunner/dunner.toml (e.g. dunner config set assign target_count 500)",
	Args:  cobra.ExactArgs(3),
	RunE:  runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default user config file",
	Long:  "Write ~/.dunner/dunner.toml populated with the shipped defaults for editing in place",
	RunE:  runConfigInit,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var data []byte
	switch configFormat {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unknown format %q: want toml, json or yaml", configFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config to %s: %w", configFormat, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value := config.Get(args[0])
	if value == nil {
		return fmt.Errorf("configuration key not found: %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := config.SetValue(args[0], args[1], args[2]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s.%s = %s\n", args[0], args[1], args[2])
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
