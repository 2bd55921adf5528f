package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/askiada/go-medallion/internal/config"
)

// Runner runs the pipeline with the resolved configuration.
type Runner func(ctx context.Context, cfg config.Config) error

// NewRootCmd creates the medallion command. Flags override the file given
// with --config, which overrides the defaults.
func NewRootCmd(run Runner, version string) *cobra.Command {
	defaults := config.Default()
	var flags config.Config
	var configPath string

	cmd := &cobra.Command{
		Use:   "medallion",
		Short: "Build the bronze, silver and gold layers of a data lake",
		Long: `medallion optionally downloads the raw CSV files of an Azure Blob Storage
container, then builds the bronze, silver and gold layers under <base>/data.

Credentials are read from the flags, then from ACCOUNT_NAME, CONTAINER_NAME
and AZURE_SAS_TOKEN, then from the .env file.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.LoadFromFile(configPath)
				if err != nil {
					return err
				}
			}

			cfg = applyFlags(cmd, cfg, flags)
			err := cfg.Validate()
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.Base, "base", defaults.Base, "Base directory of data/{raw,bronze,silver,gold}")
	fs.BoolVar(&flags.Azure, "azure", false, "Download the raw files from Azure Blob Storage first")
	fs.StringVar(&flags.Account, "account", "", "Storage account name")
	fs.StringVar(&flags.Container, "container", "", "Blob container name")
	fs.StringVar(&flags.SASToken, "sas", "", "SAS token, leading '?' included")
	fs.StringVar(&flags.EnvFile, "env-file", defaults.EnvFile, "File holding credentials not found in the environment")
	fs.StringVar(&flags.AppName, "app-name", defaults.AppName, "Name of the engine session")
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&flags.Draw, "draw", "", "Write the DOT graph of the bronze load to this file")
	fs.StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	fs.StringVar(&flags.GoldModel, "gold-model", "", "Gold model file (default <base>/gold_model.yaml)")
	fs.IntVar(&flags.Workers, "workers", defaults.Workers, "Files downloaded or parsed at the same time")

	return cmd
}

// applyFlags overrides cfg with the flags set on the command line, so that flag
// defaults do not hide the values of the configuration file.
func applyFlags(cmd *cobra.Command, cfg config.Config, flags config.Config) config.Config {
	set := cmd.Flags().Changed

	if set("base") {
		cfg.Base = flags.Base
	}
	if set("azure") {
		cfg.Azure = flags.Azure
	}
	if set("account") {
		cfg.Account = flags.Account
	}
	if set("container") {
		cfg.Container = flags.Container
	}
	if set("sas") {
		cfg.SASToken = flags.SASToken
	}
	if set("env-file") {
		cfg.EnvFile = flags.EnvFile
	}
	if set("app-name") {
		cfg.AppName = flags.AppName
	}
	if set("draw") {
		cfg.Draw = flags.Draw
	}
	if set("metrics-file") {
		cfg.MetricsFile = flags.MetricsFile
	}
	if set("gold-model") {
		cfg.GoldModel = flags.GoldModel
	}
	if set("workers") {
		cfg.Workers = flags.Workers
	}

	return cfg
}
