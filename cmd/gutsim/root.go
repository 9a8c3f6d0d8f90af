package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/gutsim/config"
)

// version is set at link time.
var version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
}

// loadConfig reads the configuration and applies the persistent flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}

	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gutsim",
		Short: "gutsim simulates the microbiome and metabolome of the gut.",
		Long: `gutsim feeds a diet and bacteria into a two-compartment model ` +
			`of the gut and records how metabolites and populations evolve. ` +
			`Every species is optimised with flux balance analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level",
		config.LevelInfo, "log level: quiet, info or debug")

	rootCmd.AddCommand(
		newSimulateCmd(opts),
		newInspectCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of gutsim.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("gutsim " + version)
		},
	}
}
