package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gutsim/config"
	"github.com/sarchlab/gutsim/simulation"
)

type simulateFlags struct {
	duration      int
	diet          string
	seed          uint64
	library       string
	models        string
	output        string
	monitor       bool
	monitorPort   int
	openBrowser   bool
	sqlite        bool
	publishBucket string
}

func (f *simulateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("duration") {
		cfg.DurationHours = f.duration
	}
	if changed("diet") {
		cfg.DietFile = f.diet
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("library") {
		cfg.LibraryFile = f.library
	}
	if changed("models") {
		cfg.Models.Dir = f.models
	}
	if changed("output") {
		cfg.Output.Dir = f.output
	}
	if changed("monitor") {
		cfg.Monitor.Enabled = f.monitor
	}
	if changed("monitor-port") {
		cfg.Monitor.Port = f.monitorPort
		cfg.Monitor.Enabled = true
	}
	if changed("open-browser") {
		cfg.Monitor.OpenBrowser = f.openBrowser
		cfg.Monitor.Enabled = cfg.Monitor.Enabled || f.openBrowser
	}
	if changed("sqlite") {
		cfg.Output.SQLite = f.sqlite
	}
	if changed("publish-bucket") {
		cfg.Publish.Bucket = f.publishBucket
	}
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	f := &simulateFlags{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation.",
		Long: `Run a simulation. Flags override the configuration file and ` +
			`the GUTSIM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}

			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(
				cmd.Context(), os.Interrupt)
			defer stop()

			return runSimulation(ctx, cmd, cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.IntVar(&f.duration, "duration", defaults.DurationHours,
		"simulated time in hours")
	flags.StringVar(&f.diet, "diet", defaults.DietFile, "diet CSV file")
	flags.Uint64Var(&f.seed, "seed", defaults.Seed, "random seed")
	flags.StringVar(&f.library, "library", defaults.LibraryFile,
		"microbial library JSON file")
	flags.StringVar(&f.models, "models", defaults.Models.Dir,
		"directory of species models")
	flags.StringVar(&f.output, "output", defaults.Output.Dir,
		"directory that receives the results")
	flags.BoolVar(&f.monitor, "monitor", false,
		"serve a live monitor while simulating")
	flags.IntVar(&f.monitorPort, "monitor-port", 0,
		"port of the monitor; 0 picks a free port")
	flags.BoolVar(&f.openBrowser, "open-browser", false,
		"open the monitor in a browser")
	flags.BoolVar(&f.sqlite, "sqlite", false,
		"also record into a SQLite database")
	flags.StringVar(&f.publishBucket, "publish-bucket", "",
		"S3 bucket that receives the results")

	return cmd
}

func runSimulation(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
) error {
	res, err := simulation.Run(ctx, cfg)
	if res != nil {
		cmd.Printf("Results in %s\n", res.OutputDir)
		if res.SQLiteFile != "" {
			cmd.Printf("Database %s\n", res.SQLiteFile)
		}
		for _, key := range res.Published {
			cmd.Printf("Published s3://%s/%s\n", cfg.Publish.Bucket, key)
		}
	}

	return err
}
