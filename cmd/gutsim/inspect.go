package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gutsim/datarecording"
)

func newInspectCmd() *cobra.Command {
	var (
		compartment string
		quantity    string
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print a recorded table.",
		Long: `Print a recorded table as CSV. FILE is either a CSV file ` +
			`written by a simulation or a SQLite database. For a database, ` +
			`--compartment and --quantity pick the table; without them the ` +
			`run information and the compartments are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if strings.EqualFold(filepath.Ext(path), ".csv") {
				t, err := datarecording.ReadCSVFile(path)
				if err != nil {
					return err
				}

				return t.WriteCSV(cmd.OutOrStdout())
			}

			return inspectDatabase(cmd, path, compartment, quantity)
		},
	}

	cmd.Flags().StringVar(&compartment, "compartment", "",
		"compartment of the table")
	cmd.Flags().StringVar(&quantity, "quantity", "",
		"quantity of the table: metabolome, microbiome or growth")

	return cmd
}

func inspectDatabase(
	cmd *cobra.Command,
	path, compartment, quantity string,
) error {
	db, err := datarecording.OpenSQLiteReader(path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if compartment == "" && quantity == "" {
		info, err := db.RunInfo(ctx)
		if err != nil {
			return err
		}

		properties := make([]string, 0, len(info))
		for p := range info {
			properties = append(properties, p)
		}
		sort.Strings(properties)

		for _, p := range properties {
			fmt.Fprintf(out, "%s: %s\n", p, info[p])
		}

		compartments, err := db.Compartments(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Compartments: %s\n", strings.Join(compartments, ", "))

		return nil
	}

	q, err := parseQuantity(quantity)
	if err != nil {
		return err
	}

	t, err := db.Table(ctx, compartment, q)
	if err != nil {
		return err
	}

	return t.WriteCSV(out)
}

func parseQuantity(s string) (datarecording.Quantity, error) {
	for _, q := range datarecording.Quantities {
		if string(q) == s {
			return q, nil
		}
	}

	return "", fmt.Errorf("unknown quantity %q", s)
}
