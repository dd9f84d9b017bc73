// Command ergo is the companion tool for simulations built on this module.
// It aggregates results databases written by the sqlite sink into final
// expectation values with uncertainties.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticelab/ergo/internal/report"
	"github.com/latticelab/ergo/internal/startup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ergo",
		Short: "Tools for ergodic statistical simulations",
		Long: `ergo inspects and aggregates the results produced by simulation
binaries built on this module. Instances running on separate machines
append flushes to a shared results database; ergo merges them back into
one expectation value per measure.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newReportCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newReportCmd() *cobra.Command {
	var (
		dbPath     string
		simulation string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate a results database into final expectation values",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := report.Collect(cmd.Context(), report.Options{
				DBPath:     dbPath,
				Simulation: simulation,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return res.WriteJSON(os.Stdout)
			}
			res.WriteText(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "results.db", "Path to the SQLite results database")
	cmd.Flags().StringVar(&simulation, "simulation", "", "Only aggregate flushes of this simulation")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ergo version %s\n", startup.Version)
		},
	}
}
