// Package startup turns a simulation definition into a runnable command-line
// program. It owns the boring parts every simulation binary needs: flag and
// config parsing, logger construction, exporter wiring, signal handling, and
// the final call into the simulation driver.
package startup

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/latticelab/ergo/internal/config"
	"github.com/latticelab/ergo/internal/logging"
	"github.com/latticelab/ergo/internal/sim"
	"github.com/latticelab/ergo/internal/stats"
)

// Version is the binary version, overridable at build time via ldflags.
var Version = "0.1.0-dev"

// Flush interval defaults applied when the config leaves it unset.
const (
	devFlushInterval        = 2 * time.Second
	productionFlushInterval = 5 * time.Minute
)

// App describes a simulation binary. Name and Short feed the command-line
// help; Registry holds the registered measures; New constructs a fresh
// sample; Measure records one configuration into the frozen measures.
type App[S sim.Sample] struct {
	Name     string
	Short    string
	Long     string
	Registry *stats.Registry
	New      func() S
	Measure  sim.MeasureFunc[S]
}

// Main parses flags and configuration, then runs the simulation until it is
// interrupted or the export failure cap is reached. It does not return;
// the process exits 0 on clean shutdown and 1 on error.
func Main[S sim.Sample](app App[S]) {
	root := newRootCmd(app)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd[S sim.Sample](app App[S]) *cobra.Command {
	var (
		configPath string
		production bool
	)

	cmd := &cobra.Command{
		Use:           app.Name,
		Short:         app.Short,
		Long:          app.Long,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cfg, cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runSimulation(cmd.Context(), app, cfg, production)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&production, "production", false, "Run in production mode (long flush interval, durable sink required)")
	cmd.Flags().StringSlice("sink", nil, "Export sinks: console, jsonl, sqlite, http (repeatable)")
	cmd.Flags().String("sqlite", "", "SQLite results database path")
	cmd.Flags().String("jsonl", "", "JSONL results file path")
	cmd.Flags().String("collector-url", "", "HTTP collector endpoint for the http sink")
	cmd.Flags().Duration("flush-interval", 0, "Mean interval between exports (default 2s, 5m in production)")
	cmd.Flags().Float64("flush-jitter", -1, "Relative flush interval jitter in [0, 1)")
	cmd.Flags().Int("max-failures", -1, "Consecutive export failures before giving up (0 = unlimited)")
	cmd.Flags().Uint64("seed", 0, "RNG seed (0 = random)")
	cmd.Flags().String("log-level", "", "Log level: info, debug")
	cmd.Flags().String("log-format", "", "Log format: text, pretty, json")

	cmd.AddCommand(newVersionCmd(app.Name))

	return cmd
}

// applyFlagOverrides copies explicitly-set flags over the loaded config,
// giving the command line the last word in the precedence chain.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("sink") {
		cfg.Export.Sinks, _ = f.GetStringSlice("sink")
	}
	if f.Changed("sqlite") {
		cfg.Export.SQLitePath, _ = f.GetString("sqlite")
	}
	if f.Changed("jsonl") {
		cfg.Export.JSONLPath, _ = f.GetString("jsonl")
	}
	if f.Changed("collector-url") {
		cfg.Export.CollectorURL, _ = f.GetString("collector-url")
	}
	if f.Changed("flush-interval") {
		d, _ := f.GetDuration("flush-interval")
		cfg.Export.FlushInterval = config.Duration(d)
	}
	if f.Changed("flush-jitter") {
		cfg.Export.FlushJitter, _ = f.GetFloat64("flush-jitter")
	}
	if f.Changed("max-failures") {
		cfg.Export.MaxFailuresInRow, _ = f.GetInt("max-failures")
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Logging.Format, _ = f.GetString("log-format")
	}
}

func runSimulation[S sim.Sample](ctx context.Context, app App[S], cfg *config.Config, production bool) error {
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if production && !hasDurableSink(cfg.Export.Sinks) {
		return errors.New("production mode requires a durable sink (jsonl, sqlite or http)")
	}

	interval := cfg.Export.FlushInterval.Std()
	if interval == 0 {
		if production {
			interval = productionFlushInterval
		} else {
			interval = devFlushInterval
		}
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	exporter, closeExporter, err := buildExporter(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up exporters: %w", err)
	}
	defer func() {
		if cerr := closeExporter(); cerr != nil {
			logger.Error("closing exporters", "error", cerr)
		}
	}()

	params := sim.Parameters{
		Name:             app.Name,
		Measures:         app.Registry.Freeze(),
		Exporter:         exporter,
		FlushInterval:    interval,
		FlushJitter:      cfg.Export.FlushJitter,
		MaxFailuresInRow: cfg.Export.MaxFailuresInRow,
		Seed:             seed,
		Instance:         uuid.NewString(),
		Logger:           logger,
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	err = sim.Run(ctx, params, app.New(), app.Measure)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("simulation interrupted, shutting down")
		return nil
	default:
		return fmt.Errorf("simulation failed: %w", err)
	}
}

func hasDurableSink(sinks []string) bool {
	for _, s := range sinks {
		switch s {
		case config.SinkJSONL, config.SinkSQLite, config.SinkHTTP:
			return true
		}
	}
	return false
}

func newVersionCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", name, Version)
		},
	}
}
