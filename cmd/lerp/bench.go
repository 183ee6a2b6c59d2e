package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/example/go-lerp/internal/bench"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		maxPoints  int
		step       int
		runs       int
		seed       uint64
		format     string
		cpuProfile string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark lookup throughput against a piecewise-linear baseline",
		Long: `Benchmark lookup throughput.

Evaluates sorted random queries on a 10-knot sine table for query sizes
0, step, 2*step, ... up to --max-points, timing the lookup engine against a
scalar piecewise-linear baseline. Extrapolation is always hold.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return errors.New("--runs must be at least 1")
			}

			if err := checkFormat(format); err != nil {
				return err
			}

			interp, _, err := cfg.Lookup.Methods()
			if err != nil {
				return err
			}

			bc := bench.DefaultConfig()
			bc.MaxPoints = maxPoints
			bc.Step = step
			bc.Runs = runs
			bc.Seed = seed
			bc.Interp = interp
			bc.Extrap = lookup.ExtrapHold
			bc.Options = cfg.Runtime.RunOptions()

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("create cpu profile: %w", err)
				}
				defer f.Close()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpu profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			results, err := bench.Run(bc)
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.LookupDurations(results))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return nil
		},
	}

	defaults := bench.DefaultConfig()

	cmd.Flags().IntVar(&maxPoints, "max-points", defaults.MaxPoints, "Largest query size")
	cmd.Flags().IntVar(&step, "step", defaults.Step, "Query size increment")
	cmd.Flags().IntVar(&runs, "runs", defaults.Runs, "Repetitions per query size")
	cmd.Flags().Uint64Var(&seed, "seed", defaults.Seed, "Random seed for query points")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")

	return cmd
}
