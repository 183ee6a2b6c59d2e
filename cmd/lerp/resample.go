package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/example/go-lerp/internal/gridio"
	"github.com/example/go-lerp/internal/mesh"
	"github.com/spf13/cobra"
)

func newResampleCmd() *cobra.Command {
	var (
		axis     []string
		linspace []string
		output   string
		dtype    string
	)

	cmd := &cobra.Command{
		Use:   "resample <grid>",
		Short: "Evaluate a grid on new breakpoints",
		Long: `Evaluate a grid on new breakpoints and write the result.

Dimensions set with --axis name=v1,v2,... or --linspace name=lo:hi:n get new
breakpoints; the others keep theirs. Resampling defaults to hold
extrapolation unless --extrap is given.`,
		Example: "  lerp resample torque.lerp --linspace speed=0:6000:61 -o torque-fine.lerp",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if output == "" {
				return fmt.Errorf("--output is required for resample")
			}

			coords, err := parseAxes(axis, linspace)
			if err != nil {
				return err
			}

			m, err := loadMesh(cfg, args[0])
			if err != nil {
				return err
			}

			interp, extrap, err := cfg.Lookup.Methods()
			if err != nil {
				return err
			}

			opts := []mesh.CallOption{mesh.WithInterp(interp)}
			if cmd.Flags().Changed("extrap") || cmd.Flags().Changed("lookup-extrap") {
				opts = append(opts, mesh.WithExtrap(extrap))
			}

			out, err := m.Resample(coords, opts...)
			if err != nil {
				return err
			}

			data, err := gridio.EncodeGrid(out.Grid(), gridio.EncodeOptions{DataDType: strings.ToUpper(dtype)})
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			slog.Info("grid resampled",
				slog.String("input", args[0]),
				slog.String("output", output),
				slog.String("grid", out.String()),
			)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", out, output)

			return err
		},
	}

	cmd.Flags().StringArrayVar(&axis, "axis", nil, "New breakpoints name=v1,v2,... (repeatable)")
	cmd.Flags().StringArrayVar(&linspace, "linspace", nil, "Evenly spaced breakpoints name=lo:hi:n (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output grid file (required)")
	cmd.Flags().StringVar(&dtype, "dtype", gridio.DTypeF64, "Stored data type: F64|F32|F16|BF16")

	return cmd
}

// parseAxes merges --axis and --linspace bindings.
func parseAxes(axis, linspace []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(axis)+len(linspace))

	add := func(name string, v []float64) error {
		if _, dup := out[name]; dup {
			return fmt.Errorf("dimension %q set twice", name)
		}

		out[name] = v

		return nil
	}

	bound, err := parseArgs(axis)
	if err != nil {
		return nil, err
	}

	for name, a := range bound {
		if err := add(name, a.Values()); err != nil {
			return nil, err
		}
	}

	for _, s := range linspace {
		name, rng, err := parseBinding(s)
		if err != nil {
			return nil, err
		}

		v, err := parseLinspace(rng)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if err := add(name, v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// parseLinspace parses "lo:hi:n" into n evenly spaced values.
func parseLinspace(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid linspace %q (want lo:hi:n)", s)
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("linspace start: %w", err)
	}

	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("linspace end: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("linspace count: %w", err)
	}

	if n < 2 {
		return nil, fmt.Errorf("linspace count %d, want at least 2", n)
	}

	return floats.Span(make([]float64, n), lo, hi), nil
}
