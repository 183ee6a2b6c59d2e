package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
	"github.com/example/go-lerp/internal/server"
	"github.com/spf13/cobra"
)

func newDerivCmd() *cobra.Command {
	var (
		at       []string
		step     []string
		gradient bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "deriv <grid>",
		Short: "Differentiate a grid at query points",
		Long: `Differentiate a grid at query points.

Prints the sum of the partial derivatives; --gradient adds one column per
dimension. Steps default to one and are set per dimension with
--step name=h. Linear interpolation differentiates analytically; other
methods use a forward difference over the step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if err := checkFormat(format); err != nil {
				return err
			}

			m, err := loadMesh(cfg, args[0])
			if err != nil {
				return err
			}

			bound, err := parseArgs(at)
			if err != nil {
				return err
			}

			q, err := buildQuery(m, bound)
			if err != nil {
				return err
			}

			opts, err := callOptions(cmd, cfg)
			if err != nil {
				return err
			}

			steps, err := parseSteps(m.Names(), step, q.N)
			if err != nil {
				return err
			}

			if steps != nil {
				opts = append(opts, mesh.WithSteps(steps))
			}

			res, err := m.Derivative(q, opts...)
			if err != nil {
				return err
			}

			var parts map[string][]float64
			if gradient || format == "json" {
				if parts, err = m.Gradient(q, opts...); err != nil {
					return err
				}
			}

			if format == "json" {
				resp := server.DerivativeResponse{
					Grid:     args[0],
					Values:   res.Values,
					Gradient: make(map[string]server.Floats, len(parts)),
				}
				for name, p := range parts {
					resp.Gradient[name] = p
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(resp)
			}

			if !gradient {
				return writePoints(cmd, q, "derivative", res.Values, res.OutOfRange)
			}

			return writeGradient(cmd, q.Names, res.Values, parts)
		},
	}

	cmd.Flags().StringArrayVar(&at, "at", nil, "Query binding name=v1[,v2...] (repeatable)")
	cmd.Flags().StringArrayVar(&step, "step", nil, "Derivative step name=h (repeatable, default 1)")
	cmd.Flags().BoolVar(&gradient, "gradient", false, "Print the partial derivatives")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}

// parseSteps expands "name=h" flags to per-point steps. It returns nil when
// no step was given.
func parseSteps(names []string, flags []string, n int) ([][]float64, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	h := make(map[string]float64, len(flags))

	for _, f := range flags {
		name, value, err := parseBinding(f)
		if err != nil {
			return nil, err
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", name, err)
		}

		h[name] = v
	}

	steps := make([][]float64, len(names))

	for d, name := range names {
		v, ok := h[name]
		if !ok {
			v = 1
		}

		delete(h, name)

		steps[d] = make([]float64, n)
		for j := range steps[d] {
			steps[d][j] = v
		}
	}

	if len(h) > 0 {
		unknown := slices.Sorted(maps.Keys(h))
		return nil, fmt.Errorf("%w: steps for unknown dimensions %v (dimensions: %v)", lookup.ErrInvalidStep, unknown, names)
	}

	return steps, nil
}

func writeGradient(cmd *cobra.Command, names []string, total []float64, parts map[string][]float64) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "DERIVATIVE\t"+strings.ToUpper(strings.Join(names, "\t")))

	for j, v := range total {
		fmt.Fprintf(tw, "%g", v)

		for _, name := range names {
			fmt.Fprintf(tw, "\t%g", parts[name][j])
		}

		fmt.Fprintln(tw)
	}

	return tw.Flush()
}
