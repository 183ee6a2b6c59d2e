package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/example/go-lerp/internal/query"
	"github.com/example/go-lerp/internal/server"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var (
		at     []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "eval <grid>",
		Short: "Interpolate a grid at query points",
		Long: `Interpolate a grid at query points.

Bind every dimension with --at name=value or --at name=v1,v2,...; scalars
and length-1 lists broadcast against the longest list.`,
		Example: "  lerp eval torque.lerp --at speed=1000,1500 --at load=0.5 --interp akima",
		Args:    cobra.ExactArgs(1),
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

			res, err := m.Interpolate(q, opts...)
			if err != nil {
				return err
			}

			interp, extrap := m.Methods(opts...)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(server.EvalResponse{
					Grid:       args[0],
					Interp:     interp.String(),
					Extrap:     extrap.String(),
					Values:     res.Values,
					OutOfRange: res.OutOfRange,
				})
			}

			return writePoints(cmd, q, "value", res.Values, res.OutOfRange)
		},
	}

	cmd.Flags().StringArrayVar(&at, "at", nil, "Query binding name=v1[,v2...] (repeatable)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}

// writePoints prints one row per query point; extrapolated values are
// marked with '*'.
func writePoints(cmd *cobra.Command, q query.Query, column string, values []float64, oor []bool) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, strings.ToUpper(strings.Join(append(append([]string(nil), q.Names...), column), "\t")))

	for j := range q.N {
		for _, x := range q.Point(j) {
			fmt.Fprintf(tw, "%g\t", x)
		}

		mark := ""
		if oor != nil && oor[j] {
			mark = " *"
		}

		fmt.Fprintf(tw, "%g%s\n", values[j], mark)
	}

	return tw.Flush()
}
